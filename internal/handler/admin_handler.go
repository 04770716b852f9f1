package handler

import (
	"gen-gallery/internal/dto"
	"gen-gallery/internal/middleware"
	"gen-gallery/internal/repository"
	"gen-gallery/internal/service"
	"gen-gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler 管理员处理器
type AdminHandler struct {
	userRepo *repository.UserRepository
}

// NewAdminHandler 创建管理员处理器
func NewAdminHandler(userRepo *repository.UserRepository) *AdminHandler {
	return &AdminHandler{
		userRepo: userRepo,
	}
}

// ListUsers 获取所有用户
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var query dto.PaginationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	offset := query.Normalize(20, 100)

	users, total, err := h.userRepo.List(offset, query.PerPage)
	if err != nil {
		respondError(c, err)
		return
	}

	infos := make([]dto.UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, service.ToUserInfo(&users[i]))
	}

	utils.PaginatedResponse(c, infos, total, query.Page, query.PerPage)
}

// DeleteUser 删除用户
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if currentID, _ := middleware.GetUserID(c); currentID == id {
		utils.BadRequest(c, "不能删除当前登录的账户")
		return
	}

	if err := h.userRepo.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "用户已删除", gin.H{"success": true})
}

// SetUploadPermission 设置用户上传权限
func (h *AdminHandler) SetUploadPermission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.UploadPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	rows, err := h.userRepo.UpdateCanUpload(id, *req.CanUpload)
	if err != nil {
		respondError(c, err)
		return
	}
	if rows == 0 {
		utils.NotFound(c, "用户不存在")
		return
	}

	utils.SuccessWithMessage(c, "上传权限已更新", gin.H{"id": id, "can_upload": *req.CanUpload})
}
