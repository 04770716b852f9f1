package handler

import (
	"errors"

	"gen-gallery/internal/dto"
	"gen-gallery/internal/middleware"
	"gen-gallery/internal/service"
	"gen-gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// GalleryHandler 图库处理器
type GalleryHandler struct {
	galleryService *service.GalleryService
}

// NewGalleryHandler 创建图库处理器
func NewGalleryHandler(galleryService *service.GalleryService) *GalleryHandler {
	return &GalleryHandler{galleryService: galleryService}
}

// ListImages 获取我的图片
func (h *GalleryHandler) ListImages(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.Unauthorized(c, "未认证")
		return
	}

	var query dto.PaginationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	offset := query.Normalize(20, 100)

	records, total, err := h.galleryService.ListMine(userID, offset, query.PerPage)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, records, total, query.Page, query.PerPage)
}

// GetImage 获取单张图片，非本人图片与不存在的图片返回相同结果
func (h *GalleryHandler) GetImage(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.Unauthorized(c, "未认证")
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	record, err := h.galleryService.GetOne(id, userID)
	if err != nil {
		if errors.Is(err, service.ErrForbidden) || errors.Is(err, service.ErrNotFound) {
			utils.NotFound(c, "图片不存在")
			return
		}
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, record)
}

// DeleteImage 删除图片
func (h *GalleryHandler) DeleteImage(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.Unauthorized(c, "未认证")
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.galleryService.Delete(id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "图片已删除", gin.H{"deleted": deleted})
}
