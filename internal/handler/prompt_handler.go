package handler

import (
	"net/http"
	"strconv"

	"gen-gallery/internal/dto"
	"gen-gallery/internal/middleware"
	"gen-gallery/internal/service"
	"gen-gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// PromptHandler 提示词暂存处理器
type PromptHandler struct {
	store *service.PromptStore
}

// NewPromptHandler 创建提示词暂存处理器
func NewPromptHandler(store *service.PromptStore) *PromptHandler {
	return &PromptHandler{store: store}
}

// Store 暂存提示词，供上传完成时关联
// @Summary 暂存提示词
// @Tags 提示词
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.StorePromptRequest true "提示词"
// @Success 200 {object} utils.Response
// @Router /api/prompt-storage [post]
func (h *PromptHandler) Store(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.Unauthorized(c, "未认证")
		return
	}

	var req dto.StorePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	timestamp, err := req.Timestamp.Int64()
	if err != nil {
		utils.BadRequest(c, "timestamp必须是整数")
		return
	}

	if err := h.store.Put(c.Request.Context(), userID, timestamp, req.Prompt, req.CustomName); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessWithMessage(c, "提示词已保存", gin.H{"success": true})
}

// Lookup 查询暂存的提示词
// @Summary 查询暂存的提示词
// @Tags 提示词
// @Produce json
// @Param timestamp query int true "时间戳"
// @Param userId query int false "用户ID（内部调用必填）"
// @Success 200 {object} dto.PromptLookupResponse
// @Router /api/prompt-storage [get]
func (h *PromptHandler) Lookup(c *gin.Context) {
	timestamp, err := strconv.ParseInt(c.Query("timestamp"), 10, 64)
	if err != nil {
		utils.BadRequest(c, "timestamp必须是整数")
		return
	}

	var userID uint
	if middleware.IsInternal(c) {
		id, err := strconv.ParseUint(c.Query("userId"), 10, 32)
		if err != nil {
			utils.BadRequest(c, "userId必须是整数")
			return
		}
		userID = uint(id)
	} else {
		id, ok := middleware.GetUserID(c)
		if !ok {
			utils.Unauthorized(c, "未认证")
			return
		}
		userID = id
	}

	pending, err := h.store.Get(c.Request.Context(), userID, timestamp)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.PromptLookupResponse{
		Success:    true,
		Prompt:     pending.Prompt,
		CustomName: pending.CustomName,
	})
}
