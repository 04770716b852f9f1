package handler

import (
	"net/http"

	"gen-gallery/internal/dto"
	"gen-gallery/internal/middleware"
	"gen-gallery/internal/service"
	"gen-gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// GenerationHandler 文生图处理器
type GenerationHandler struct {
	generationService *service.GenerationService
}

// NewGenerationHandler 创建文生图处理器
func NewGenerationHandler(generationService *service.GenerationService) *GenerationHandler {
	return &GenerationHandler{
		generationService: generationService,
	}
}

// GetModels 获取可用模型
// @Summary 获取可用模型
// @Tags 生成
// @Produce json
// @Success 200 {object} utils.Response{data=dto.ModelListResponse}
// @Router /api/models [get]
func (h *GenerationHandler) GetModels(c *gin.Context) {
	utils.SuccessResponse(c, h.generationService.Models())
}

// Generate 单模型生成
// @Summary 单模型生成图片
// @Tags 生成
// @Accept json
// @Produce json
// @Param request body dto.GenerateRequest true "提示词和模型"
// @Success 200 {object} dto.GenerateResponse
// @Failure 429 {object} utils.Response
// @Router /api/generate [post]
func (h *GenerationHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	result, err := h.generationService.Generate(c.Request.Context(), middleware.IPIdentity(c), req.Prompt, req.Model)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetRateLimitHeaders(c, result.RateLimit)
	c.JSON(http.StatusOK, dto.GenerateResponse{Image: result.Image})
}

// GenerateBatch 多模型并行生成
// @Summary 多模型并行生成图片
// @Tags 生成
// @Accept json
// @Produce json
// @Param request body dto.BatchGenerateRequest true "提示词和模型列表"
// @Success 200 {object} dto.BatchGenerateResponse
// @Router /api/generate/batch [post]
func (h *GenerationHandler) GenerateBatch(c *gin.Context) {
	var req dto.BatchGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	resp, err := h.generationService.GenerateBatch(c.Request.Context(), middleware.IPIdentity(c), req.Prompt, req.Models)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
