package handler

import (
	"errors"
	"strconv"

	"gen-gallery/internal/middleware"
	"gen-gallery/internal/service"
	"gen-gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// respondError 将服务层错误映射为HTTP响应
func respondError(c *gin.Context, err error) {
	var rlErr *service.RateLimitError
	switch {
	case errors.As(err, &rlErr):
		middleware.SetRateLimitHeaders(c, rlErr.Result)
		utils.TooManyRequests(c, rlErr.Error())
	case errors.Is(err, service.ErrValidation):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		utils.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrPromptNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		_ = c.Error(err)
		utils.ServiceUnavailable(c, service.ErrStoreUnavailable.Error())
	case errors.Is(err, service.ErrUpstream):
		_ = c.Error(err)
		utils.InternalError(c, err.Error())
	default:
		_ = c.Error(err)
		utils.InternalError(c, "服务器内部错误")
	}
}

// parseID 解析路径中的ID参数
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.BadRequest(c, "无效的ID")
		return 0, false
	}
	return uint(id), true
}
