package middleware

import (
	"strconv"
	"time"

	"gen-gallery/internal/service"
	"gen-gallery/internal/utils"
	"gen-gallery/pkg/redis_limiter"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UploadPermissionChecker 上传权限检查接口
type UploadPermissionChecker interface {
	CanUpload(userID uint) (bool, error)
}

// UploadPermission 上传权限中间件，需在AuthMiddleware之后使用
func UploadPermission(checker UploadPermissionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			utils.Unauthorized(c, "未认证")
			return
		}

		allowed, err := checker.CanUpload(userID)
		if err != nil {
			_ = c.Error(err)
			utils.InternalError(c, "检查上传权限失败")
			return
		}
		if !allowed {
			utils.Forbidden(c, "没有上传权限，请联系管理员开通")
			return
		}

		c.Next()
	}
}

// RateLimit 限流中间件，identity 返回限流键
func RateLimit(limiter service.RateLimiter, identity func(c *gin.Context) string, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.Limit(c.Request.Context(), identity(c))
		if err != nil {
			logger.WithError(err).Error("限流检查失败")
			utils.InternalError(c, "限流检查失败")
			return
		}

		SetRateLimitHeaders(c, result)
		if !result.Success {
			utils.TooManyRequests(c, service.NewRateLimitError(result, time.Now()).Error())
			return
		}

		c.Next()
	}
}

// SetRateLimitHeaders 写入限流响应头
func SetRateLimitHeaders(c *gin.Context, result *redis_limiter.Result) {
	if result == nil {
		return
	}
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset, 10))
}

// UserIdentity 以用户ID作为限流键
func UserIdentity(c *gin.Context) string {
	userID, _ := GetUserID(c)
	return "user:" + strconv.FormatUint(uint64(userID), 10)
}

// IPIdentity 以客户端IP作为限流键
func IPIdentity(c *gin.Context) string {
	return "ip:" + c.ClientIP()
}
