package middleware

import (
	"crypto/subtle"

	"gen-gallery/internal/utils"

	"github.com/gin-gonic/gin"
)

// InternalAPIKeyHeader 内部接口密钥请求头
const InternalAPIKeyHeader = "X-Internal-API-Key"

// InternalAPIAuth 内部API认证中间件
// 用于存储服务回调等服务间调用，使用内部密钥认证
func InternalAPIAuth(internalKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !validInternalKey(c, internalKey) {
			utils.Unauthorized(c, "无效的内部API密钥")
			return
		}

		c.Set("internal", true)
		c.Next()
	}
}

// InternalOrUserAuth 内部密钥或用户Token均可通过
func InternalOrUserAuth(internalKey string, jwtManager *utils.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(InternalAPIKeyHeader) != "" {
			InternalAPIAuth(internalKey)(c)
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.Unauthorized(c, "未认证")
			return
		}
		if !authenticate(c, jwtManager, authHeader) {
			return
		}

		c.Next()
	}
}

// IsInternal 是否为内部调用
func IsInternal(c *gin.Context) bool {
	return c.GetBool("internal")
}

func validInternalKey(c *gin.Context, internalKey string) bool {
	requestKey := c.GetHeader(InternalAPIKeyHeader)
	if internalKey == "" || requestKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(requestKey), []byte(internalKey)) == 1
}
