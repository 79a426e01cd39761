package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// InternalTokenHeader 是内部服务调用时携带共享密钥的请求头
const InternalTokenHeader = "X-Internal-Token"

// InternalTokenMiddleware 校验内部接口的共享密钥。
// 未配置密钥时所有内部请求都返回403。
func InternalTokenMiddleware(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "内部接口未启用"})
			return
		}
		got := c.GetHeader(InternalTokenHeader)
		if got == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少内部调用凭证"})
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "内部调用凭证无效"})
			return
		}
		c.Next()
	}
}
