package user

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderName 是上游认证网关写入的当前用户ID请求头
	HeaderName = "X-User-ID"
	UserIDKey  = "userID"
	maxIDLen   = 64
)

// LoadUserMiddleware 读取认证网关传入的用户ID并放入Gin上下文。
// 缺失或格式不正确时直接返回401。
func LoadUserMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderName))
		if userID == "" || len(userID) > maxIDLen {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少有效的用户身份"})
			return
		}
		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// EnsureUserMiddleware 确保当前用户在users表中存在，首次出现时开户。
// 必须放在 LoadUserMiddleware 之后。
func EnsureUserMiddleware(repo *Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := repo.EnsureUser(c.Request.Context(), c.GetString(UserIDKey)); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "无法加载用户资料"})
			return
		}
		c.Next()
	}
}

// CurrentUserID 从Gin上下文中取出当前用户ID
func CurrentUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
