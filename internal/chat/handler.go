package chat

import (
	"net/http"

	"github.com/SlpAus/aura-wager-backend/internal/platform/apperr"
	"github.com/gin-gonic/gin"
)

// Handler 接收外部聊天服务推送的成员变动
type Handler struct {
	dir *Directory
}

// NewHandler 创建成员同步处理器
func NewHandler(dir *Directory) *Handler {
	return &Handler{dir: dir}
}

// AddMember 记录用户加入聊天室
func (h *Handler) AddMember(c *gin.Context) {
	if err := h.dir.AddMember(c.Request.Context(), c.Param("chatId"), c.Param("userId")); err != nil {
		apperr.Respond(c, apperr.Internal("无法同步成员", err))
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveMember 记录用户离开聊天室
func (h *Handler) RemoveMember(c *gin.Context) {
	if err := h.dir.RemoveMember(c.Request.Context(), c.Param("chatId"), c.Param("userId")); err != nil {
		apperr.Respond(c, apperr.Internal("无法同步成员", err))
		return
	}
	c.Status(http.StatusNoContent)
}
