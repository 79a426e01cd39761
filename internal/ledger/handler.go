package ledger

import (
	"net/http"
	"strconv"

	"github.com/SlpAus/aura-wager-backend/internal/platform/apperr"
	"github.com/SlpAus/aura-wager-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// Handler 暴露账本相关的HTTP接口
type Handler struct {
	svc *Service
}

// NewHandler 创建账本HTTP处理器
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Login 处理当前用户的登录更新：每日奖励与信誉分重算，只允许本人调用
func (h *Handler) Login(c *gin.Context) {
	userID := c.Param("id")
	if userID != user.CurrentUserID(c) {
		apperr.Respond(c, apperr.Authorization("只能为自己处理登录更新"))
		return
	}
	result, err := h.svc.ProcessLoginUpdates(c.Request.Context(), userID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetStats 返回指定用户的钱包统计
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.svc.GetAuraStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetHistory 返回当前用户的流水，只允许查看自己的
func (h *Handler) GetHistory(c *gin.Context) {
	userID := c.Param("id")
	if userID != user.CurrentUserID(c) {
		apperr.Respond(c, apperr.Authorization("只能查看自己的Aura流水"))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("limit 必须是整数"))
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("offset 必须是整数"))
		return
	}
	txs, err := h.svc.GetTransactionHistory(c.Request.Context(), userID, limit, offset)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}

// GetAudit 核对指定用户的余额不变式
func (h *Handler) GetAudit(c *gin.Context) {
	audit, err := h.svc.VerifyBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, audit)
}
