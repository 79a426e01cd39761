package leaderboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultTop = 20
	maxTop     = 100
)

// Handler 暴露排行榜的HTTP接口
type Handler struct {
	board *Board
}

// NewHandler 创建排行榜HTTP处理器
func NewHandler(board *Board) *Handler {
	return &Handler{board: board}
}

// GetTop 返回信誉分排行榜前n名
func (h *Handler) GetTop(c *gin.Context) {
	n, err := strconv.ParseInt(c.DefaultQuery("limit", strconv.Itoa(defaultTop)), 10, 64)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit 必须是正整数"})
		return
	}
	n = min(n, maxTop)
	entries, err := h.board.Top(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "排行榜暂时不可用"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetRank 返回指定用户的名次
func (h *Handler) GetRank(c *gin.Context) {
	entry, found, err := h.board.Rank(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "排行榜暂时不可用"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "用户不在排行榜上"})
		return
	}
	c.JSON(http.StatusOK, entry)
}
