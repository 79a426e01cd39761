package bet

import (
	"net/http"
	"strconv"
	"time"

	"github.com/SlpAus/aura-wager-backend/internal/platform/apperr"
	"github.com/SlpAus/aura-wager-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// Handler 暴露下注相关的HTTP接口
type Handler struct {
	svc *Service
}

// NewHandler 创建下注HTTP处理器
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// --- 请求模型 ---

type createBetRequest struct {
	BetType      BetType   `json:"betType" binding:"required"`
	Description  string    `json:"description" binding:"required"`
	Deadline     time.Time `json:"deadline" binding:"required"`
	TargetUserID *string   `json:"targetUserId"`
}

type stakeRequest struct {
	Side   Side  `json:"side" binding:"required"`
	Amount int64 `json:"amount" binding:"required"`
}

type proofRequest struct {
	MediaType    MediaType `json:"mediaType"`
	MediaURL     string    `json:"mediaUrl"`
	MediaKey     string    `json:"mediaKey"`
	ThumbnailURL *string   `json:"thumbnailUrl"`
	Caption      *string   `json:"caption"`
}

type resolveRequest struct {
	Outcome Outcome `json:"outcome" binding:"required"`
	Notes   string  `json:"notes"`
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apperr.Respond(c, apperr.Validation("请求格式错误: "+err.Error()))
		return false
	}
	return true
}

func queryLimit(c *gin.Context) (int, bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil {
		apperr.Respond(c, apperr.Validation("limit 必须是整数"))
		return 0, false
	}
	return limit, true
}

// CreateBet 在聊天室中创建下注
func (h *Handler) CreateBet(c *gin.Context) {
	var req createBetRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.svc.CreateBet(c.Request.Context(), CreateInput{
		ChatID:       c.Param("chatId"),
		CreatorID:    user.CurrentUserID(c),
		BetType:      req.BetType,
		Description:  req.Description,
		Deadline:     req.Deadline,
		TargetUserID: req.TargetUserID,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// ListChatBets 列出聊天室中的下注，可按状态过滤
func (h *Handler) ListChatBets(c *gin.Context) {
	status, err := ParseStatus(c.Query("status"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	bets, err := h.svc.ListChatBets(c.Request.Context(), c.Param("chatId"), status, limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": bets})
}

// GetBet 返回下注详情
func (h *Handler) GetBet(c *gin.Context) {
	d, err := h.svc.GetBet(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// PlaceStake 当前用户在下注上押注
func (h *Handler) PlaceStake(c *gin.Context) {
	var req stakeRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.PlaceBetStake(c.Request.Context(), c.Param("id"), user.CurrentUserID(c), req.Side, req.Amount)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// SubmitProof 当前用户为下注提交证据
func (h *Handler) SubmitProof(c *gin.Context) {
	var req proofRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.svc.SubmitBetProof(c.Request.Context(), ProofInput{
		BetID:        c.Param("id"),
		UserID:       user.CurrentUserID(c),
		MediaType:    req.MediaType,
		MediaURL:     req.MediaURL,
		MediaKey:     req.MediaKey,
		ThumbnailURL: req.ThumbnailURL,
		Caption:      req.Caption,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListProofs 列出下注的证据
func (h *Handler) ListProofs(c *gin.Context) {
	proofs, err := h.svc.ListBetProofs(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"proofs": proofs})
}

// DeleteProof 删除当前用户提交的证据
func (h *Handler) DeleteProof(c *gin.Context) {
	if err := h.svc.DeleteBetProof(c.Request.Context(), c.Param("proofId"), user.CurrentUserID(c)); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Resolve 以当前用户身份结算下注。HTTP请求永远不能获得系统身份
func (h *Handler) Resolve(c *gin.Context) {
	var req resolveRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.svc.ResolveBet(c.Request.Context(), c.Param("id"), UserActor(user.CurrentUserID(c)), req.Outcome, req.Notes)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListUserBets 列出用户参与的下注
func (h *Handler) ListUserBets(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		return
	}
	bets, err := h.svc.ListUserBets(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bets": bets})
}
