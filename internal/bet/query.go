package bet

import (
	"context"
	"errors"

	"github.com/SlpAus/aura-wager-backend/internal/platform/apperr"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

// GetBet 返回下注及其押注、证据、结算记录和奖池概况
func (s *Service) GetBet(ctx context.Context, betID string) (*Details, error) {
	b, err := s.loadBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	d := &Details{Bet: *b}
	db := s.db.WithContext(ctx)

	if err := db.Where("bet_id = ?", betID).Order("created_at ASC").Order("id ASC").
		Find(&d.Participants).Error; err != nil {
		return nil, apperr.Internal("无法读取押注", err)
	}
	if err := db.Where("bet_id = ?", betID).Order("created_at DESC").Order("id DESC").
		Find(&d.Proofs).Error; err != nil {
		return nil, apperr.Internal("无法读取证据", err)
	}

	var r Resolution
	err = db.Where("bet_id = ?", betID).Take(&r).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, apperr.Internal("无法读取结算记录", err)
	default:
		d.Resolution = &r
	}

	d.Pot = Pot{
		TotalYes:     b.TotalYes,
		TotalNo:      b.TotalNo,
		TotalPot:     b.TotalYes + b.TotalNo,
		Participants: len(d.Participants),
	}
	return d, nil
}

// ListChatBets 按创建时间倒序列出聊天室中的下注，status 为空时不过滤
func (s *Service) ListChatBets(ctx context.Context, chatID string, status Status, limit int) ([]Bet, error) {
	q := s.db.WithContext(ctx).Where("chat_id = ?", chatID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var bets []Bet
	if err := q.Order("created_at DESC").Order("id DESC").Limit(clampLimit(limit)).Find(&bets).Error; err != nil {
		return nil, apperr.Internal("无法读取聊天室下注列表", err)
	}
	return bets, nil
}

// ListUserBets 列出用户创建的、被点名的或押注过的下注，按创建时间倒序
func (s *Service) ListUserBets(ctx context.Context, userID string, limit int) ([]Bet, error) {
	db := s.db.WithContext(ctx)
	staked := db.Model(&Participant{}).Select("bet_id").Where("user_id = ?", userID)
	var bets []Bet
	err := db.Where("creator_id = ? OR target_user_id = ? OR id IN (?)", userID, userID, staked).
		Order("created_at DESC").Order("id DESC").
		Limit(clampLimit(limit)).
		Find(&bets).Error
	if err != nil {
		return nil, apperr.Internal("无法读取用户下注列表", err)
	}
	return bets, nil
}

// ListBetProofs 按提交时间倒序列出下注的证据
func (s *Service) ListBetProofs(ctx context.Context, betID string) ([]Proof, error) {
	if _, err := s.loadBet(ctx, betID); err != nil {
		return nil, err
	}
	var proofs []Proof
	if err := s.db.WithContext(ctx).Where("bet_id = ?", betID).
		Order("created_at DESC").Order("id DESC").Find(&proofs).Error; err != nil {
		return nil, apperr.Internal("无法读取证据", err)
	}
	return proofs, nil
}
