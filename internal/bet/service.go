// Package bet 实现下注的完整生命周期：创建、押注、提交证据、结算与自动过期。
// 它是唯一可以修改下注相关表的模块，所有余额变动都通过ledger完成。
package bet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SlpAus/aura-wager-backend/internal/ledger"
	"github.com/SlpAus/aura-wager-backend/internal/platform/apperr"
	"github.com/SlpAus/aura-wager-backend/internal/user"
	"github.com/SlpAus/aura-wager-backend/pkg/keylock"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	DefaultCreationCost     int64 = 10
	DefaultMinStake         int64 = 10
	DefaultMinDeadlineLead        = time.Hour
	DefaultProofGracePeriod       = time.Hour

	maxDescriptionLen = 500
	maxNotesLen       = 500
)

// Membership 回答某个用户是否属于某个聊天室，由外部聊天服务提供
type Membership interface {
	IsMember(ctx context.Context, userID, chatID string) (bool, error)
}

// Options 是下注服务的业务参数
type Options struct {
	CreationCost     int64
	MinStake         int64
	DustPolicy       DustPolicy
	MinDeadlineLead  time.Duration
	ProofGracePeriod time.Duration
}

// Service 编排下注状态机
type Service struct {
	db       *gorm.DB
	ledger   *ledger.Service
	users    *user.Repository
	members  Membership
	validate *validator.Validate
	locks    keylock.Map
	opts     Options
	now      func() time.Time
}

// NewService 创建下注服务，未设置的参数使用默认值
func NewService(db *gorm.DB, ledgerSvc *ledger.Service, members Membership, opts Options) *Service {
	if opts.CreationCost < 0 {
		opts.CreationCost = DefaultCreationCost
	}
	if opts.MinStake <= 0 {
		opts.MinStake = DefaultMinStake
	}
	if opts.DustPolicy == "" {
		opts.DustPolicy = DustRedistribute
	}
	if opts.MinDeadlineLead <= 0 {
		opts.MinDeadlineLead = DefaultMinDeadlineLead
	}
	if opts.ProofGracePeriod <= 0 {
		opts.ProofGracePeriod = DefaultProofGracePeriod
	}
	return &Service{
		db:       db,
		ledger:   ledgerSvc,
		users:    ledgerSvc.Users(),
		members:  members,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock 替换时间来源，测试中使用
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateBet 创建一个下注并扣除创建费用。任何校验失败都不会产生修改。
func (s *Service) CreateBet(ctx context.Context, in CreateInput) (*Bet, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, apperr.Validation("描述不能为空")
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return nil, apperr.Validation(fmt.Sprintf("描述不能超过 %d 个字符", maxDescriptionLen))
	}
	if !in.BetType.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("未知的下注类型: %q", in.BetType))
	}
	now := s.now()
	if !in.Deadline.After(now.Add(s.opts.MinDeadlineLead)) {
		return nil, apperr.Validation(fmt.Sprintf("截止时间必须晚于当前时间 %s 以上", s.opts.MinDeadlineLead))
	}

	if err := s.requireMember(ctx, in.CreatorID, in.ChatID, "创建者不是该聊天室的成员"); err != nil {
		return nil, err
	}
	creator, err := s.loadUser(ctx, in.CreatorID)
	if err != nil {
		return nil, err
	}
	if creator.AuraBalance <= 0 {
		return nil, apperr.InsufficientFunds("余额为0，无法创建下注", s.opts.CreationCost, creator.AuraBalance)
	}
	if creator.AuraBalance < s.opts.CreationCost {
		return nil, apperr.InsufficientFunds(
			fmt.Sprintf("余额不足以支付创建费用 %d", s.opts.CreationCost),
			s.opts.CreationCost, creator.AuraBalance)
	}

	var target *string
	if in.BetType.HasTarget() {
		if in.TargetUserID == nil || strings.TrimSpace(*in.TargetUserID) == "" {
			return nil, apperr.Validation(fmt.Sprintf("%s 类型的下注必须指定目标用户", in.BetType))
		}
		targetID := strings.TrimSpace(*in.TargetUserID)
		if targetID == in.CreatorID {
			return nil, apperr.Validation("目标用户不能是创建者本人")
		}
		if _, err := s.loadUser(ctx, targetID); err != nil {
			return nil, err
		}
		ok, err := s.members.IsMember(ctx, targetID, in.ChatID)
		if err != nil {
			return nil, apperr.Internal("无法查询聊天室成员关系", err)
		}
		if !ok {
			return nil, apperr.Validation("目标用户不是该聊天室的成员")
		}
		target = &targetID
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Internal("无法生成下注ID", err)
	}
	b := &Bet{
		ID:           id.String(),
		ChatID:       in.ChatID,
		CreatorID:    in.CreatorID,
		BetType:      in.BetType,
		Description:  desc,
		Deadline:     in.Deadline.UTC(),
		Status:       StatusActive,
		TargetUserID: target,
		CreationCost: s.opts.CreationCost,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("无法保存下注: %w", err)
		}
		_, err := s.ledger.Debit(tx, ledger.Entry{
			UserID:      in.CreatorID,
			Amount:      s.opts.CreationCost,
			Type:        ledger.TypeBetCreation,
			BetID:       &b.ID,
			Description: "创建下注",
		})
		if err != nil {
			return err
		}
		return s.users.IncrementCounters(tx, in.CreatorID, user.Counters{Created: 1})
	})
	if err != nil {
		return nil, wrapTxError("创建下注失败", err)
	}

	logrus.WithFields(logrus.Fields{
		"bet_id":   b.ID,
		"user_id":  b.CreatorID,
		"bet_type": b.BetType,
	}).Info("下注已创建")
	return b, nil
}

// PlaceBetStake 在下注上押注并把金额转入托管。所有前置条件在修改前检查。
func (s *Service) PlaceBetStake(ctx context.Context, betID, userID string, side Side, amount int64) (*Participant, error) {
	if !side.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("押注方向必须是 yes 或 no，收到 %q", side))
	}

	unlock := s.locks.Lock("bet:" + betID)
	defer unlock()

	b, err := s.loadBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusActive {
		return nil, apperr.State(fmt.Sprintf("下注已处于 %s 状态，不能再押注", b.Status))
	}
	if !s.now().Before(b.Deadline) {
		return nil, apperr.State("下注已过截止时间")
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.AuraBalance <= 0 {
		return nil, apperr.InsufficientFunds("余额为0，无法押注", amount, u.AuraBalance)
	}
	if amount < s.opts.MinStake {
		return nil, apperr.Validation(fmt.Sprintf("押注金额不能少于 %d", s.opts.MinStake))
	}
	if u.AuraBalance < amount {
		return nil, apperr.InsufficientFunds(
			fmt.Sprintf("余额不足: 需要 %d，可用 %d", amount, u.AuraBalance), amount, u.AuraBalance)
	}
	if err := s.requireMember(ctx, userID, b.ChatID, "只有聊天室成员可以押注"); err != nil {
		return nil, err
	}
	var existing int64
	if err := s.db.WithContext(ctx).Model(&Participant{}).
		Where("bet_id = ? AND user_id = ?", betID, userID).Count(&existing).Error; err != nil {
		return nil, apperr.Internal("无法检查已有押注", err)
	}
	if existing > 0 {
		return nil, apperr.State("每个用户在同一个下注上只能押注一次")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Internal("无法生成押注ID", err)
	}
	p := &Participant{
		ID:        id.String(),
		BetID:     betID,
		UserID:    userID,
		Side:      side,
		Amount:    amount,
		CreatedAt: s.now(),
	}

	column := "total_yes"
	if side == SideNo {
		column = "total_no"
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 带状态条件的更新与结算互斥：结算先提交时这里影响0行
		res := tx.Model(&Bet{}).
			Where("id = ? AND status = ?", betID, StatusActive).
			Updates(map[string]interface{}{
				column:       gorm.Expr(column+" + ?", amount),
				"updated_at": s.now(),
			})
		if res.Error != nil {
			return fmt.Errorf("无法更新奖池: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.State("下注已结算，不能再押注")
		}
		if _, err := s.ledger.Hold(tx, ledger.Entry{
			UserID:      userID,
			Amount:      amount,
			BetID:       &betID,
			Description: fmt.Sprintf("押注 %s", side),
		}); err != nil {
			return err
		}
		if err := tx.Create(p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.State("每个用户在同一个下注上只能押注一次")
			}
			return fmt.Errorf("无法保存押注: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError("押注失败", err)
	}

	logrus.WithFields(logrus.Fields{
		"bet_id":  betID,
		"user_id": userID,
		"side":    side,
		"amount":  amount,
	}).Info("押注成功")
	return p, nil
}

func (s *Service) loadBet(ctx context.Context, betID string) (*Bet, error) {
	return s.loadBetTx(s.db.WithContext(ctx), betID)
}

func (s *Service) loadBetTx(tx *gorm.DB, betID string) (*Bet, error) {
	var b Bet
	if err := tx.Where("id = ?", betID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("下注不存在")
		}
		return nil, apperr.Internal("无法读取下注", err)
	}
	return &b, nil
}

func (s *Service) loadUser(ctx context.Context, userID string) (*user.User, error) {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("用户 %s 不存在", userID))
	}
	if err != nil {
		return nil, apperr.Internal("无法读取用户资料", err)
	}
	return u, nil
}

func (s *Service) requireMember(ctx context.Context, userID, chatID, msg string) error {
	ok, err := s.members.IsMember(ctx, userID, chatID)
	if err != nil {
		return apperr.Internal("无法查询聊天室成员关系", err)
	}
	if !ok {
		return apperr.Authorization(msg)
	}
	return nil
}

// wrapTxError 保留事务中产生的领域错误，其它错误包装为内部错误
func wrapTxError(msg string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(msg, err)
}
