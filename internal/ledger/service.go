package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/aura-wager-backend/internal/platform/apperr"
	"github.com/SlpAus/aura-wager-backend/internal/reputation"
	"github.com/SlpAus/aura-wager-backend/internal/user"
	"github.com/SlpAus/aura-wager-backend/pkg/keylock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	DefaultDailyBonus         int64 = 50
	DefaultDailyBonusInterval       = 24 * time.Hour

	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// ScorePublisher 接收重算后的信誉分，例如写入排行榜缓存。
// 实现不能让调用方失败。
type ScorePublisher interface {
	Publish(ctx context.Context, userID string, score int)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, int) {}

// Options 是账本服务的业务参数
type Options struct {
	DailyBonus         int64
	DailyBonusInterval time.Duration
}

// Service 拥有所有余额变动：借记、贷记、托管，以及登录时的每日奖励和信誉分重算
type Service struct {
	db     *gorm.DB
	users  *user.Repository
	scores ScorePublisher
	locks  keylock.Map
	opts   Options
	now    func() time.Time
}

// NewService 创建账本服务。scores 可以为 nil
func NewService(db *gorm.DB, users *user.Repository, opts Options, scores ScorePublisher) *Service {
	if opts.DailyBonus <= 0 {
		opts.DailyBonus = DefaultDailyBonus
	}
	if opts.DailyBonusInterval <= 0 {
		opts.DailyBonusInterval = DefaultDailyBonusInterval
	}
	if scores == nil {
		scores = noopPublisher{}
	}
	return &Service{
		db:     db,
		users:  users,
		scores: scores,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock 替换时间来源，测试中使用
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Users 返回底层的用户仓库
func (s *Service) Users() *user.Repository {
	return s.users
}

// PublishScore 把信誉分推送给排行榜，供其它模块在事务提交后调用
func (s *Service) PublishScore(ctx context.Context, userID string, score int) {
	s.scores.Publish(ctx, userID, score)
}

// ProcessLoginUpdates 在用户登录时发放每日奖励（距上次领取满24小时），并总是重算信誉分。
// 用户不存在时返回默认值且不报错，调用方应视为无操作。
func (s *Service) ProcessLoginUpdates(ctx context.Context, userID string) (LoginResult, error) {
	unlock := s.locks.Lock("user:" + userID)
	defer unlock()

	var (
		result   LoginResult
		notFound bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.users.GetTx(tx, userID)
		if errors.Is(err, user.ErrUserNotFound) {
			notFound = true
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now()
		if nextBonusAt(u.LastDailyBonus, s.opts.DailyBonusInterval, now) == nil {
			// 带条件的更新防止并发登录重复领取
			cutoff := now.Add(-s.opts.DailyBonusInterval)
			res := tx.Model(&user.User{}).
				Where("id = ? AND (last_daily_bonus IS NULL OR last_daily_bonus <= ?)", userID, cutoff).
				Update("last_daily_bonus", now)
			if res.Error != nil {
				return fmt.Errorf("无法记录每日奖励领取时间: %w", res.Error)
			}
			if res.RowsAffected == 1 {
				_, err := s.Credit(tx, Entry{
					UserID:      userID,
					Amount:      s.opts.DailyBonus,
					Type:        TypeDailyBonus,
					Description: "每日登录奖励",
				})
				if err != nil {
					return err
				}
				result.BonusClaimed = true
			}
		}

		score, err := s.users.RecomputeVibeScore(tx, userID)
		if err != nil {
			return err
		}
		result.VibeScore = score

		updated, err := s.users.GetTx(tx, userID)
		if err != nil {
			return err
		}
		result.Balance = updated.AuraBalance
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}
	if notFound {
		return LoginResult{
			Balance:   s.users.InitialGrant(),
			VibeScore: reputation.BaseScore,
		}, nil
	}

	s.scores.Publish(ctx, userID, result.VibeScore)
	logrus.WithFields(logrus.Fields{
		"user_id":       userID,
		"bonus_claimed": result.BonusClaimed,
		"balance":       result.Balance,
	}).Debug("登录更新完成")
	return result, nil
}

// CanAfford 检查用户余额是否足够支付 amount
func (s *Service) CanAfford(ctx context.Context, userID string, amount int64) (bool, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.AuraBalance >= amount, nil
}

// IsBankrupt 余额小于等于0即为破产
func (s *Service) IsBankrupt(ctx context.Context, userID string) (bool, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return u.AuraBalance <= 0, nil
}

// GetAuraStats 返回用户钱包与信誉的只读视图
func (s *Service) GetAuraStats(ctx context.Context, userID string) (Stats, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return Stats{}, err
	}
	next := nextBonusAt(u.LastDailyBonus, s.opts.DailyBonusInterval, s.now())
	return Stats{
		UserID:             u.ID,
		Balance:            u.AuraBalance,
		Held:               u.AuraHeld,
		LifetimeAuraEarned: u.LifetimeAuraEarned,
		LifetimeAuraSpent:  u.LifetimeAuraSpent,
		VibeScore:          u.VibeScore,
		BetsCreated:        u.BetsCreated,
		BetsCompleted:      u.BetsCompleted,
		BetsFailed:         u.BetsFailed,
		CalloutsIgnored:    u.CalloutsIgnored,
		LastDailyBonus:     u.LastDailyBonus,
		NextBonusAt:        next,
		CanClaimBonus:      next == nil,
	}, nil
}

// GetTransactionHistory 按时间倒序返回用户的流水
func (s *Service) GetTransactionHistory(ctx context.Context, userID string, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)
	offset = max(offset, 0)

	var txs []Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&txs).Error
	if err != nil {
		return nil, apperr.Internal("无法读取Aura流水", err)
	}
	return txs, nil
}

// TransactionsForBet 返回与某个下注相关的全部流水，按写入顺序
func (s *Service) TransactionsForBet(ctx context.Context, betID string) ([]Transaction, error) {
	var txs []Transaction
	err := s.db.WithContext(ctx).Where("bet_id = ?", betID).Order("created_at ASC").Order("id ASC").Find(&txs).Error
	if err != nil {
		return nil, apperr.Internal("无法读取下注相关流水", err)
	}
	return txs, nil
}

// VerifyBalance 核对余额不变式：余额 = 开户赠送 + 全部流水之和，且等于最后一条流水的 BalanceAfter
func (s *Service) VerifyBalance(ctx context.Context, userID string) (Audit, error) {
	var audit Audit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := s.users.GetTx(tx, userID)
		if errors.Is(err, user.ErrUserNotFound) {
			return apperr.NotFound("用户不存在")
		}
		if err != nil {
			return err
		}

		var sum int64
		if err := tx.Model(&Transaction{}).Where("user_id = ?", userID).
			Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error; err != nil {
			return fmt.Errorf("无法汇总用户 %s 的流水: %w", userID, err)
		}

		var last Transaction
		err = tx.Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Take(&last).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return fmt.Errorf("无法读取用户 %s 的最后一条流水: %w", userID, err)
		default:
			audit.LastBalanceAfter = &last.BalanceAfter
		}

		audit.UserID = userID
		audit.Balance = u.AuraBalance
		audit.InitialGrant = s.users.InitialGrant()
		audit.TransactionSum = sum
		audit.Consistent = audit.InitialGrant+sum == u.AuraBalance &&
			(audit.LastBalanceAfter == nil || *audit.LastBalanceAfter == u.AuraBalance)
		return nil
	})
	return audit, err
}

func (s *Service) getUser(ctx context.Context, userID string) (*user.User, error) {
	u, err := s.users.Get(ctx, userID)
	if errors.Is(err, user.ErrUserNotFound) {
		return nil, apperr.NotFound("用户不存在")
	}
	if err != nil {
		return nil, apperr.Internal("无法读取用户资料", err)
	}
	return u, nil
}
