package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlpAus/aura-wager-backend/internal/reputation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultInitialGrant 是新用户开户时获得的Aura数量
const DefaultInitialGrant int64 = 1000

// ErrUserNotFound 表示用户资料不存在
var ErrUserNotFound = errors.New("用户不存在")

// Repository 封装了对users表的读写。
// 需要参与调用方事务的方法都接收一个 *gorm.DB 参数。
type Repository struct {
	db           *gorm.DB
	initialGrant int64
}

// NewRepository 创建用户仓库，initialGrant <= 0 时使用默认值
func NewRepository(db *gorm.DB, initialGrant int64) *Repository {
	if initialGrant <= 0 {
		initialGrant = DefaultInitialGrant
	}
	return &Repository{db: db, initialGrant: initialGrant}
}

// InitialGrant 返回开户赠送的Aura数量
func (r *Repository) InitialGrant() int64 {
	return r.initialGrant
}

// Get 读取用户资料，不存在时返回 ErrUserNotFound
func (r *Repository) Get(ctx context.Context, id string) (*User, error) {
	return r.GetTx(r.db.WithContext(ctx), id)
}

// GetTx 在给定的事务中读取用户资料
func (r *Repository) GetTx(tx *gorm.DB, id string) (*User, error) {
	var u User
	if err := tx.Where("id = ?", id).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("无法读取用户 %s: %w", id, err)
	}
	return &u, nil
}

// EnsureUser 确保用户存在，不存在时按初始赠送额开户。
// 开户赠送不记录流水，它是余额不变式中的常数项。
func (r *Repository) EnsureUser(ctx context.Context, id string) (*User, error) {
	if id == "" {
		return nil, errors.New("用户ID不能为空")
	}
	newUser := User{
		ID:          id,
		AuraBalance: r.initialGrant,
		VibeScore:   reputation.BaseScore,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&newUser).Error
	if err != nil {
		return nil, fmt.Errorf("无法创建用户 %s: %w", id, err)
	}
	return r.Get(ctx, id)
}

// IncrementCounters 在事务中原子地增加用户的下注统计计数器
func (r *Repository) IncrementCounters(tx *gorm.DB, id string, delta Counters) error {
	updates := map[string]interface{}{}
	if delta.Created != 0 {
		updates["bets_created"] = gorm.Expr("bets_created + ?", delta.Created)
	}
	if delta.Completed != 0 {
		updates["bets_completed"] = gorm.Expr("bets_completed + ?", delta.Completed)
	}
	if delta.Failed != 0 {
		updates["bets_failed"] = gorm.Expr("bets_failed + ?", delta.Failed)
	}
	if delta.Ignored != 0 {
		updates["callouts_ignored"] = gorm.Expr("callouts_ignored + ?", delta.Ignored)
	}
	if len(updates) == 0 {
		return nil
	}
	res := tx.Model(&User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("无法更新用户 %s 的统计: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RecomputeVibeScore 在事务中根据当前计数器重算并持久化信誉分，返回新分数
func (r *Repository) RecomputeVibeScore(tx *gorm.DB, id string) (int, error) {
	u, err := r.GetTx(tx, id)
	if err != nil {
		return 0, err
	}
	score := reputation.VibeScore(u.BetsCompleted, u.BetsFailed, u.CalloutsIgnored)
	if score == u.VibeScore {
		return score, nil
	}
	if err := tx.Model(&User{}).Where("id = ?", id).Update("vibe_score", score).Error; err != nil {
		return 0, fmt.Errorf("无法保存用户 %s 的信誉分: %w", id, err)
	}
	return score, nil
}

// ListScores 读取所有用户的信誉分，用于重建排行榜缓存
func (r *Repository) ListScores(ctx context.Context) ([]User, error) {
	var users []User
	if err := r.db.WithContext(ctx).Select("id", "vibe_score").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("无法读取用户信誉分: %w", err)
	}
	return users, nil
}

// Counters 是下注统计计数器的增量
type Counters struct {
	Created   int
	Completed int
	Failed    int
	Ignored   int
}
