package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/aura-wager-backend/internal/platform/apperr"
	"github.com/SlpAus/aura-wager-backend/internal/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 以下方法都在调用方提供的事务中执行，保证余额变动与业务记录同生共死。
// 余额检查与扣减合并为一条带条件的UPDATE，并发扣款不会把余额扣成负数。

// Debit 从用户余额中扣除 e.Amount，余额不足时返回 InsufficientFunds 错误
func (s *Service) Debit(tx *gorm.DB, e Entry) (*Transaction, error) {
	return s.debit(tx, e, false)
}

// Hold 扣除押注金额并计入托管，流水类型为 bet_stake
func (s *Service) Hold(tx *gorm.DB, e Entry) (*Transaction, error) {
	e.Type = TypeBetStake
	return s.debit(tx, e, true)
}

func (s *Service) debit(tx *gorm.DB, e Entry, hold bool) (*Transaction, error) {
	if e.Amount < 0 {
		return nil, fmt.Errorf("扣款金额不能为负: %d", e.Amount)
	}
	if e.Amount == 0 {
		return nil, nil
	}

	updates := map[string]interface{}{
		"aura_balance":        gorm.Expr("aura_balance - ?", e.Amount),
		"lifetime_aura_spent": gorm.Expr("lifetime_aura_spent + ?", e.Amount),
	}
	if hold {
		updates["aura_held"] = gorm.Expr("aura_held + ?", e.Amount)
	}
	res := tx.Model(&user.User{}).
		Where("id = ? AND aura_balance >= ?", e.UserID, e.Amount).
		Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("无法扣除用户 %s 的余额: %w", e.UserID, res.Error)
	}
	if res.RowsAffected == 0 {
		u, err := s.users.GetTx(tx, e.UserID)
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperr.NotFound("用户不存在")
		}
		if err != nil {
			return nil, err
		}
		return nil, apperr.InsufficientFunds(
			fmt.Sprintf("余额不足: 需要 %d，可用 %d", e.Amount, u.AuraBalance),
			e.Amount, u.AuraBalance)
	}
	return s.appendTransaction(tx, e, -e.Amount)
}

// Credit 向用户余额中增加 e.Amount。
// 每日奖励和赢得的奖金计入 LifetimeAuraEarned，退款不计入。
func (s *Service) Credit(tx *gorm.DB, e Entry) (*Transaction, error) {
	if e.Amount < 0 {
		return nil, fmt.Errorf("入账金额不能为负: %d", e.Amount)
	}
	if e.Amount == 0 {
		return nil, nil
	}

	updates := map[string]interface{}{
		"aura_balance": gorm.Expr("aura_balance + ?", e.Amount),
	}
	if e.Type == TypeDailyBonus || e.Type == TypeBetWin {
		updates["lifetime_aura_earned"] = gorm.Expr("lifetime_aura_earned + ?", e.Amount)
	}
	res := tx.Model(&user.User{}).Where("id = ?", e.UserID).Updates(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("无法增加用户 %s 的余额: %w", e.UserID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("用户不存在")
	}
	return s.appendTransaction(tx, e, e.Amount)
}

// Release 把押注金额移出托管，不改变可用余额。结算时对每一笔押注调用一次。
func (s *Service) Release(tx *gorm.DB, userID string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	res := tx.Model(&user.User{}).
		Where("id = ? AND aura_held >= ?", userID, amount).
		Update("aura_held", gorm.Expr("aura_held - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("无法释放用户 %s 的托管金额: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Internal(fmt.Sprintf("用户 %s 的托管金额少于待释放的 %d", userID, amount), nil)
	}
	return nil
}

// appendTransaction 读取更新后的余额并追加一条流水
func (s *Service) appendTransaction(tx *gorm.DB, e Entry, signed int64) (*Transaction, error) {
	var balance int64
	if err := tx.Model(&user.User{}).Where("id = ?", e.UserID).Select("aura_balance").Scan(&balance).Error; err != nil {
		return nil, fmt.Errorf("无法读取用户 %s 的余额: %w", e.UserID, err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("无法生成流水ID: %w", err)
	}
	t := &Transaction{
		ID:           id.String(),
		UserID:       e.UserID,
		Amount:       signed,
		BalanceAfter: balance,
		Type:         e.Type,
		BetID:        e.BetID,
		Description:  e.Description,
		CreatedAt:    s.now(),
	}
	if err := tx.Create(t).Error; err != nil {
		return nil, fmt.Errorf("无法写入Aura流水: %w", err)
	}
	return t, nil
}

// nextBonusAt 计算下一次可领取每日奖励的时间，现在即可领取时返回nil
func nextBonusAt(last *time.Time, interval time.Duration, now time.Time) *time.Time {
	if last == nil {
		return nil
	}
	next := last.Add(interval)
	if !now.Before(next) {
		return nil
	}
	return &next
}
