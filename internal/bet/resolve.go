package bet

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/SlpAus/aura-wager-backend/internal/ledger"
	"github.com/SlpAus/aura-wager-backend/internal/platform/apperr"
	"github.com/SlpAus/aura-wager-backend/internal/user"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// failurePenaltyPercent 是self下注失败时按风险金额扣除的百分比
const failurePenaltyPercent = 10

// ResolveBet 结算一个下注：写入结算记录、释放托管、发放奖金或退款、扣除失败罚金并更新信誉。
// 整个过程在一个事务中完成；对同一下注的并发结算只有一个会成功，其余返回状态错误。
func (s *Service) ResolveBet(ctx context.Context, betID string, actor Actor, outcome Outcome, notes string) (*Resolution, error) {
	if !outcome.Valid() {
		return nil, apperr.Validation(fmt.Sprintf("未知的结算结果: %q", outcome))
	}
	if utf8.RuneCountInString(notes) > maxNotesLen {
		return nil, apperr.Validation(fmt.Sprintf("备注不能超过 %d 个字符", maxNotesLen))
	}

	unlock := s.locks.Lock("bet:" + betID)
	defer unlock()

	b, err := s.loadBet(ctx, betID)
	if err != nil {
		return nil, err
	}
	next, err := b.Status.Transition(outcome)
	if err != nil {
		return nil, err
	}
	if outcome == OutcomeDucked && b.BetType != TypeCallout {
		return nil, apperr.Validation("只有 callout 类型的下注可以以 ducked 结算")
	}
	if err := authorizeResolver(b, actor); err != nil {
		return nil, err
	}

	now := s.now()
	resolution := &Resolution{
		BetID:            betID,
		Outcome:          outcome,
		ResolvedBySystem: actor.IsSystem(),
		Notes:            notes,
		ResolvedAt:       now,
	}
	if !actor.IsSystem() {
		id := actor.UserID()
		resolution.ResolvedBy = &id
	}

	var settlement Settlement
	scores := map[string]int{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Bet{}).
			Where("id = ? AND status = ?", betID, StatusActive).
			Updates(map[string]interface{}{"status": next, "updated_at": now})
		if res.Error != nil {
			return fmt.Errorf("无法更新下注状态: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.State("下注已被结算")
		}

		// 状态已离开 active，之后不会再有新的押注写入
		var participants []Participant
		if err := tx.Where("bet_id = ?", betID).
			Order("created_at ASC").Order("id ASC").Find(&participants).Error; err != nil {
			return fmt.Errorf("无法读取押注: %w", err)
		}
		stakes := make([]Stake, len(participants))
		for i, p := range participants {
			stakes[i] = Stake{UserID: p.UserID, Side: p.Side, Amount: p.Amount}
		}
		settlement = Settle(stakes, outcome, s.opts.DustPolicy)
		resolution.TotalPot = settlement.TotalPot
		resolution.TotalPaid = settlement.TotalPaid
		resolution.Dust = settlement.Dust

		if err := tx.Create(resolution).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperr.State("下注已被结算")
			}
			return fmt.Errorf("无法保存结算记录: %w", err)
		}

		for _, p := range participants {
			if err := s.ledger.Release(tx, p.UserID, p.Amount); err != nil {
				return err
			}
		}
		for _, c := range settlement.Payouts {
			if _, err := s.ledger.Credit(tx, ledger.Entry{
				UserID: c.UserID, Amount: c.Amount, Type: ledger.TypeBetWin,
				BetID: &b.ID, Description: "赢得下注",
			}); err != nil {
				return err
			}
		}
		for _, c := range settlement.Refunds {
			if _, err := s.ledger.Credit(tx, ledger.Entry{
				UserID: c.UserID, Amount: c.Amount, Type: ledger.TypeBetRefund,
				BetID: &b.ID, Description: "下注退款",
			}); err != nil {
				return err
			}
		}

		if b.BetType == TypeSelf && outcome == OutcomeNo {
			if err := s.applyFailurePenalty(tx, b, participants); err != nil {
				return err
			}
		}

		for _, sd := range statDeltas(b, outcome) {
			if err := s.users.IncrementCounters(tx, sd.userID, sd.delta); err != nil {
				return err
			}
			score, err := s.users.RecomputeVibeScore(tx, sd.userID)
			if err != nil {
				return err
			}
			scores[sd.userID] = score
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxError("结算下注失败", err)
	}

	for userID, score := range scores {
		s.ledger.PublishScore(ctx, userID, score)
	}
	logrus.WithFields(logrus.Fields{
		"bet_id":     betID,
		"outcome":    outcome,
		"actor":      actor.String(),
		"total_pot":  settlement.TotalPot,
		"total_paid": settlement.TotalPaid,
		"dust":       settlement.Dust,
	}).Info("下注已结算")
	return resolution, nil
}

type statDelta struct {
	userID string
	delta  user.Counters
}

// statDeltas 返回结算后各方的统计增量：创建者总是计入，callout/dare 的目标用户同样计入。
// ducked 只记在躲避的目标用户身上。
func statDeltas(b *Bet, outcome Outcome) []statDelta {
	var delta user.Counters
	switch outcome {
	case OutcomeYes:
		delta.Completed = 1
	case OutcomeNo, OutcomeExpired:
		delta.Failed = 1
	case OutcomeDucked:
		if b.TargetUserID == nil {
			return nil
		}
		return []statDelta{{userID: *b.TargetUserID, delta: user.Counters{Ignored: 1}}}
	}
	deltas := []statDelta{{userID: b.CreatorID, delta: delta}}
	if b.BetType.HasTarget() && b.TargetUserID != nil && *b.TargetUserID != b.CreatorID {
		deltas = append(deltas, statDelta{userID: *b.TargetUserID, delta: delta})
	}
	return deltas
}

// applyFailurePenalty 扣除创建者风险金额（创建费用加自己的yes押注）的10%，只在余额足够时扣除
func (s *Service) applyFailurePenalty(tx *gorm.DB, b *Bet, participants []Participant) error {
	atRisk := b.CreationCost
	for _, p := range participants {
		if p.UserID == b.CreatorID && p.Side == SideYes {
			atRisk += p.Amount
		}
	}
	penalty := atRisk * failurePenaltyPercent / 100
	if penalty <= 0 {
		return nil
	}
	creator, err := s.users.GetTx(tx, b.CreatorID)
	if err != nil {
		return err
	}
	if creator.AuraBalance < penalty {
		logrus.WithFields(logrus.Fields{
			"bet_id":  b.ID,
			"user_id": b.CreatorID,
			"penalty": penalty,
			"balance": creator.AuraBalance,
		}).Info("余额不足，跳过失败罚金")
		return nil
	}
	_, err = s.ledger.Debit(tx, ledger.Entry{
		UserID:      b.CreatorID,
		Amount:      penalty,
		Type:        ledger.TypeFailurePenalty,
		BetID:       &b.ID,
		Description: "挑战失败罚金",
	})
	return err
}

// authorizeResolver 只允许创建者、目标用户或系统身份结算
func authorizeResolver(b *Bet, actor Actor) error {
	if actor.IsSystem() {
		return nil
	}
	id := actor.UserID()
	if id != "" && (id == b.CreatorID || (b.TargetUserID != nil && id == *b.TargetUserID)) {
		return nil
	}
	return apperr.Authorization("只有创建者或目标用户可以结算该下注")
}

// AutoExpireBets 以系统身份把所有已过截止时间的 active 下注结算为 expired。
// 单个下注失败只记录日志，返回成功过期的数量。
func (s *Service) AutoExpireBets(ctx context.Context) (int, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Bet{}).
		Where("status = ? AND deadline < ?", StatusActive, s.now()).
		Order("deadline ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, apperr.Internal("无法查询过期下注", err)
	}

	expired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		_, err := s.ResolveBet(ctx, id, SystemActor(), OutcomeExpired, "超过截止时间自动过期")
		switch {
		case err == nil:
			expired++
		case errors.Is(err, apperr.ErrState):
			// 与用户的结算竞争失败，下注已是终止状态
			logrus.WithField("bet_id", id).Debug("自动过期: 下注已被结算，跳过")
		default:
			logrus.WithError(err).WithField("bet_id", id).Warn("自动过期: 结算失败，跳过")
		}
	}
	if expired > 0 {
		logrus.Infof("自动过期: 共有 %d 个下注被标记为过期", expired)
	}
	return expired, nil
}
