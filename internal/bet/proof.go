package bet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SlpAus/aura-wager-backend/internal/platform/apperr"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SubmitBetProof 为下注提交一条完成证据。
// self 下注只有创建者可以提交，callout/dare 只有目标用户可以提交；提交不会改变下注状态。
func (s *Service) SubmitBetProof(ctx context.Context, in ProofInput) (*Proof, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	unlock := s.locks.Lock("bet:" + in.BetID)
	defer unlock()

	b, err := s.loadBet(ctx, in.BetID)
	if err != nil {
		return nil, err
	}
	if b.Status != StatusActive {
		return nil, apperr.State(fmt.Sprintf("下注已处于 %s 状态，不能再提交证据", b.Status))
	}
	if s.now().After(b.Deadline.Add(s.opts.ProofGracePeriod)) {
		return nil, apperr.State("已超过证据提交的宽限期")
	}
	if in.UserID != b.Performer() {
		if b.BetType.HasTarget() {
			return nil, apperr.Authorization("只有被点名的用户可以提交证据")
		}
		return nil, apperr.Authorization("只有创建者可以提交证据")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, apperr.Internal("无法生成证据ID", err)
	}
	p := &Proof{
		ID:           id.String(),
		BetID:        in.BetID,
		UserID:       in.UserID,
		MediaType:    in.MediaType,
		MediaURL:     in.MediaURL,
		MediaKey:     in.MediaKey,
		ThumbnailURL: in.ThumbnailURL,
		Caption:      in.Caption,
		CreatedAt:    s.now(),
	}
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, apperr.Internal("无法保存证据", err)
	}

	logrus.WithFields(logrus.Fields{
		"bet_id":   in.BetID,
		"user_id":  in.UserID,
		"proof_id": p.ID,
	}).Info("证据已提交")
	return p, nil
}

// DeleteBetProof 删除一条证据，只有提交者本人可以删除，且下注必须仍处于 active 状态
func (s *Service) DeleteBetProof(ctx context.Context, proofID, userID string) error {
	var p Proof
	if err := s.db.WithContext(ctx).Where("id = ?", proofID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("证据不存在")
		}
		return apperr.Internal("无法读取证据", err)
	}
	if p.UserID != userID {
		return apperr.Authorization("只能删除自己提交的证据")
	}

	unlock := s.locks.Lock("bet:" + p.BetID)
	defer unlock()

	b, err := s.loadBet(ctx, p.BetID)
	if err != nil {
		return err
	}
	if b.Status != StatusActive {
		return apperr.State("下注已结算，证据不能再删除")
	}
	if err := s.db.WithContext(ctx).Delete(&Proof{}, "id = ?", proofID).Error; err != nil {
		return apperr.Internal("无法删除证据", err)
	}
	logrus.WithFields(logrus.Fields{"bet_id": p.BetID, "proof_id": proofID}).Info("证据已删除")
	return nil
}

// validationError 把validator的错误转为领域校验错误
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s 不能为空", fe.Field()))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s 不是合法的URL", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s 不能超过 %s 个字符", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s 必须是 %s 之一", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s 校验失败 (%s)", fe.Field(), fe.Tag()))
		}
	}
	e := apperr.Validation(strings.Join(msgs, "; "))
	e.Metadata = map[string]string{"field": verrs[0].Field()}
	return e
}
