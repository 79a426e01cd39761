package bet

import (
	"fmt"

	"github.com/SlpAus/aura-wager-backend/internal/platform/apperr"
)

// BetType 是下注的种类
type BetType string

const (
	TypeSelf    BetType = "self"
	TypeCallout BetType = "callout"
	TypeDare    BetType = "dare"
)

// Valid 检查下注种类是否合法
func (t BetType) Valid() bool {
	switch t {
	case TypeSelf, TypeCallout, TypeDare:
		return true
	}
	return false
}

// HasTarget 表示该种类的下注需要指定目标用户
func (t BetType) HasTarget() bool {
	return t == TypeCallout || t == TypeDare
}

// Status 是下注的状态。active 是唯一的非终止状态
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusDucked    Status = "ducked"
)

// ParseStatus 解析查询参数中的状态，空字符串表示不过滤
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case "", StatusActive, StatusCompleted, StatusExpired, StatusDucked:
		return st, nil
	}
	return "", apperr.Validation(fmt.Sprintf("未知的下注状态: %q", s))
}

// IsTerminal 表示下注已经结算
func (s Status) IsTerminal() bool {
	return s != StatusActive
}

// Side 是押注的方向
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Valid 检查押注方向是否合法
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Outcome 是下注的结算结果
type Outcome string

const (
	OutcomeYes     Outcome = "yes"
	OutcomeNo      Outcome = "no"
	OutcomeExpired Outcome = "expired"
	OutcomeDucked  Outcome = "ducked"
)

// Valid 检查结算结果是否合法
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeYes, OutcomeNo, OutcomeExpired, OutcomeDucked:
		return true
	}
	return false
}

// WinningSide 返回获胜的一方。expired 和 ducked 没有获胜方
func (o Outcome) WinningSide() (Side, bool) {
	switch o {
	case OutcomeYes:
		return SideYes, true
	case OutcomeNo:
		return SideNo, true
	}
	return "", false
}

// Transition 是状态之间唯一的转换路径。
// 注意 no 结果对应 expired 状态，没有单独的“失败”状态。
func (s Status) Transition(o Outcome) (Status, error) {
	if !o.Valid() {
		return s, apperr.Validation(fmt.Sprintf("未知的结算结果: %q", o))
	}
	if s.IsTerminal() {
		return s, apperr.State(fmt.Sprintf("下注已处于终止状态 %s，不能再次结算", s))
	}
	switch o {
	case OutcomeYes:
		return StatusCompleted, nil
	case OutcomeDucked:
		return StatusDucked, nil
	default:
		return StatusExpired, nil
	}
}

// MediaType 是证据的媒体类型
type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
)

// Actor 是执行结算的身份：某个用户，或者系统本身。
// 系统身份只能通过 SystemActor 获得，用户ID无法伪造它。
type Actor struct {
	userID string
	system bool
}

// UserActor 以用户身份执行操作
func UserActor(userID string) Actor {
	return Actor{userID: userID}
}

// SystemActor 是自动过期等后台任务使用的身份
func SystemActor() Actor {
	return Actor{system: true}
}

// IsSystem 表示是否为系统身份
func (a Actor) IsSystem() bool {
	return a.system
}

// UserID 返回用户ID，系统身份返回空字符串
func (a Actor) UserID() string {
	return a.userID
}

func (a Actor) String() string {
	if a.system {
		return "system"
	}
	return "user:" + a.userID
}
