package user

import (
	"time"
)

// User 定义了用户资料中与Aura钱包和信誉相关的部分。
// 余额与计数器只能通过ledger和bet模块的借记/贷记与重算操作修改。
type User struct {
	// ID 是用户的主键，由外部认证系统分配
	ID string `gorm:"primarykey;type:varchar(64)" json:"id"`

	// AuraBalance 是当前可用余额，永远不小于0
	AuraBalance int64 `gorm:"not null;default:0;check:aura_balance >= 0" json:"auraBalance"`

	// AuraHeld 是托管中的金额：该用户在未结算下注上的押注总和
	AuraHeld int64 `gorm:"not null;default:0;check:aura_held >= 0" json:"auraHeld"`

	// LifetimeAuraEarned 与 LifetimeAuraSpent 只增不减
	LifetimeAuraEarned int64 `gorm:"not null;default:0" json:"lifetimeAuraEarned"`
	LifetimeAuraSpent  int64 `gorm:"not null;default:0" json:"lifetimeAuraSpent"`

	// LastDailyBonus 为空表示从未领取过每日奖励
	LastDailyBonus *time.Time `json:"lastDailyBonus,omitempty"`

	BetsCreated     int `gorm:"not null;default:0" json:"betsCreated"`
	BetsCompleted   int `gorm:"not null;default:0" json:"betsCompleted"`
	BetsFailed      int `gorm:"not null;default:0" json:"betsFailed"`
	CalloutsIgnored int `gorm:"not null;default:0" json:"calloutsIgnored"`

	// VibeScore 是由计数器推导出的缓存值
	VibeScore int `gorm:"not null;default:100;index" json:"vibeScore"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
