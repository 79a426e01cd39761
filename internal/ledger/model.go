package ledger

import (
	"time"
)

// TransactionType 定义了Aura流水的类型
type TransactionType string

const (
	TypeDailyBonus     TransactionType = "daily_bonus"
	TypeBetCreation    TransactionType = "bet_creation"
	TypeBetStake       TransactionType = "bet_stake"
	TypeBetWin         TransactionType = "bet_win"
	TypeBetRefund      TransactionType = "bet_refund"
	TypeFailurePenalty TransactionType = "failure_penalty"
)

// Transaction 是一条不可变的Aura流水。
// BalanceAfter 记录写入时用户的余额，独立于users表构成审计轨迹。
type Transaction struct {
	ID           string          `gorm:"primarykey;type:varchar(36)" json:"id"`
	UserID       string          `gorm:"type:varchar(64);not null;index:idx_aura_tx_user_created,priority:1" json:"userId"`
	Amount       int64           `gorm:"not null" json:"amount"`
	BalanceAfter int64           `gorm:"not null" json:"balanceAfter"`
	Type         TransactionType `gorm:"type:varchar(32);not null" json:"type"`
	BetID        *string         `gorm:"type:varchar(36);index" json:"betId,omitempty"`
	Description  string          `gorm:"type:varchar(255)" json:"description"`
	CreatedAt    time.Time       `gorm:"index:idx_aura_tx_user_created,priority:2" json:"createdAt"`
}

// TableName 指定表名
func (Transaction) TableName() string {
	return "aura_transactions"
}

// Entry 描述一次余额变动的请求，Amount 总是正数，方向由调用的方法决定
type Entry struct {
	UserID      string
	Amount      int64
	Type        TransactionType
	BetID       *string
	Description string
}

// LoginResult 是登录时处理每日奖励与信誉分的结果
type LoginResult struct {
	Balance      int64 `json:"balance"`
	VibeScore    int   `json:"vibeScore"`
	BonusClaimed bool  `json:"bonusClaimed"`
}

// Stats 是用户钱包与信誉的只读投影
type Stats struct {
	UserID             string     `json:"userId"`
	Balance            int64      `json:"balance"`
	Held               int64      `json:"held"`
	LifetimeAuraEarned int64      `json:"lifetimeAuraEarned"`
	LifetimeAuraSpent  int64      `json:"lifetimeAuraSpent"`
	VibeScore          int        `json:"vibeScore"`
	BetsCreated        int        `json:"betsCreated"`
	BetsCompleted      int        `json:"betsCompleted"`
	BetsFailed         int        `json:"betsFailed"`
	CalloutsIgnored    int        `json:"calloutsIgnored"`
	LastDailyBonus     *time.Time `json:"lastDailyBonus,omitempty"`
	NextBonusAt        *time.Time `json:"nextBonusAt,omitempty"`
	CanClaimBonus      bool       `json:"canClaimBonus"`
}

// Audit 是对单个用户余额不变式的核对结果
type Audit struct {
	UserID           string `json:"userId"`
	Balance          int64  `json:"balance"`
	InitialGrant     int64  `json:"initialGrant"`
	TransactionSum   int64  `json:"transactionSum"`
	LastBalanceAfter *int64 `json:"lastBalanceAfter,omitempty"`
	Consistent       bool   `json:"consistent"`
}
