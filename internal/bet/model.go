package bet

import (
	"time"
)

// Bet 是一次下注。状态只能从 active 经由一次结算转为终止状态。
type Bet struct {
	ID           string    `gorm:"primarykey;type:varchar(36)" json:"id"`
	ChatID       string    `gorm:"type:varchar(64);not null;index:idx_bets_chat_created,priority:1" json:"chatId"`
	CreatorID    string    `gorm:"type:varchar(64);not null;index" json:"creatorId"`
	BetType      BetType   `gorm:"type:varchar(16);not null" json:"betType"`
	Description  string    `gorm:"type:text;not null" json:"description"`
	Deadline     time.Time `gorm:"not null;index:idx_bets_status_deadline,priority:2" json:"deadline"`
	Status       Status    `gorm:"type:varchar(16);not null;default:active;index:idx_bets_status_deadline,priority:1" json:"status"`
	TargetUserID *string   `gorm:"type:varchar(64);index" json:"targetUserId,omitempty"`
	CreationCost int64     `gorm:"not null" json:"creationCost"`

	// TotalYes 与 TotalNo 是两边押注的冗余合计，由押注操作维护
	TotalYes int64 `gorm:"not null;default:0" json:"totalYes"`
	TotalNo  int64 `gorm:"not null;default:0" json:"totalNo"`

	CreatedAt time.Time `gorm:"index:idx_bets_chat_created,priority:2" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Bet) TableName() string {
	return "bets"
}

// Performer 返回需要完成挑战的人：self 是创建者，callout/dare 是目标用户
func (b *Bet) Performer() string {
	if b.BetType.HasTarget() && b.TargetUserID != nil {
		return *b.TargetUserID
	}
	return b.CreatorID
}

// Participant 是一笔押注，每个用户在每个下注上至多一笔，创建后不再修改
type Participant struct {
	ID        string    `gorm:"primarykey;type:varchar(36)" json:"id"`
	BetID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_bet_participant,priority:1" json:"betId"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_bet_participant,priority:2;index" json:"userId"`
	Side      Side      `gorm:"type:varchar(8);not null" json:"side"`
	Amount    int64     `gorm:"not null;check:amount > 0" json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 指定表名
func (Participant) TableName() string {
	return "bet_participants"
}

// Proof 是一条完成证据，媒体文件由外部服务上传，这里只保存地址
type Proof struct {
	ID           string    `gorm:"primarykey;type:varchar(36)" json:"id"`
	BetID        string    `gorm:"type:varchar(36);not null;index" json:"betId"`
	UserID       string    `gorm:"type:varchar(64);not null" json:"userId"`
	MediaType    MediaType `gorm:"type:varchar(8);not null" json:"mediaType"`
	MediaURL     string    `gorm:"type:text;not null" json:"mediaUrl"`
	MediaKey     string    `gorm:"type:varchar(255);not null" json:"mediaKey"`
	ThumbnailURL *string   `gorm:"type:text" json:"thumbnailUrl,omitempty"`
	Caption      *string   `gorm:"type:text" json:"caption,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TableName 指定表名
func (Proof) TableName() string {
	return "bet_proofs"
}

// Resolution 是下注的结算记录，每个下注恰好一条
type Resolution struct {
	BetID   string  `gorm:"primarykey;type:varchar(36)" json:"betId"`
	Outcome Outcome `gorm:"type:varchar(16);not null" json:"outcome"`

	// ResolvedBy 在系统自动结算时为空
	ResolvedBy       *string   `gorm:"type:varchar(64)" json:"resolvedBy,omitempty"`
	ResolvedBySystem bool      `gorm:"not null;default:false" json:"resolvedBySystem"`
	Notes            string    `gorm:"type:text" json:"notes,omitempty"`
	ResolvedAt       time.Time `gorm:"not null" json:"resolvedAt"`

	TotalPot  int64 `gorm:"not null" json:"totalPot"`
	TotalPaid int64 `gorm:"not null" json:"totalPaid"`
	Dust      int64 `gorm:"not null;default:0" json:"dust"`
}

// TableName 指定表名
func (Resolution) TableName() string {
	return "bet_resolutions"
}

// CreateInput 是创建下注的参数
type CreateInput struct {
	ChatID       string
	CreatorID    string
	BetType      BetType
	Description  string
	Deadline     time.Time
	TargetUserID *string
}

// ProofInput 是提交证据的参数，字段规则由validator检查
type ProofInput struct {
	BetID        string    `validate:"required"`
	UserID       string    `validate:"required"`
	MediaType    MediaType `validate:"required,oneof=photo video"`
	MediaURL     string    `validate:"required,url"`
	MediaKey     string    `validate:"required,max=255"`
	ThumbnailURL *string   `validate:"omitempty,url"`
	Caption      *string   `validate:"omitempty,max=500"`
}

// Pot 是奖池概况
type Pot struct {
	TotalYes     int64 `json:"totalYes"`
	TotalNo      int64 `json:"totalNo"`
	TotalPot     int64 `json:"totalPot"`
	Participants int   `json:"participants"`
}

// Details 是单个下注的完整视图
type Details struct {
	Bet          Bet           `json:"bet"`
	Participants []Participant `json:"participants"`
	Proofs       []Proof       `json:"proofs"`
	Resolution   *Resolution   `json:"resolution,omitempty"`
	Pot          Pot           `json:"pot"`
}
