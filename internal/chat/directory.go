// Package chat 提供聊天室成员关系的最小查询实现。
// 成员的加入与投票审批由外部的聊天服务负责，这里只保存其结果。
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Member 表示某个用户属于某个聊天室
type Member struct {
	ChatID   string    `gorm:"primarykey;type:varchar(64)"`
	UserID   string    `gorm:"primarykey;type:varchar(64);index"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (Member) TableName() string {
	return "chat_members"
}

// Directory 基于chat_members表回答成员关系查询
type Directory struct {
	db *gorm.DB
}

// NewDirectory 创建成员目录
func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// MigrateDB 负责自动迁移chat_members表结构
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&Member{}); err != nil {
		return fmt.Errorf("无法迁移chat_members表: %w", err)
	}
	return nil
}

// IsMember 检查用户是否是聊天室成员
func (d *Directory) IsMember(ctx context.Context, userID, chatID string) (bool, error) {
	if userID == "" || chatID == "" {
		return false, nil
	}
	var m Member
	err := d.db.WithContext(ctx).Where("chat_id = ? AND user_id = ?", chatID, userID).Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("无法查询聊天室 %s 的成员关系: %w", chatID, err)
	}
	return true, nil
}

// AddMember 同步外部聊天服务的入群结果，重复添加是无操作
func (d *Directory) AddMember(ctx context.Context, chatID, userID string) error {
	m := Member{ChatID: chatID, UserID: userID}
	if err := d.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
		return fmt.Errorf("无法添加聊天室成员: %w", err)
	}
	return nil
}

// RemoveMember 同步外部聊天服务的退群结果
func (d *Directory) RemoveMember(ctx context.Context, chatID, userID string) error {
	err := d.db.WithContext(ctx).Where("chat_id = ? AND user_id = ?", chatID, userID).Delete(&Member{}).Error
	if err != nil {
		return fmt.Errorf("无法移除聊天室成员: %w", err)
	}
	return nil
}
