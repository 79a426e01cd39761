package metadata

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// --- 通用读写 ---

// GetValue 读取指定键的值，键不存在时返回空字符串
func GetValue(db *gorm.DB, key string) (string, error) {
	var meta Metadata
	err := db.Where("key = ?", key).First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// SetValue 插入或更新指定键的值
func SetValue(db *gorm.DB, key, value string) error {
	meta := Metadata{
		Key:   key,
		Value: value,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
}

// --- 自动过期扫描的检查点 ---

// SweepStats 是自动过期扫描的累计记录
type SweepStats struct {
	LastSweepAt  *time.Time `json:"lastSweepAt,omitempty"`
	TotalExpired int64      `json:"totalExpired"`
}

// Recorder 把自动过期扫描的结果写入metadata表
type Recorder struct {
	db *gorm.DB
}

// NewRecorder 创建扫描记录器
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// RecordSweep 记录一次扫描的完成时间，并把本次过期数量累加到总数
func (r *Recorder) RecordSweep(ctx context.Context, at time.Time, expired int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total, err := getInt(tx, TotalBetsExpiredKey)
		if err != nil {
			return err
		}
		if err := SetValue(tx, LastExpirySweepAtKey, at.UTC().Format(time.RFC3339)); err != nil {
			return fmt.Errorf("无法写入元数据 '%s': %w", LastExpirySweepAtKey, err)
		}
		if expired == 0 {
			return nil
		}
		if err := SetValue(tx, TotalBetsExpiredKey, strconv.FormatInt(total+int64(expired), 10)); err != nil {
			return fmt.Errorf("无法写入元数据 '%s': %w", TotalBetsExpiredKey, err)
		}
		return nil
	})
}

// Stats 读取扫描的累计记录
func (r *Recorder) Stats(ctx context.Context) (SweepStats, error) {
	db := r.db.WithContext(ctx)
	var stats SweepStats
	total, err := getInt(db, TotalBetsExpiredKey)
	if err != nil {
		return stats, err
	}
	stats.TotalExpired = total

	raw, err := GetValue(db, LastExpirySweepAtKey)
	if err != nil {
		return stats, err
	}
	if raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return stats, fmt.Errorf("无法解析元数据 '%s' 的值: %w", LastExpirySweepAtKey, err)
		}
		stats.LastSweepAt = &t
	}
	return stats, nil
}

func getInt(db *gorm.DB, key string) (int64, error) {
	raw, err := GetValue(db, key)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("无法解析元数据 '%s' 的值: %w", key, err)
	}
	return n, nil
}
