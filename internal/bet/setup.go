package bet

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateDB 负责自动迁移下注相关的表结构
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&Bet{}, &Participant{}, &Proof{}, &Resolution{}); err != nil {
		return fmt.Errorf("无法迁移下注相关表: %w", err)
	}
	return nil
}
