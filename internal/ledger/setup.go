package ledger

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateDB 负责自动迁移aura_transactions表结构
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&Transaction{}); err != nil {
		return fmt.Errorf("无法迁移aura_transactions表: %w", err)
	}
	return nil
}
