package metadata

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateDB 负责自动迁移metadata表结构
func MigrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&Metadata{}); err != nil {
		return fmt.Errorf("无法迁移metadata表: %w", err)
	}
	return nil
}
