// Package startup 负责应用启动时的数据库迁移，以及排行榜缓存的预热与热重建。
package startup

import (
	"context"
	"fmt"

	"github.com/SlpAus/aura-wager-backend/internal/bet"
	"github.com/SlpAus/aura-wager-backend/internal/chat"
	"github.com/SlpAus/aura-wager-backend/internal/leaderboard"
	"github.com/SlpAus/aura-wager-backend/internal/ledger"
	"github.com/SlpAus/aura-wager-backend/internal/platform/metadata"
	"github.com/SlpAus/aura-wager-backend/internal/user"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InitializeApplication 按依赖顺序迁移所有模块的表结构
func InitializeApplication(db *gorm.DB) error {
	logrus.Info("开始应用初始化...")

	steps := []struct {
		name    string
		migrate func(*gorm.DB) error
	}{
		{"metadata", metadata.MigrateDB},
		{"user", user.MigrateDB},
		{"chat", chat.MigrateDB},
		{"ledger", ledger.MigrateDB},
		{"bet", bet.MigrateDB},
	}
	for _, step := range steps {
		if err := step.migrate(db); err != nil {
			return fmt.Errorf("初始化模块 %s 失败: %w", step.name, err)
		}
		logrus.WithField("module", step.name).Debug("数据库表迁移成功")
	}

	logrus.Info("应用初始化完成！")
	return nil
}

// RebuildCache 用users表中的信誉分重建排行榜，启动预热和健康检查的热重建都使用它
func RebuildCache(ctx context.Context, users *user.Repository, board *leaderboard.Board) error {
	logrus.Info("开始重建排行榜缓存...")
	scores, err := users.ListScores(ctx)
	if err != nil {
		return err
	}
	if err := board.Warmup(ctx, scores); err != nil {
		return err
	}
	return nil
}
