package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/SlpAus/aura-wager-backend/internal/platform/config"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// newGormLogger 返回GORM日志配置，生产环境保持静默
func newGormLogger(level logger.LogLevel) logger.Interface {
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             0,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
}

// Open 根据配置打开一个数据库连接，不修改全局变量
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.Postgres.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(sqliteDSN(cfg.Sqlite.Path))
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if cfg.Driver != "postgres" {
		// SQLite 只允许一个写者，限制为单连接以串行化所有事务
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("无法获取底层数据库连接: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// sqliteDSN 为文件路径附加外键和忙等待参数
func sqliteDSN(path string) string {
	if path == "" {
		path = "aura.db"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}

// InitDB 初始化全局数据库连接，失败时直接panic
func InitDB(cfg config.DatabaseConfig) {
	db, err := Open(cfg)
	if err != nil {
		panic(err)
	}
	DB = db
	logrus.WithField("driver", cfg.Driver).Info("数据库连接成功！")
}

// IsRetryableError 判断一个数据库错误是否值得重试（如SQLite的锁冲突）
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "deadlock detected")
}

// OpenMemory 打开一个进程内的SQLite内存数据库，供测试和本地试跑使用
func OpenMemory() (*gorm.DB, error) {
	return Open(config.DatabaseConfig{
		Driver: "sqlite",
		Sqlite: config.SqliteConfig{Path: ":memory:"},
	})
}
