package database

import (
	"context"
	"fmt"

	"github.com/SlpAus/aura-wager-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RDB 是一个全局的Redis客户端实例，供项目其他部分使用
var RDB *redis.Client

// NewRedis 创建Redis客户端并用Ping测试连接
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("无法连接到Redis: %w", err)
	}
	return client, nil
}

// InitRedis 初始化全局Redis连接。
// Redis只承载可重建的缓存，连接失败时只记录警告并标记为不可用，而不是终止启动
func InitRedis(ctx context.Context, cfg config.RedisConfig) {
	client, err := NewRedis(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Warn("Redis 不可用，排行榜缓存将在恢复后重建")
		RDB = redis.NewClient(&redis.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		UpdateStatus(false, "")
		return
	}
	RDB = client
	logrus.Info("Redis 连接成功！")
}
