// Package leaderboard 在Redis中维护信誉分排行榜。
// SQL中的users表是权威数据，排行榜只是可随时重建的热缓存。
package leaderboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlpAus/aura-wager-backend/internal/user"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Entry 是排行榜中的一项
type Entry struct {
	Rank      int64  `json:"rank"`
	UserID    string `json:"userId"`
	VibeScore int    `json:"vibeScore"`
}

// Board 封装了对排行榜Sorted Set的读写
type Board struct {
	rdb     *redis.Client
	healthy func() bool
}

// New 创建排行榜。healthy 为 nil 时认为Redis总是可用
func New(rdb *redis.Client, healthy func() bool) *Board {
	if healthy == nil {
		healthy = func() bool { return true }
	}
	return &Board{rdb: rdb, healthy: healthy}
}

// Update 写入单个用户的最新信誉分
func (b *Board) Update(ctx context.Context, userID string, score int) error {
	return b.rdb.ZAdd(ctx, RankingKey, redis.Z{Score: float64(score), Member: userID}).Err()
}

// Publish 是 Update 的尽力而为版本：Redis不可用时跳过，失败只记录日志。
// 缓存会在Redis恢复后由健康检查器整体重建。
func (b *Board) Publish(ctx context.Context, userID string, score int) {
	if !b.healthy() {
		return
	}
	if err := b.Update(ctx, userID, score); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("排行榜: 写入信誉分失败")
	}
}

// Top 返回分数最高的前n名
func (b *Board) Top(ctx context.Context, n int64) ([]Entry, error) {
	if n <= 0 {
		return []Entry{}, nil
	}
	zs, err := b.rdb.ZRevRangeWithScores(ctx, RankingKey, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("无法读取排行榜: %w", err)
	}
	entries := make([]Entry, 0, len(zs))
	for i, z := range zs {
		member, _ := z.Member.(string)
		entries = append(entries, Entry{
			Rank:      int64(i) + 1,
			UserID:    member,
			VibeScore: int(z.Score),
		})
	}
	return entries, nil
}

// Rank 返回用户的名次（从1开始），用户不在榜上时 found 为 false
func (b *Board) Rank(ctx context.Context, userID string) (entry Entry, found bool, err error) {
	pipe := b.rdb.Pipeline()
	rankCmd := pipe.ZRevRank(ctx, RankingKey, userID)
	scoreCmd := pipe.ZScore(ctx, RankingKey, userID)
	_, err = pipe.Exec(ctx)
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("无法读取用户 %s 的排名: %w", userID, err)
	}
	return Entry{
		Rank:      rankCmd.Val() + 1,
		UserID:    userID,
		VibeScore: int(scoreCmd.Val()),
	}, true, nil
}

// Warmup 用SQL中的全部信誉分重建排行榜
func (b *Board) Warmup(ctx context.Context, users []user.User) error {
	pipe := b.rdb.TxPipeline()
	// 先清空旧的缓存，确保数据一致性
	pipe.Del(ctx, RankingKey)
	if len(users) > 0 {
		members := make([]redis.Z, len(users))
		for i, u := range users {
			members[i] = redis.Z{Score: float64(u.VibeScore), Member: u.ID}
		}
		pipe.ZAdd(ctx, RankingKey, members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("预热排行榜到Redis失败: %w", err)
	}
	logrus.Infof("成功预热 %d 个用户的信誉分到Redis。", len(users))
	return nil
}
