// Package health 定期检查Redis，并在Redis重启或恢复后重建排行榜缓存。
package health

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/SlpAus/aura-wager-backend/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCheckInterval = 5 * time.Second
	pingTimeout          = 2 * time.Second
)

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// RunIDFunc 返回Redis实例的run_id，Redis重启后它会变化
type RunIDFunc func(ctx context.Context) (string, error)

// RedisRunID 从 INFO server 中提取run_id
func RedisRunID(rdb *redis.Client) RunIDFunc {
	return func(ctx context.Context) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		info, err := rdb.Info(ctx, "server").Result()
		if err != nil {
			return "", err
		}
		matches := runIDPattern.FindStringSubmatch(info)
		if len(matches) < 2 {
			return "", fmt.Errorf("无法在Redis INFO中找到run_id")
		}
		return matches[1], nil
	}
}

// Checker 驱动健康状态机，并把结果通过 report 通知给缓存的使用者
type Checker struct {
	runID    RunIDFunc
	rebuild  func(ctx context.Context) error
	report   func(healthy bool, runID string)
	interval time.Duration
	status   statusManager
}

// NewChecker 创建健康检查器。
// rebuild 从SQL重建缓存；report 接收最新的健康状态（例如 database.UpdateStatus）。
func NewChecker(runID RunIDFunc, rebuild func(ctx context.Context) error, report func(healthy bool, runID string), interval time.Duration) *Checker {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	if report == nil {
		report = func(bool, string) {}
	}
	return &Checker{runID: runID, rebuild: rebuild, report: report, interval: interval}
}

// State 返回当前的健康状态
func (c *Checker) State() State {
	return c.status.State()
}

// InitializeRunID 在启动时执行一次。Redis不可用时以降级状态启动，恢复后会触发重建
func (c *Checker) InitializeRunID(ctx context.Context) {
	runID, err := c.runID(ctx)
	if err != nil {
		logrus.WithError(err).Warn("无法获取初始Redis Run ID，以降级状态启动")
		c.status.setInitial(StateDegraded, "")
		c.report(false, "")
		return
	}
	c.status.setInitial(StateHealthy, runID)
	c.report(true, runID)
	logrus.Infof("获取初始Redis Run ID成功: %s", runID)
}

// PerformCheck 执行一次完整的健康检查和可能的重建
func (c *Checker) PerformCheck(ctx context.Context) {
	runID, err := c.runID(ctx)
	connected := err == nil
	if c.status.assess(connected, runID) {
		c.report(false, "")
		rebuildErr := c.rebuild(ctx)
		if rebuildErr != nil {
			logrus.WithError(rebuildErr).Error("健康检查: 排行榜重建失败")
		}
		after, err := c.runID(ctx)
		c.status.markRebuildComplete(rebuildErr == nil && err == nil, after)
	}
	healthy := c.status.State() == StateHealthy
	if healthy {
		c.report(true, runID)
	} else {
		c.report(false, "")
	}
}

// Run 定期执行健康检查，直到生命周期句柄被取消
func (c *Checker) Run(handle *lifecycle.Handle) {
	defer handle.Close()
	logrus.Info("Redis健康检查器已启动。")
	for {
		if err := handle.Sleep(c.interval); err != nil {
			logrus.Info("Redis健康检查器: 收到停机信号，已退出。")
			return
		}
		c.PerformCheck(handle.Ctx())
	}
}
