package database

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// redisStatus 保存最近一次健康检查得出的Redis可用性，供缓存的使用者快速判断
type redisStatus struct {
	mu      sync.RWMutex
	healthy bool
	runID   string
}

var globalStatus = &redisStatus{healthy: true}

// IsRedisHealthy 返回当前Redis缓存是否可用
func IsRedisHealthy() bool {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.healthy
}

// RedisRunID 返回最近一次健康时记录的Redis run_id
func RedisRunID() string {
	globalStatus.mu.RLock()
	defer globalStatus.mu.RUnlock()
	return globalStatus.runID
}

// UpdateStatus 由健康检查器调用，线程安全地更新Redis可用性
func UpdateStatus(healthy bool, runID string) {
	globalStatus.mu.Lock()
	defer globalStatus.mu.Unlock()

	if globalStatus.healthy != healthy {
		globalStatus.healthy = healthy
		if healthy {
			logrus.Info("健康检查: Redis服务状态已更新为 [可用]")
		} else {
			logrus.Warn("健康检查警告: Redis服务状态已更新为 [不可用]")
		}
	}
	if healthy {
		globalStatus.runID = runID
	}
}
