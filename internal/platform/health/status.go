package health

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// State 定义了Redis缓存的健康状态
type State int

const (
	StateHealthy State = iota
	StateDegraded
	StateRebuilding
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "健康"
	case StateDegraded:
		return "降级"
	case StateRebuilding:
		return "重建中"
	}
	return "未知"
}

// statusManager 是Redis健康状态的状态机
type statusManager struct {
	mu             sync.RWMutex
	currentState   State
	lastKnownRunID string
}

func (sm *statusManager) State() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

func (sm *statusManager) setInitial(state State, runID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.currentState = state
	sm.lastKnownRunID = runID
}

// assess 根据一次检查的结果推进状态，返回是否需要重建缓存
func (sm *statusManager) assess(connected bool, newRunID string) (needsRebuild bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	switch sm.currentState {
	case StateHealthy:
		if !connected {
			sm.currentState = StateDegraded
			logrus.Warn("健康检查: Redis连接丢失，状态 -> [降级]")
		} else if sm.lastKnownRunID != "" && sm.lastKnownRunID != newRunID {
			sm.currentState = StateRebuilding
			needsRebuild = true
			logrus.Warnf("健康检查: 检测到Redis重启 (run_id: %s -> %s)，状态 -> [重建中]", sm.lastKnownRunID, newRunID)
		}
	case StateDegraded:
		if connected {
			// 降级期间的写入都被跳过了，恢复后总是重建一次
			sm.currentState = StateRebuilding
			needsRebuild = true
			logrus.Info("健康检查: Redis已恢复，状态 -> [重建中]")
		}
	case StateRebuilding:
		if !connected {
			sm.currentState = StateDegraded
			logrus.Warn("健康检查: 重建期间Redis连接再次丢失，状态 -> [降级]")
		} else {
			needsRebuild = true
		}
	}

	if connected {
		sm.lastKnownRunID = newRunID
	}
	return needsRebuild
}

// markRebuildComplete 在一次重建尝试后调用。重建期间run_id变化说明Redis又重启了，重建无效
func (sm *statusManager) markRebuildComplete(success bool, runIDAfterRebuild string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.currentState != StateRebuilding {
		return
	}
	if success && sm.lastKnownRunID != runIDAfterRebuild {
		logrus.Warnf("健康检查: 重建期间检测到Redis再次重启 (run_id: %s -> %s)，保持[重建中]", sm.lastKnownRunID, runIDAfterRebuild)
		sm.lastKnownRunID = runIDAfterRebuild
		return
	}
	if success {
		sm.currentState = StateHealthy
		logrus.Info("健康检查: 排行榜重建成功，状态 -> [健康]")
	} else {
		logrus.Warn("健康检查: 排行榜重建失败，保持[重建中]以待重试")
	}
}
