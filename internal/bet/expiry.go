package bet

import (
	"context"
	"time"

	"github.com/SlpAus/aura-wager-backend/internal/platform/database"
	"github.com/SlpAus/aura-wager-backend/pkg/lifecycle"
	"github.com/sirupsen/logrus"
)

// SweepRecorder 保存每次扫描的结果，例如写入metadata表
type SweepRecorder interface {
	RecordSweep(ctx context.Context, at time.Time, expired int) error
}

// Sweeper 是定期执行 AutoExpireBets 的后台任务
type Sweeper struct {
	svc      *Service
	recorder SweepRecorder
	interval time.Duration
}

// NewSweeper 创建自动过期扫描器，recorder 可以为 nil
func NewSweeper(svc *Service, recorder SweepRecorder, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{svc: svc, recorder: recorder, interval: interval}
}

// SweepOnce 执行一次扫描并记录结果
func (sw *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	expired, err := sw.svc.AutoExpireBets(ctx)
	if err != nil {
		return expired, err
	}
	if sw.recorder != nil {
		if err := sw.recorder.RecordSweep(ctx, sw.svc.now(), expired); err != nil {
			logrus.WithError(err).Warn("自动过期: 无法记录扫描结果")
		}
	}
	return expired, nil
}

// Run 是扫描器的主循环，直到生命周期句柄被取消
func (sw *Sweeper) Run(handle *lifecycle.Handle) {
	defer handle.Close()
	logrus.WithField("interval", sw.interval).Info("自动过期扫描器已启动。")

	for {
		if _, err := sw.SweepOnce(handle.Ctx()); err != nil {
			if database.IsRetryableError(err) {
				logrus.WithError(err).Debug("自动过期: 数据库繁忙，等待下一轮")
			} else if handle.Err() == nil {
				logrus.WithError(err).Error("自动过期: 扫描失败")
			}
		}
		if err := handle.Sleep(sw.interval); err != nil {
			logrus.Info("自动过期扫描器: 收到停机信号，已退出。")
			return
		}
	}
}
