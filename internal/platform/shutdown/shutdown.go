package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/aura-wager-backend/pkg/lifecycle"
	"github.com/sirupsen/logrus"
)

const (
	httpTimeout     = 15 * time.Second
	gracefulTimeout = 30 * time.Second
	forcefulTimeout = 1 * time.Second
	finalTimeout    = 10 * time.Second
)

// FinalStep 是所有后台服务退出后执行的收尾操作，例如关闭数据库连接
type FinalStep struct {
	Name string
	Run  func(ctx context.Context) error
}

// Coordinator 负责编排应用程序的优雅停机流程。
// 它接收外部创建的生命周期管理器，并使用它们来协调停机。
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager
	finalSteps      []FinalStep
}

// NewCoordinator 创建一个新的停机协调器。
func NewCoordinator(gracefulMgr, forcefulMgr *lifecycle.Manager) *Coordinator {
	return &Coordinator{
		GracefulManager: gracefulMgr,
		ForcefulManager: forcefulMgr,
	}
}

// AddFinalStep 注册一个收尾操作，按注册顺序执行
func (c *Coordinator) AddFinalStep(name string, run func(ctx context.Context) error) {
	c.finalSteps = append(c.finalSteps, FinalStep{Name: name, Run: run})
}

// ListenForSignalsAndShutdown 启动信号监听并阻塞，直到停机流程完成。
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logrus.WithField("signal", sig.String()).Info("收到关闭信号，开始优雅停机...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), httpTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Gin服务器关闭错误")
	} else {
		logrus.Info("Gin服务器已关闭。")
	}

	c.Shutdown()
}

// Shutdown 执行两阶段停机和收尾操作，不处理HTTP服务器
func (c *Coordinator) Shutdown() {
	// --- 阶段一: 优雅停机 ---
	logrus.Infof("第一阶段停机：等待最多 %v 以完成任务...", gracefulTimeout)
	c.GracefulManager.Shutdown()

	remaining := c.GracefulManager.WaitWithTimeout(gracefulTimeout)
	if len(remaining) == 0 {
		logrus.Info("所有服务已在第一阶段优雅关闭。")
	} else {
		// --- 阶段二: 强制停机 ---
		logrus.WithField("services", remaining).Warnf("第一阶段超时。发送第二停机信号，强制退出 (最多等待 %v)...", forcefulTimeout)
		c.ForcefulManager.Shutdown()
		if left := c.ForcefulManager.WaitWithTimeout(forcefulTimeout); len(left) > 0 {
			logrus.WithField("services", left).Error("强制停机后仍有服务未退出")
		}
	}

	// --- 最终步骤 ---
	ctx, cancel := context.WithTimeout(context.Background(), finalTimeout)
	defer cancel()
	for _, step := range c.finalSteps {
		if err := step.Run(ctx); err != nil {
			logrus.WithError(err).WithField("step", step.Name).Error("停机收尾失败")
		} else {
			logrus.WithField("step", step.Name).Info("停机收尾完成")
		}
	}

	logrus.Info("优雅停机完成。")
}
