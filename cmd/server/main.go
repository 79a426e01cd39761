package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/SlpAus/aura-wager-backend/api"
	"github.com/SlpAus/aura-wager-backend/internal/bet"
	"github.com/SlpAus/aura-wager-backend/internal/chat"
	"github.com/SlpAus/aura-wager-backend/internal/leaderboard"
	"github.com/SlpAus/aura-wager-backend/internal/ledger"
	"github.com/SlpAus/aura-wager-backend/internal/platform/config"
	"github.com/SlpAus/aura-wager-backend/internal/platform/database"
	"github.com/SlpAus/aura-wager-backend/internal/platform/health"
	"github.com/SlpAus/aura-wager-backend/internal/platform/logging"
	"github.com/SlpAus/aura-wager-backend/internal/platform/metadata"
	"github.com/SlpAus/aura-wager-backend/internal/platform/shutdown"
	"github.com/SlpAus/aura-wager-backend/internal/platform/startup"
	"github.com/SlpAus/aura-wager-backend/internal/user"
	"github.com/SlpAus/aura-wager-backend/pkg/lifecycle"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("加载配置失败")
	}
	logging.Setup(cfg.Log.Level)

	ctx := context.Background()
	database.InitDB(cfg.Database)
	database.InitRedis(ctx, cfg.Database.Redis)

	// 1. 执行应用启动初始化流程
	if err := startup.InitializeApplication(database.DB); err != nil {
		logrus.WithError(err).Fatal("应用初始化失败，无法启动")
	}

	dustPolicy, err := bet.ParseDustPolicy(cfg.Wager.DustPolicy)
	if err != nil {
		logrus.WithError(err).Fatal("配置错误")
	}

	// 2. 组装各模块
	users := user.NewRepository(database.DB, cfg.Ledger.InitialGrant)
	board := leaderboard.New(database.RDB, database.IsRedisHealthy)
	ledgerSvc := ledger.NewService(database.DB, users, ledger.Options{
		DailyBonus:         cfg.Ledger.DailyBonus,
		DailyBonusInterval: cfg.Ledger.DailyBonusInterval,
	}, board)
	directory := chat.NewDirectory(database.DB)
	betSvc := bet.NewService(database.DB, ledgerSvc, directory, bet.Options{
		CreationCost:     cfg.Wager.CreationCost,
		MinStake:         cfg.Wager.MinStake,
		DustPolicy:       dustPolicy,
		MinDeadlineLead:  cfg.Wager.MinDeadlineLead,
		ProofGracePeriod: cfg.Wager.ProofGracePeriod,
	})
	recorder := metadata.NewRecorder(database.DB)

	// 3. 阻塞式获取初始Run ID并预热排行榜
	rebuild := func(ctx context.Context) error {
		return startup.RebuildCache(ctx, users, board)
	}
	checker := health.NewChecker(health.RedisRunID(database.RDB), rebuild, database.UpdateStatus, 0)
	checker.InitializeRunID(ctx)
	if database.IsRedisHealthy() {
		if err := rebuild(ctx); err != nil {
			logrus.WithError(err).Warn("排行榜预热失败，将由健康检查器重试")
			database.UpdateStatus(false, "")
		}
	}

	// 4. 启动后台服务
	gracefulMgr := lifecycle.NewManager("graceful")
	forcefulMgr := lifecycle.NewManager("forceful")

	sweeperHandle, err := gracefulMgr.NewServiceHandle("expiry-sweeper")
	if err != nil {
		logrus.WithError(err).Fatal("无法注册自动过期扫描器")
	}
	go bet.NewSweeper(betSvc, recorder, cfg.Wager.ExpirySweepInterval).Run(sweeperHandle)

	healthHandle, err := gracefulMgr.NewServiceHandle("redis-health")
	if err != nil {
		logrus.WithError(err).Fatal("无法注册Redis健康检查器")
	}
	go checker.Run(healthHandle)

	// 5. HTTP服务
	if cfg.Server.InternalToken == "" {
		logrus.Warn("未配置 server.internalToken，内部成员同步接口已禁用")
	}
	router := api.NewRouter(cfg.Server, api.Handlers{
		Users:       users,
		Bets:        bet.NewHandler(betSvc),
		Ledger:      ledger.NewHandler(ledgerSvc),
		Leaderboard: leaderboard.NewHandler(board),
		Chat:        chat.NewHandler(directory),
		Sweeps:      recorder,
	})
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	coordinator := shutdown.NewCoordinator(gracefulMgr, forcefulMgr)
	coordinator.AddFinalStep("redis", func(context.Context) error {
		return database.RDB.Close()
	})
	coordinator.AddFinalStep("database", func(context.Context) error {
		sqlDB, err := database.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	go func() {
		logrus.Infof("服务器已准备就绪，开始监听 %s", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("服务器启动失败")
		}
	}()

	coordinator.ListenForSignalsAndShutdown(server)
}
