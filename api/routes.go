package api

import (
	"net/http"
	"time"

	"github.com/SlpAus/aura-wager-backend/internal/bet"
	"github.com/SlpAus/aura-wager-backend/internal/chat"
	"github.com/SlpAus/aura-wager-backend/internal/leaderboard"
	"github.com/SlpAus/aura-wager-backend/internal/ledger"
	"github.com/SlpAus/aura-wager-backend/internal/platform/apperr"
	"github.com/SlpAus/aura-wager-backend/internal/platform/config"
	"github.com/SlpAus/aura-wager-backend/internal/platform/metadata"
	"github.com/SlpAus/aura-wager-backend/internal/user"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers 汇集了各模块的HTTP处理器
type Handlers struct {
	Users       *user.Repository
	Bets        *bet.Handler
	Ledger      *ledger.Handler
	Leaderboard *leaderboard.Handler
	Chat        *chat.Handler
	Sweeps      *metadata.Recorder
}

// NewRouter 创建gin引擎并注册中间件和全部路由
func NewRouter(cfg config.ServerConfig, h Handlers) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", user.HeaderName, InternalTokenHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	SetupRoutes(r, h, cfg.InternalToken)
	return r
}

// SetupRoutes 注册项目的所有API路由，internalToken 保护 /api/internal 下的路由
func SetupRoutes(router *gin.Engine, h Handlers, internalToken string) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// 排行榜是公开的
	api.GET("/leaderboard", h.Leaderboard.GetTop)
	api.GET("/leaderboard/:id", h.Leaderboard.GetRank)

	// 成员同步由外部聊天服务调用，需要共享密钥
	internal := api.Group("/internal", InternalTokenMiddleware(internalToken))
	{
		internal.PUT("/chats/:chatId/members/:userId", h.Chat.AddMember)
		internal.DELETE("/chats/:chatId/members/:userId", h.Chat.RemoveMember)
		internal.GET("/expiry", func(c *gin.Context) {
			stats, err := h.Sweeps.Stats(c.Request.Context())
			if err != nil {
				apperr.Respond(c, apperr.Internal("无法读取自动过期记录", err))
				return
			}
			c.JSON(http.StatusOK, stats)
		})
	}

	authed := api.Group("", user.LoadUserMiddleware(), user.EnsureUserMiddleware(h.Users))
	{
		// 钱包相关的路由 /api/users/:id
		users := authed.Group("/users/:id")
		{
			users.POST("/login", h.Ledger.Login)
			users.GET("/aura", h.Ledger.GetStats)
			users.GET("/aura/transactions", h.Ledger.GetHistory)
			users.GET("/aura/audit", h.Ledger.GetAudit)
			users.GET("/bets", h.Bets.ListUserBets)
		}

		// 聊天室内的下注 /api/chats/:chatId/bets
		chats := authed.Group("/chats/:chatId")
		{
			chats.POST("/bets", h.Bets.CreateBet)
			chats.GET("/bets", h.Bets.ListChatBets)
		}

		// 单个下注 /api/bets/:id
		bets := authed.Group("/bets/:id")
		{
			bets.GET("", h.Bets.GetBet)
			bets.POST("/stakes", h.Bets.PlaceStake)
			bets.POST("/proofs", h.Bets.SubmitProof)
			bets.GET("/proofs", h.Bets.ListProofs)
			bets.DELETE("/proofs/:proofId", h.Bets.DeleteProof)
			bets.POST("/resolve", h.Bets.Resolve)
		}
	}
}
