package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"signalhub-backend/internal/config"
	"signalhub-backend/internal/coordinator"
	wsHandler "signalhub-backend/internal/handler/ws"
	"signalhub-backend/internal/middleware"
	redisRepo "signalhub-backend/internal/repository/redis"
	"signalhub-backend/pkg/constants"
	"signalhub-backend/pkg/database"
	"signalhub-backend/pkg/jwt"
	"signalhub-backend/pkg/logger"
)

func main() {
	// 1. Logger
	logger.InitDefault()
	defer logger.Sync()

	// 2. Configuration
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 characters")
	}

	jwtManager := jwt.NewManager(cfg.JWTSecret, constants.AccessTokenExpiry)

	// 3. Redis collaborators (best-effort; the coordinator core runs without them)
	var history coordinator.HistoryRecorder
	var mirror coordinator.PresenceMirror

	redisClient, err := database.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Warn("Redis unavailable, call history and presence mirror disabled",
			zap.String("addr", cfg.RedisAddr),
			zap.Error(err))
	} else {
		logger.Info("connected to Redis", zap.String("addr", cfg.RedisAddr))
		defer redisClient.Close()
		history = redisRepo.NewCallHistoryRepository(redisClient)
		mirror = redisRepo.NewPresenceRepository(redisClient)
	}

	// 4. Gateway and coordinator
	gateway := wsHandler.NewGateway(jwtManager, cfg.AllowedOrigins, cfg.MaxConnections)
	coord := coordinator.New(coordinator.Config{
		RingTimeout: cfg.RingTimeout,
		RoomMaxIdle: cfg.RoomMaxIdle,
	}, gateway, history, mirror)
	gateway.SetCoordinator(coord)

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go coord.Run(loopCtx)

	// 5. HTTP server
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.RequestLogger(), middleware.Prometheus())

	router.GET("/ws", gateway.ServeWS)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.Info("signaling service listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// 6. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	stopLoop()
}
