package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"rebelodds/internal/auth"
	"rebelodds/internal/config"
	cronrunner "rebelodds/internal/cron"
	"rebelodds/internal/db"
	"rebelodds/internal/engine"
	"rebelodds/internal/handler"
	"rebelodds/internal/logger"
	gormrepository "rebelodds/internal/repository/gorm"
	"rebelodds/internal/service"
	"rebelodds/internal/stream"

	_ "rebelodds/docs"
)

func main() {
	cfgPath := os.Getenv("RO_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("RO_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	gate := engine.NewGate()

	var hub *stream.Hub
	if cfg.Stream.Enabled {
		hub = stream.NewHub(logger, cfg.Stream.BufferSize)
	}

	executor := &engine.TradeExecutor{
		Repo:          store,
		Gate:          gate,
		Logger:        logger,
		StartingGrant: cfg.Market.StartingGrantTokens,
	}
	if hub != nil {
		executor.Stream = hub
	}
	resolver := &engine.ResolutionEngine{
		Repo:          store,
		Gate:          gate,
		Logger:        logger,
		StartingGrant: cfg.Market.StartingGrantTokens,
	}
	contractSvc := &service.ContractService{
		Repo:              store,
		DefaultFeeBps:     cfg.Market.DefaultFeeBps,
		DefaultSeedTokens: cfg.Market.DefaultSeedTokens,
		RecentTradesLimit: cfg.Market.RecentTradesLimit,
	}
	portfolioSvc := &service.PortfolioService{
		Repo:          store,
		StartingGrant: cfg.Market.StartingGrantTokens,
	}
	snapshotSvc := &service.SnapshotService{
		Portfolios:    portfolioSvc,
		Logger:        logger,
		RetentionDays: cfg.Snapshot.RetentionDays,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(auth.Middleware(cfg.Auth))

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm}
	healthHandler.Register(router)
	tradeHandler := &handler.TradeHandler{Executor: executor, Logger: logger}
	tradeHandler.Register(router)
	contractHandler := &handler.ContractHandler{
		Contracts: contractSvc,
		Resolver:  resolver,
		Logger:    logger,
	}
	contractHandler.Register(router)
	portfolioHandler := &handler.PortfolioHandler{Portfolios: portfolioSvc, Logger: logger}
	portfolioHandler.Register(router)
	if hub != nil {
		hub.Register(router)
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.PortfolioSnapshot, func(ctx context.Context) {
			if _, err := snapshotSvc.SnapshotAll(ctx); err != nil {
				logger.Warn("portfolio snapshot run failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register portfolio snapshot failed", zap.Error(err))
		}
		_, err = cronRunner.Add(cfg.Cron.SnapshotPrune, func(ctx context.Context) {
			if _, err := snapshotSvc.Prune(ctx); err != nil {
				logger.Warn("snapshot prune run failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register snapshot prune failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
