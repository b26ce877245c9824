package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/matchd/account"
	apirest "github.com/kasuganosora/matchd/api/rest"
	"github.com/kasuganosora/matchd/api/sse"
	"github.com/kasuganosora/matchd/audit"
	"github.com/kasuganosora/matchd/cache"
	"github.com/kasuganosora/matchd/channel"
	"github.com/kasuganosora/matchd/config"
	dbadapter "github.com/kasuganosora/matchd/db"
	"github.com/kasuganosora/matchd/match"
	mw "github.com/kasuganosora/matchd/middleware"
	"github.com/kasuganosora/matchd/model"
	"github.com/kasuganosora/matchd/notify"
	"github.com/kasuganosora/matchd/scheduler"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Security.JWTSecret == "" {
		logger.Fatal("security.jwt_secret is not set")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized", zap.String("mode", cfg.Database.Mode))

	// ---- Audit ----
	auditSvc := audit.New(db, logger)
	defer auditSvc.Stop(context.Background())

	// ---- PubSub ----
	pubsub, err := cache.NewPubSub(cache.Config{
		RedisAddr:      cfg.Cache.RedisAddr,
		RedisPassword:  cfg.Cache.RedisPassword,
		RedisDB:        cfg.Cache.RedisDB,
		LocalPubSubBuf: cfg.Cache.LocalPubSubBuf,
	})
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("PubSub initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	// ---- Matching engine ----
	notifier := notify.NewDispatcher(
		notify.NewPubSubNotifier(pubsub),
		sched,
		cfg.Matching.NotifyTimeout,
		cfg.Matching.NotifyRetryDelay,
		logger,
	)
	engine := match.NewEngine(db, account.NewStore(), channel.NewStore(), notifier, cfg.Matching, logger)

	sched.AddTicker("refresh_match_gauges", time.Minute, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := engine.RefreshGauges(ctx); err != nil {
			logger.Warn("refresh match gauges failed", zap.Error(err))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst, mw.KeyByIP))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	metricsAllow, err := mw.IPWhitelist(cfg.Server.MetricsAllow)
	if err != nil {
		log.Fatalf("server.metrics_allow: %v", err)
	}
	r.GET("/metrics", metricsAllow, gin.WrapH(promhttp.Handler()))

	auth := mw.Auth(cfg.Security, apirest.AccountExists(db), logger)

	// ---- REST API routes ----
	api := r.Group("/api", auth,
		mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst, mw.KeyByAccount))
	apirest.NewMatchHandler(db, engine, auditSvc, logger).Register(api)

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, 0, logger)
	r.GET("/sse", auth, sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info("Server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	notifier.Wait()
}
