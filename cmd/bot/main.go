package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v4"

	"whitelistbot/internal/auth"
	"whitelistbot/internal/bot"
	"whitelistbot/internal/config"
	"whitelistbot/internal/httpmiddleware"
	"whitelistbot/internal/session"
	"whitelistbot/internal/store"
	"whitelistbot/internal/student"
)

func main() {
	cfg := config.Load()

	log := logrus.New()
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := run(cfg, log); err != nil {
		log.Fatalf("bot failed: %v", err)
	}
}

func run(cfg config.App, log *logrus.Logger) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var sessions session.Store
	if cfg.SessionBackend == "redis" {
		sessions = session.NewRedisStore(redisClient.Client, "whitelist:session", cfg.SessionTTL)
		log.Info("sessions stored in redis")
	} else {
		sessions = session.NewMemory()
		log.Info("sessions stored in memory")
	}

	students := student.NewService(student.NewRepository(db.Client))

	tb, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.BotToken,
		Poller: &telebot.LongPoller{Timeout: cfg.PollTimeout},
		OnError: func(err error, c telebot.Context) {
			log.WithError(err).Error("telegram update error")
		},
	})
	if err != nil {
		return err
	}

	admin := bot.New(cfg, tb, sessions, students, log)
	admin.Attach(tb)

	go func() {
		log.Info("starting telegram poller")
		tb.Start()
	}()

	srv := opsServer(cfg, log, db, redisClient, students)
	go func() {
		log.Infof("ops server listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ops server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	tb.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("ops server forced shutdown: %v", err)
	}
	log.Info("stopped")
	return nil
}

// opsServer exposes health, metrics, and a read-only whitelist API
// guarded by short-lived bearer tokens.
func opsServer(cfg config.App, log *logrus.Logger, db *store.DB, redisClient *store.Redis, students *student.Service) *http.Server {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		redisHealthy := cfg.SessionBackend != "redis" || redisClient.Healthy(c.Request.Context())
		status := http.StatusOK
		if !dbHealthy || !redisHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"db": dbHealthy, "redis": redisHealthy})
	})

	r.POST("/v1/auth/token", func(c *gin.Context) {
		var req struct {
			Code string `json:"code" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Code != cfg.AuthCode {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
			return
		}
		token, exp, err := auth.Issue(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": token, "expires_at": exp.Unix()})
	})

	authGroup := r.Group("/v1", auth.AdminAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	authGroup.GET("/students", func(c *gin.Context) {
		recs, err := students.List(c.Request.Context())
		if err != nil {
			log.WithError(err).Error("ops list students failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"students": recs, "total": len(recs)})
	})

	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
