package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"creddit/internal/config"
	"creddit/internal/db"
	"creddit/internal/handlers"
	"creddit/internal/repository"
	"creddit/internal/router"
	"creddit/internal/services"
	"creddit/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	recount := flag.Uint("recount", 0, "rebuild the points of the given post from its votes and exit")
	flag.Parse()

	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	setupLogger(log, cfg)

	// Initialize Database
	gdb, err := db.Open(cfg.DatabaseDriver, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatalf("Failed to get database handle: %v", err)
	}
	defer sqlDB.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := services.NewMetrics(reg)

	cache, err := utils.NewCache[string](500)
	if err != nil {
		log.Fatalf("Failed to create LRU cache: %v", err)
	}

	users := repository.NewUserRepo(gdb)
	posts := repository.NewPostRepo(gdb)
	votes := repository.NewVoteRepo(gdb)

	ledger := services.NewLedger(votes, cfg.StorageTimeout, metrics, log)
	if *recount != 0 {
		points, err := ledger.Recount(context.Background(), *recount)
		if err != nil {
			log.WithError(err).Fatalf("Recount of post %d failed", *recount)
		}
		log.Infof("Post %d recounted: %d points", *recount, points)
		return
	}

	mail := services.NewMailService(cfg.SMTP, log, metrics)
	identity := services.NewIdentity(
		users,
		services.NewRedisSessionStore(rdb, cfg.SessionTTL),
		services.NewRedisResetTokens(rdb, cfg.ResetTokenTTL),
		services.NewBcryptHasher(0),
		mail,
		cfg.ClientURL,
		cfg.StorageTimeout,
		log,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.New(router.Options{
		SessionName:   cfg.SessionName,
		SessionSecret: cfg.SessionSecret,
		SessionTTL:    cfg.SessionTTL,
		Secure:        cfg.IsProduction(),
	}, router.Deps{
		Identity: identity,
		Posts:    services.NewPostService(posts, ledger, cache, cfg.StorageTimeout, log),
		Feed:     services.NewFeed(posts, ledger, cfg.StorageTimeout),
		Ledger:   ledger,
		Checks: map[string]handlers.Check{
			"database": sqlDB.PingContext,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Registry: reg,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("creddit server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	// let queued mails finish
	mail.Wait()
	log.Info("Server exited")
}

func setupLogger(log *logrus.Logger, cfg config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}
