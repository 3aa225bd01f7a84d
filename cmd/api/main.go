package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"anchor/internal/api"
	"anchor/internal/assignment"
	"anchor/internal/attendance"
	"anchor/internal/cache"
	"anchor/internal/cloudinary"
	"anchor/internal/config"
	"anchor/internal/course"
	"anchor/internal/logger"
	"anchor/internal/profile"
	"anchor/internal/queue"
	"anchor/internal/store"
	"anchor/internal/timetable"
	"anchor/internal/worker"
	"anchor/migrations"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	defer func() { _ = log.Sync() }()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal("http server failed", zap.Error(err))
	}
}

func runHTTP(cfg config.App, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if db == nil {
		return err
	}
	if err != nil {
		log.Warn("db not reachable", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if cfg.AutoMigrate {
		if err := migrate(cfg.DatabaseURL, log); err != nil {
			return err
		}
	}

	redisStore := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = redisStore.Close() }()
	if err := redisStore.Connect(ctx); err != nil {
		log.Warn("redis not reachable, serving without cache", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	accessor := cache.New(redisStore, log.Named("cache"),
		cache.WithMetrics(cache.NewMetrics(reg)),
		cache.WithDefaultTTL(cfg.CacheTTL))

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisStore.Client, cfg.QueueKey)
	}

	attendanceSvc := attendance.NewService(attendance.NewRepository(db.Client), q, log.Named("attendance"))
	profileSvc := profile.NewService(profile.NewRepository(db.Client), accessor, cfg.CacheTTL, cfg.DefaultThreshold)

	// An in-memory queue is only visible to this process, so consume it here.
	if cfg.QueueBackend == "memory" {
		messages, err := q.Consume(ctx)
		if err != nil {
			return err
		}
		go worker.New(profileSvc, attendanceSvc, log.Named("worker")).Run(ctx, messages)
	}

	var uploader timetable.Uploader
	if cfg.CloudinaryConfigured() {
		uploader = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	} else {
		log.Info("cloudinary not configured, timetable uploads disabled")
	}

	h := api.New(log.Named("http"),
		attendanceSvc,
		profileSvc,
		course.NewRepository(db.Client),
		assignment.NewRepository(db.Client),
		timetable.NewService(timetable.NewRepository(db.Client), uploader),
	)
	router := h.Router(api.Config{
		SigningKey:      cfg.JWTSigningKey,
		Issuer:          cfg.JWTIssuer,
		RateLimitPerMin: cfg.RateLimitPerMin,
		AllowedOrigins:  cfg.AllowedOrigins,
		Registry:        reg,
		Health: map[string]api.HealthCheck{
			"db":    db.Healthy,
			"redis": redisStore.Healthy,
		},
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", zap.Error(err))
	}

	log.Info("server exited")
	return nil
}

func migrate(databaseURL string, log *zap.Logger) error {
	m, err := store.NewMigrator(databaseURL, migrations.FS)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	if err := m.Up(); err != nil {
		return err
	}
	version, _, err := m.Version()
	if err != nil {
		return err
	}
	log.Info("schema up to date", zap.Uint("version", version))
	return nil
}
