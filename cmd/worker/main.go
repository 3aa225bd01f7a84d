package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"anchor/internal/attendance"
	"anchor/internal/cache"
	"anchor/internal/config"
	"anchor/internal/logger"
	"anchor/internal/profile"
	"anchor/internal/queue"
	"anchor/internal/store"
	"anchor/internal/worker"
)

// Worker consumes attendance.marked messages and records at-risk alerts.
func main() {
	cfg := config.Load()
	log := logger.New(cfg).Named("worker")
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory is consumed inside the api process; run the worker with redis")
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	redisStore := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = redisStore.Close() }()
	if err := redisStore.Connect(ctx); err != nil {
		log.Warn("redis not reachable, will retry on consume", zap.Error(err))
	}

	accessor := cache.New(redisStore, log.Named("cache"), cache.WithDefaultTTL(cfg.CacheTTL))
	profiles := profile.NewService(profile.NewRepository(db.Client), accessor, cfg.CacheTTL, cfg.DefaultThreshold)
	// the worker never publishes, so no queue is passed to the service
	att := attendance.NewService(attendance.NewRepository(db.Client), nil, log)

	q := queue.NewRedisQueue(redisStore.Client, cfg.QueueKey)
	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal("queue consume init failed", zap.Error(err))
	}

	worker.New(profiles, att, log).Run(ctx, messages)
}
