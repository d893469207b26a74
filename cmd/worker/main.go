// worker runs scheduled maintenance on asynq: purging expired refresh token records
// on PURGE_CRON. Requires REDIS_ADDR and, for the postgres store, DATABASE_URL.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"auth-service/internal/config"
	"auth-service/internal/db"
	"auth-service/internal/jobs"
	"auth-service/internal/logging"
	sessionrepo "auth-service/internal/session/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store jobs.ExpiredDeleter
	if cfg.RefreshStore == config.RefreshStoreRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		store = sessionrepo.NewRedisRepository(client)
	} else {
		database, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer database.Close()
		store = sessionrepo.NewPostgresRepository(database)
	}

	purgeTask, err := jobs.NewPurgeTask(jobs.PurgePayload{})
	if err != nil {
		log.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}
	purge := jobs.NewPurgeJob(store, log, nil)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    log,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPurgeExpiredRefreshTokens, Handler: purge.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.PurgeCron, Task: purgeTask},
		},
	})
	if err != nil {
		log.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("worker started", slog.String("purge_cron", cfg.PurgeCron))
	if err := worker.Run(ctx); err != nil {
		log.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
