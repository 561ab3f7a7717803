// Package main runs the background job worker (identity revocation retries).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noor-academy/backend/config"
	"github.com/noor-academy/backend/internal/accounts"
	"github.com/noor-academy/backend/internal/auth"
	"github.com/noor-academy/backend/internal/worker"
	"github.com/noor-academy/backend/pkg/database"
	"github.com/noor-academy/backend/pkg/queue"
	"github.com/noor-academy/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Database.Driver != config.DriverPostgres {
		logger.Fatal("worker requires the postgres driver", zap.String("driver", cfg.Database.Driver))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)
	if dead, err := jobQueue.DeadLetters(ctx, 20); err != nil {
		logger.Warn("read dead letters", zap.Error(err))
	} else if len(dead) > 0 {
		ids := make([]string, 0, len(dead))
		for _, job := range dead {
			ids = append(ids, job.ID)
		}
		logger.Warn("revocation jobs in dead-letter queue need operator attention", zap.Strings("job_ids", ids))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpireHours)
	provider := auth.NewProvider(auth.NewRepository(pool), jwtService, logger)
	processor := worker.NewRevocationProcessor(accounts.NewRepository(pool), provider, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
