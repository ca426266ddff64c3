package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"main/internal/application/service/settlement"
	"main/internal/config"
	"main/internal/infrastructure/archive"
	"main/internal/infrastructure/broker"
	"main/internal/infrastructure/store"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	tradingStore := store.New(redisClient)
	ledger := store.NewLedger(redisClient)

	service := settlement.NewService(tradingStore, ledger, logger)

	if cfg.Archive.DSN != "" {
		archiveRepo, err := archive.NewRepository(ctx, cfg.Archive.DSN)
		if err != nil {
			logger.Fatalf("failed to init transaction archive: %v", err)
		}
		defer archiveRepo.Close()
		service = service.WithArchive(archiveRepo)
		logger.Info("transaction archive enabled")
	}

	consumer, err := broker.NewConsumer(cfg.RabbitMQ, service, logger)
	if err != nil {
		logger.Fatalf("failed to init settlement consumer: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Infof("shutting down settlement consumer")
		return consumer.Close()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("settlement consumer stopped with error: %v", err)
	}
	logger.Info("settlement consumer stopped")
}
