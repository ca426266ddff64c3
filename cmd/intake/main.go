package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"main/internal/application/service/intake"
	"main/internal/config"
	"main/internal/infrastructure/broker"
	"main/internal/infrastructure/store"
	infrahttp "main/internal/interfaces/http"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
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

	rabbitConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatalf("connect rabbitmq: %v", err)
	}
	defer rabbitConn.Close()

	router, err := broker.NewRouter(cfg.Engine.Shards)
	if err != nil {
		logger.Fatalf("init shard router: %v", err)
	}
	publisher, err := broker.NewPublisher(rabbitConn, cfg.RabbitMQ, router, logger)
	if err != nil {
		logger.Fatalf("init publisher: %v", err)
	}
	defer publisher.Close()

	orderService := intake.NewService(tradingStore, ledger, publisher, cfg.Intake, logger)
	handler := infrahttp.NewHandler(orderService)

	server := &http.Server{
		Addr:    cfg.HTTP.Addr(),
		Handler: handler,
	}

	go func() {
		logger.Infof("order intake listening on %s (shards=%d)", cfg.HTTP.Addr(), cfg.Engine.Shards)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down order intake")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown error: %v", err)
	}
	logger.Info("order intake stopped")
}
