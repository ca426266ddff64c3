package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"main/internal/config"
	"main/internal/infrastructure/store"

	domain "main/internal/domain/entity/trading"
)

// seedFile is the on-disk reference data format: tradeable stocks plus demo
// users with an opening balance and optional starting positions.
type seedFile struct {
	Stocks []seedStock `json:"stocks"`
	Users  []seedUser  `json:"users"`
}

type seedStock struct {
	StockID   string `json:"stock_id"`
	StockName string `json:"stock_name"`
}

type seedUser struct {
	UserName      string        `json:"user_name"`
	Name          string        `json:"name"`
	WalletBalance float64       `json:"wallet_balance"`
	Holdings      []seedHolding `json:"holdings"`
}

type seedHolding struct {
	StockID  string `json:"stock_id"`
	Quantity int64  `json:"quantity"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}

	path := strings.TrimSpace(os.Getenv("SEED_FILE"))
	if path == "" {
		logger.Fatal("SEED_FILE is required")
	}

	seed, err := readSeedFile(path)
	if err != nil {
		logger.Fatalf("read seed file: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatalf("connect redis: %v", err)
	}

	st := store.New(client)

	stockNames, err := seedStocks(ctx, st, seed.Stocks)
	if err != nil {
		logger.Fatalf("seed stocks: %v", err)
	}
	logger.WithField("stocks", len(seed.Stocks)).Info("stocks seeded")

	holdings, err := seedUsers(ctx, st, seed.Users, stockNames)
	if err != nil {
		logger.Fatalf("seed users: %v", err)
	}
	logger.WithFields(logrus.Fields{
		"users":    len(seed.Users),
		"holdings": holdings,
	}).Info("users seeded")

	logger.Info("reference data load finished")
}

func readSeedFile(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(seed.Stocks) == 0 && len(seed.Users) == 0 {
		return nil, errors.New("seed file holds no stocks and no users")
	}
	return &seed, nil
}

func seedStocks(ctx context.Context, st *store.Store, stocks []seedStock) (map[string]string, error) {
	names := make(map[string]string, len(stocks))
	for _, item := range stocks {
		id := strings.TrimSpace(item.StockID)
		name := strings.TrimSpace(item.StockName)
		if id == "" || name == "" {
			return nil, fmt.Errorf("stock entry needs both stock_id and stock_name: %+v", item)
		}
		if err := st.CreateStock(ctx, &domain.Stock{StockID: id, StockName: name}); err != nil {
			return nil, fmt.Errorf("save stock %s: %w", id, err)
		}
		names[id] = name
	}
	return names, nil
}

func seedUsers(ctx context.Context, st *store.Store, users []seedUser, stockNames map[string]string) (int, error) {
	holdings := 0
	for _, item := range users {
		userName := strings.TrimSpace(item.UserName)
		if userName == "" {
			return holdings, fmt.Errorf("user entry needs user_name: %+v", item)
		}
		if item.WalletBalance < 0 {
			return holdings, fmt.Errorf("user %s: wallet balance must not be negative", userName)
		}

		user := &domain.User{
			UserName:      userName,
			Name:          strings.TrimSpace(item.Name),
			WalletBalance: item.WalletBalance,
		}
		if err := st.SaveUser(ctx, user); err != nil {
			return holdings, fmt.Errorf("save user %s: %w", userName, err)
		}

		for _, holding := range item.Holdings {
			stockID := strings.TrimSpace(holding.StockID)
			name, ok := stockNames[stockID]
			if !ok {
				return holdings, fmt.Errorf("user %s holds unknown stock %s", userName, stockID)
			}
			if holding.Quantity <= 0 {
				return holdings, fmt.Errorf("user %s: holding of %s must be positive", userName, stockID)
			}
			owned := &domain.OwnedStock{
				UserName:        userName,
				StockID:         stockID,
				StockName:       name,
				CurrentQuantity: holding.Quantity,
			}
			if err := st.SaveOwnedStock(ctx, owned); err != nil {
				return holdings, fmt.Errorf("save holding %s/%s: %w", userName, stockID, err)
			}
			holdings++
		}
	}
	return holdings, nil
}
