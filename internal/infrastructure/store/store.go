package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"main/internal/domain/interfaces"

	domain "main/internal/domain/entity/trading"

	"github.com/redis/go-redis/v9"
)

// Store keeps every trading record as a JSON document under a deterministic
// key. It implements interfaces.TradingStore; the concurrent-safe mutation
// of balances and quantities lives in Ledger, not here.
type Store struct {
	client *redis.Client
}

var _ interfaces.TradingStore = (*Store)(nil)

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) GetUser(ctx context.Context, userName string) (*domain.User, error) {
	user := &domain.User{}
	if err := s.getJSON(ctx, userKey(userName), user, interfaces.ErrUserNotFound); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Store) SaveUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	return s.setJSON(ctx, userKey(user.UserName), user)
}

func (s *Store) GetStock(ctx context.Context, stockID string) (*domain.Stock, error) {
	stock := &domain.Stock{}
	if err := s.getJSON(ctx, stockKey(stockID), stock, interfaces.ErrStockNotFound); err != nil {
		return nil, err
	}
	return stock, nil
}

func (s *Store) CreateStock(ctx context.Context, stock *domain.Stock) error {
	if stock == nil {
		return errors.New("nil stock")
	}
	return s.setJSON(ctx, stockKey(stock.StockID), stock)
}

func (s *Store) GetOwnedStock(ctx context.Context, userName, stockID string) (*domain.OwnedStock, error) {
	owned := &domain.OwnedStock{}
	if err := s.getJSON(ctx, ownedStockKey(userName, stockID), owned, interfaces.ErrOwnedStockNotFound); err != nil {
		return nil, err
	}
	return owned, nil
}

func (s *Store) SaveOwnedStock(ctx context.Context, owned *domain.OwnedStock) error {
	if owned == nil {
		return errors.New("nil owned stock")
	}
	return s.setJSON(ctx, ownedStockKey(owned.UserName, owned.StockID), owned)
}

func (s *Store) GetStockTransaction(ctx context.Context, stockTxID string) (*domain.StockTransaction, error) {
	tx := &domain.StockTransaction{}
	if err := s.getJSON(ctx, stockTxKey(stockTxID), tx, interfaces.ErrTransactionNotFound); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Store) SaveStockTransaction(ctx context.Context, tx *domain.StockTransaction) error {
	if tx == nil {
		return errors.New("nil stock transaction")
	}
	return s.setJSON(ctx, stockTxKey(tx.StockTxID), tx)
}

func (s *Store) DeleteStockTransaction(ctx context.Context, stockTxID string) error {
	if err := s.client.Del(ctx, stockTxKey(stockTxID)).Err(); err != nil {
		return fmt.Errorf("delete stock transaction %s: %w", stockTxID, err)
	}
	return nil
}

func (s *Store) SaveWalletTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	if tx == nil {
		return errors.New("nil wallet transaction")
	}
	return s.setJSON(ctx, walletTxKey(tx.WalletTxID), tx)
}

func (s *Store) getJSON(ctx context.Context, key string, out any, notFound error) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Store) setJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
