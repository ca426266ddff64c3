// Package memory provides an in-process implementation of the trading store
// and wallet ledger with the same primitive semantics as the Redis scripts.
// It backs the test suites and local development without a running store.
package memory

import (
	"context"
	"errors"
	"sync"

	"main/internal/domain/interfaces"

	domain "main/internal/domain/entity/trading"
)

type Store struct {
	mu        sync.Mutex
	users     map[string]domain.User
	stocks    map[string]domain.Stock
	owned     map[string]domain.OwnedStock
	stockTxs  map[string]domain.StockTransaction
	walletTxs map[string]domain.WalletTransaction
}

var (
	_ interfaces.TradingStore = (*Store)(nil)
	_ interfaces.WalletLedger = (*Store)(nil)
)

func New() *Store {
	return &Store{
		users:     make(map[string]domain.User),
		stocks:    make(map[string]domain.Stock),
		owned:     make(map[string]domain.OwnedStock),
		stockTxs:  make(map[string]domain.StockTransaction),
		walletTxs: make(map[string]domain.WalletTransaction),
	}
}

func ownedKey(userName, stockID string) string {
	return userName + ":" + stockID
}

// TradingStore

func (s *Store) GetUser(_ context.Context, userName string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userName]
	if !ok {
		return nil, interfaces.ErrUserNotFound
	}
	return &user, nil
}

func (s *Store) SaveUser(_ context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.UserName] = *user
	return nil
}

func (s *Store) GetStock(_ context.Context, stockID string) (*domain.Stock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stock, ok := s.stocks[stockID]
	if !ok {
		return nil, interfaces.ErrStockNotFound
	}
	return &stock, nil
}

func (s *Store) CreateStock(_ context.Context, stock *domain.Stock) error {
	if stock == nil {
		return errors.New("nil stock")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks[stock.StockID] = *stock
	return nil
}

func (s *Store) GetOwnedStock(_ context.Context, userName, stockID string) (*domain.OwnedStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned, ok := s.owned[ownedKey(userName, stockID)]
	if !ok {
		return nil, interfaces.ErrOwnedStockNotFound
	}
	return &owned, nil
}

func (s *Store) SaveOwnedStock(_ context.Context, owned *domain.OwnedStock) error {
	if owned == nil {
		return errors.New("nil owned stock")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owned[ownedKey(owned.UserName, owned.StockID)] = *owned
	return nil
}

func (s *Store) GetStockTransaction(_ context.Context, stockTxID string) (*domain.StockTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.stockTxs[stockTxID]
	if !ok {
		return nil, interfaces.ErrTransactionNotFound
	}
	return &tx, nil
}

func (s *Store) SaveStockTransaction(_ context.Context, tx *domain.StockTransaction) error {
	if tx == nil {
		return errors.New("nil stock transaction")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stockTxs[tx.StockTxID] = *tx
	return nil
}

func (s *Store) DeleteStockTransaction(_ context.Context, stockTxID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stockTxs, stockTxID)
	return nil
}

func (s *Store) SaveWalletTransaction(_ context.Context, tx *domain.WalletTransaction) error {
	if tx == nil {
		return errors.New("nil wallet transaction")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.walletTxs[tx.WalletTxID] = *tx
	return nil
}

// StockTransactions returns the stored stock transactions; used by tests.
func (s *Store) StockTransactions() []domain.StockTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := make([]domain.StockTransaction, 0, len(s.stockTxs))
	for _, tx := range s.stockTxs {
		txs = append(txs, tx)
	}
	return txs
}

// WalletTransactions returns the stored wallet transactions; used by tests.
func (s *Store) WalletTransactions() []domain.WalletTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := make([]domain.WalletTransaction, 0, len(s.walletTxs))
	for _, tx := range s.walletTxs {
		txs = append(txs, tx)
	}
	return txs
}

// WalletLedger. Holding the mutex across read-check-write mirrors the
// indivisibility of the store scripts: the precondition never passes
// against a state another caller has half-written.

func (s *Store) UpdateOwnedQuantity(_ context.Context, userName, stockID string, delta int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned, ok := s.owned[ownedKey(userName, stockID)]
	if !ok {
		return false, nil
	}
	if owned.CurrentQuantity+delta < 0 {
		return false, nil
	}
	owned.CurrentQuantity += delta
	s.owned[ownedKey(userName, stockID)] = owned
	return true, nil
}

func (s *Store) UpdateWalletBalance(_ context.Context, userName string, delta float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userName]
	if !ok {
		return false, nil
	}
	if (user.IsLocked && delta < 0) || user.WalletBalance+delta < 0 {
		return false, nil
	}
	user.WalletBalance += delta
	s.users[userName] = user
	return true, nil
}

func (s *Store) DeductAndUnlock(_ context.Context, userName string, amount float64) (bool, error) {
	if amount < 0 {
		return false, errors.New("deduct amount must not be negative")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userName]
	if !ok {
		return false, nil
	}
	if user.WalletBalance-amount < 0 {
		return false, nil
	}
	user.WalletBalance -= amount
	user.IsLocked = false
	s.users[userName] = user
	return true, nil
}

func (s *Store) TryLockWallet(_ context.Context, userName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userName]
	if !ok {
		return false, nil
	}
	if user.IsLocked {
		return false, nil
	}
	user.IsLocked = true
	s.users[userName] = user
	return true, nil
}

func (s *Store) UnlockWallet(_ context.Context, userName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userName]
	if !ok {
		return interfaces.ErrUserNotFound
	}
	user.IsLocked = false
	s.users[userName] = user
	return nil
}
