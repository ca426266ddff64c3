package interfaces

import (
	"context"
	"errors"

	"main/internal/domain/entity/orders"
	"main/internal/domain/entity/trading"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrStockNotFound       = errors.New("stock not found")
	ErrOwnedStockNotFound  = errors.New("owned stock not found")
	ErrTransactionNotFound = errors.New("stock transaction not found")
)

// TradingStore is the document store holding users, stocks, portfolios and
// transaction records. Balance and quantity fields must never be written
// through this interface from concurrent flows; that is what WalletLedger
// exists for.
type TradingStore interface {
	GetUser(ctx context.Context, userName string) (*trading.User, error)
	SaveUser(ctx context.Context, user *trading.User) error

	GetStock(ctx context.Context, stockID string) (*trading.Stock, error)
	CreateStock(ctx context.Context, stock *trading.Stock) error

	GetOwnedStock(ctx context.Context, userName, stockID string) (*trading.OwnedStock, error)
	SaveOwnedStock(ctx context.Context, owned *trading.OwnedStock) error

	GetStockTransaction(ctx context.Context, stockTxID string) (*trading.StockTransaction, error)
	SaveStockTransaction(ctx context.Context, tx *trading.StockTransaction) error
	DeleteStockTransaction(ctx context.Context, stockTxID string) error

	SaveWalletTransaction(ctx context.Context, tx *trading.WalletTransaction) error
}

// WalletLedger exposes the indivisible read-check-write primitives over
// wallet balances and owned-stock quantities. Each call either fully applies
// or leaves the record untouched; the bool reports whether the precondition
// held, the error reports store failures only.
type WalletLedger interface {
	// UpdateOwnedQuantity applies delta iff current_quantity+delta >= 0.
	UpdateOwnedQuantity(ctx context.Context, userName, stockID string, delta int64) (bool, error)

	// UpdateWalletBalance applies delta. Debits fail while the wallet is
	// locked or when the balance would go negative; credits always apply.
	UpdateWalletBalance(ctx context.Context, userName string, delta float64) (bool, error)

	// DeductAndUnlock subtracts amount and clears the lock in one step,
	// ignoring the current lock state for the balance check.
	DeductAndUnlock(ctx context.Context, userName string, amount float64) (bool, error)

	// TryLockWallet sets the lock flag; returns false if already locked.
	// Concurrent callers against one wallet never both succeed.
	TryLockWallet(ctx context.Context, userName string) (bool, error)

	// UnlockWallet unconditionally clears the lock flag.
	UnlockWallet(ctx context.Context, userName string) error
}

// OrderPublisher dispatches routed order messages to the matching engine.
type OrderPublisher interface {
	PublishLimitSell(ctx context.Context, order *orders.LimitSellOrder) error
	PublishMarketBuy(ctx context.Context, order *orders.MarketBuyOrder) error
	PublishCancelSell(ctx context.Context, order *orders.CancelSellOrder) error
}

// TransactionArchive records terminal transactions for reporting. Archive
// failures are logged by callers and never block settlement.
type TransactionArchive interface {
	ArchiveStockTransaction(ctx context.Context, tx *trading.StockTransaction) error
	ArchiveWalletTransaction(ctx context.Context, tx *trading.WalletTransaction) error
}
