package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"main/internal/config"
	"main/internal/domain/interfaces"

	msg "main/internal/domain/entity/orders"
	domain "main/internal/domain/entity/trading"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidOrder       = errors.New("order quantity and price must be positive")
	ErrStockNotOwned      = errors.New("user does not own this stock")
	ErrInsufficientShares = errors.New("insufficient shares for sell order")
	ErrInsufficientFunds  = errors.New("wallet has no funds")
)

// Service is the order intake pipeline: synchronous precondition checks, an
// optimistic transaction record, local resource reservation and dispatch to
// the matching engine. Dispatch and reservation are separate steps with no
// transaction spanning them; compensation (deleting the optimistic record)
// covers failures detected before dispatch only.
type Service struct {
	store     interfaces.TradingStore
	ledger    interfaces.WalletLedger
	publisher interfaces.OrderPublisher
	names     *nameCache
	cfg       config.IntakeConfig
	logger    *logrus.Logger
}

func NewService(
	store interfaces.TradingStore,
	ledger interfaces.WalletLedger,
	publisher interfaces.OrderPublisher,
	cfg config.IntakeConfig,
	logger *logrus.Logger,
) *Service {
	return &Service{
		store:     store,
		ledger:    ledger,
		publisher: publisher,
		names:     newNameCache(store),
		cfg:       cfg,
		logger:    logger,
	}
}

// PlaceLimitSell validates and books a limit sell: the root transaction is
// persisted IN_PROGRESS before the order ships, and the seller's shares are
// reserved by an atomic decrement after. A decrement that fails under
// contention deletes the optimistic record even though the order message is
// already in flight; the resulting orphaned engine order is a known gap of
// this choreography and is surfaced in the logs, not patched here.
func (s *Service) PlaceLimitSell(ctx context.Context, stockID string, quantity int64, price float64, userName string) error {
	if quantity <= 0 || price <= 0 {
		return ErrInvalidOrder
	}

	if _, err := s.store.GetUser(ctx, userName); err != nil {
		return fmt.Errorf("fetch user %s: %w", userName, err)
	}

	stockName, err := s.names.resolve(ctx, stockID)
	if err != nil {
		return fmt.Errorf("resolve stock %s: %w", stockID, err)
	}

	tx := &domain.StockTransaction{
		UserName:   userName,
		StockTxID:  uuid.NewString(),
		StockID:    stockID,
		Status:     domain.OrderStatusInProgress,
		IsBuy:      false,
		OrderType:  domain.OrderTypeLimit,
		StockPrice: price,
		Quantity:   quantity,
		TimeStamp:  time.Now().UTC(),
	}
	if err := s.store.SaveStockTransaction(ctx, tx); err != nil {
		return fmt.Errorf("persist limit sell transaction: %w", err)
	}

	cleanupOptimistic := func() {
		if err := s.store.DeleteStockTransaction(ctx, tx.StockTxID); err != nil {
			s.logger.WithError(err).Errorf("failed to remove optimistic transaction %s", tx.StockTxID)
		}
	}

	owned, err := s.store.GetOwnedStock(ctx, userName, stockID)
	if errors.Is(err, interfaces.ErrOwnedStockNotFound) {
		cleanupOptimistic()
		return ErrStockNotOwned
	}
	if err != nil {
		cleanupOptimistic()
		return fmt.Errorf("fetch owned stock: %w", err)
	}
	if owned.CurrentQuantity < quantity {
		cleanupOptimistic()
		return fmt.Errorf("own %d, tried to sell %d: %w", owned.CurrentQuantity, quantity, ErrInsufficientShares)
	}

	if err := s.publisher.PublishLimitSell(ctx, &msg.LimitSellOrder{
		StockID:   stockID,
		StockName: stockName,
		Quantity:  quantity,
		Price:     price,
		StockTxID: tx.StockTxID,
		UserName:  userName,
	}); err != nil {
		return fmt.Errorf("dispatch limit sell order: %w", err)
	}

	ok, err := s.ledger.UpdateOwnedQuantity(ctx, userName, stockID, -quantity)
	if err != nil {
		cleanupOptimistic()
		return fmt.Errorf("reserve sold quantity: %w", err)
	}
	if !ok {
		// The order message is already dispatched; dropping the record
		// here can orphan a later settlement event.
		s.logger.Warnf("post-dispatch reservation failed for %s, removing transaction", tx.StockTxID)
		cleanupOptimistic()
		return ErrInsufficientShares
	}
	return nil
}

// PlaceMarketBuy validates the stock, takes the wallet lock and dispatches a
// buy budgeted at the user's whole balance. The lock is held until the
// settlement consumer releases it; acquisition retries forever at a fixed
// interval, bounded only by ctx. Returns the new transaction id, which the
// caller may hand to WaitForCompletion.
func (s *Service) PlaceMarketBuy(ctx context.Context, stockID string, quantity int64, userName string) (string, error) {
	if quantity <= 0 {
		return "", ErrInvalidOrder
	}

	if _, err := s.names.resolve(ctx, stockID); err != nil {
		return "", fmt.Errorf("resolve stock %s: %w", stockID, err)
	}

	var user *domain.User
	for {
		var err error
		user, err = s.store.GetUser(ctx, userName)
		if err != nil {
			return "", fmt.Errorf("fetch user %s: %w", userName, err)
		}

		locked, err := s.ledger.TryLockWallet(ctx, userName)
		if err != nil {
			return "", fmt.Errorf("lock wallet: %w", err)
		}
		if locked {
			break
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.cfg.LockRetryInterval):
		}
	}

	if user.WalletBalance <= 0 {
		return "", fmt.Errorf("balance is %.2f: %w", user.WalletBalance, ErrInsufficientFunds)
	}

	tx := &domain.StockTransaction{
		UserName:  userName,
		StockTxID: uuid.NewString(),
		StockID:   stockID,
		Status:    domain.OrderStatusPending,
		IsBuy:     true,
		OrderType: domain.OrderTypeMarket,
		// Real price is unknown until the engine matches; settlement
		// overwrites this with the average fill price.
		StockPrice: 0,
		Quantity:   quantity,
		TimeStamp:  time.Now().UTC(),
	}
	if err := s.store.SaveStockTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("persist market buy transaction: %w", err)
	}

	if err := s.publisher.PublishMarketBuy(ctx, &msg.MarketBuyOrder{
		StockID:   stockID,
		Quantity:  quantity,
		StockTxID: tx.StockTxID,
		Budget:    user.WalletBalance,
		UserName:  userName,
	}); err != nil {
		return "", fmt.Errorf("dispatch market buy order: %w", err)
	}
	return tx.StockTxID, nil
}

// CancelTransaction resolves the given transaction to its root by walking
// parent links, then asks the matching engine to cancel the root order. No
// local state changes here: the CANCELLED transition and quantity return
// happen only when the engine acknowledges through the settlement consumer.
func (s *Service) CancelTransaction(ctx context.Context, stockTxID, userName string) error {
	tx, err := s.store.GetStockTransaction(ctx, stockTxID)
	if err != nil {
		return fmt.Errorf("fetch transaction %s: %w", stockTxID, err)
	}
	for !tx.IsRoot() {
		tx, err = s.store.GetStockTransaction(ctx, tx.ParentTxID)
		if err != nil {
			return fmt.Errorf("resolve root transaction: %w", err)
		}
	}

	if err := s.publisher.PublishCancelSell(ctx, &msg.CancelSellOrder{
		StockID:   tx.StockID,
		Quantity:  tx.Quantity,
		Price:     tx.StockPrice,
		StockTxID: tx.StockTxID,
	}); err != nil {
		return fmt.Errorf("dispatch cancellation: %w", err)
	}
	return nil
}
