package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"main/internal/domain/entity/orders"
	"main/internal/domain/interfaces"

	domain "main/internal/domain/entity/trading"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrWalletCreditFailed = errors.New("wallet credit rejected by ledger")
	ErrWalletDeductFailed = errors.New("wallet deduct and unlock rejected by ledger")
	ErrInvalidQuantity    = errors.New("fill quantity must be positive")
)

// Service applies settlement events from the matching engine onto wallets,
// portfolios and transaction records. Handlers return an error only for
// failures that must dead-letter the event; every ledger call they make is
// an indivisible primitive, so a handler that fails midway leaves records
// in their last good state.
type Service struct {
	store   interfaces.TradingStore
	ledger  interfaces.WalletLedger
	archive interfaces.TransactionArchive
	logger  *logrus.Logger
}

func NewService(store interfaces.TradingStore, ledger interfaces.WalletLedger, logger *logrus.Logger) *Service {
	return &Service{store: store, ledger: ledger, logger: logger}
}

// WithArchive attaches the optional reporting archive. Archive writes are
// best effort and never fail the event.
func (s *Service) WithArchive(archive interfaces.TransactionArchive) *Service {
	s.archive = archive
	return s
}

// HandleSaleUpdate settles one fill against a limit sell. A fill smaller
// than the root order spawns a COMPLETED child transaction under the root;
// a fill that empties the book side completes the root itself. The credit
// equals price * sold quantity and never checks the wallet lock.
func (s *Service) HandleSaleUpdate(ctx context.Context, update *orders.SaleUpdate) error {
	parent, err := s.store.GetStockTransaction(ctx, update.StockTxID)
	if err != nil {
		return fmt.Errorf("fetch parent transaction %s: %w", update.StockTxID, err)
	}

	isComplete := update.RemainingQuantity == 0
	isPartial := update.SoldQuantity != parent.Quantity
	walletTxID := uuid.NewString()

	settled := parent
	if isPartial {
		child := &domain.StockTransaction{
			UserName:   update.UserName,
			StockTxID:  uuid.NewString(),
			StockID:    update.StockID,
			WalletTxID: walletTxID,
			Status:     domain.OrderStatusCompleted,
			IsBuy:      false,
			OrderType:  domain.OrderTypeLimit,
			StockPrice: update.Price,
			Quantity:   update.SoldQuantity,
			ParentTxID: parent.StockTxID,
			TimeStamp:  time.Now().UTC(),
		}
		if err := s.store.SaveStockTransaction(ctx, child); err != nil {
			return fmt.Errorf("create partial fill transaction: %w", err)
		}
		settled = child
		parent.Status = domain.OrderStatusPartiallyCompleted
	}

	// Checked after isPartial on purpose: the final fill of a partially
	// sold order overrides PARTIALLY_COMPLETED with COMPLETED.
	if isComplete {
		parent.Status = domain.OrderStatusCompleted
	}

	if err := s.store.SaveStockTransaction(ctx, parent); err != nil {
		return fmt.Errorf("update parent transaction %s: %w", parent.StockTxID, err)
	}

	amount := update.Price * float64(update.SoldQuantity)
	walletTx := &domain.WalletTransaction{
		UserName:   update.UserName,
		WalletTxID: walletTxID,
		StockTxID:  settled.StockTxID,
		IsDebit:    false,
		Amount:     amount,
		TimeStamp:  time.Now().UTC(),
	}
	if err := s.store.SaveWalletTransaction(ctx, walletTx); err != nil {
		// The wallet tx id was assigned optimistically; take it back off
		// the settled record and keep going with the credit.
		s.logger.WithError(err).Errorf("create wallet transaction for %s failed, rolling back optimistic id", settled.StockTxID)
		settled.WalletTxID = ""
		if rbErr := s.store.SaveStockTransaction(ctx, settled); rbErr != nil {
			return fmt.Errorf("rollback optimistic wallet tx id on %s: %w", settled.StockTxID, rbErr)
		}
	}

	ok, err := s.ledger.UpdateWalletBalance(ctx, update.UserName, amount)
	if err != nil {
		return fmt.Errorf("credit seller wallet: %w", err)
	}
	if !ok {
		return fmt.Errorf("credit seller %s by %.2f: %w", update.UserName, amount, ErrWalletCreditFailed)
	}

	s.archiveStockTx(ctx, settled)
	if isComplete && isPartial {
		s.archiveStockTx(ctx, parent)
	}
	s.archiveWalletTx(ctx, walletTx)
	return nil
}

// HandleBuyCompletion settles a filled market buy. The portfolio update
// must land before DeductAndUnlock: the moment the wallet unlocks the user
// can buy again, and by then their position has to reflect this purchase.
func (s *Service) HandleBuyCompletion(ctx context.Context, data *orders.BuyCompletedData) error {
	if data.Quantity <= 0 {
		return fmt.Errorf("buy completion for %s: %w", data.StockTxID, ErrInvalidQuantity)
	}

	tx, err := s.store.GetStockTransaction(ctx, data.StockTxID)
	if err != nil {
		return fmt.Errorf("fetch buy transaction %s: %w", data.StockTxID, err)
	}

	walletTx := &domain.WalletTransaction{
		UserName:   tx.UserName,
		WalletTxID: uuid.NewString(),
		StockTxID:  tx.StockTxID,
		IsDebit:    true,
		Amount:     data.PriceTotal,
		TimeStamp:  time.Now().UTC(),
	}
	if err := s.store.SaveWalletTransaction(ctx, walletTx); err != nil {
		return fmt.Errorf("create debit wallet transaction: %w", err)
	}

	tx.Status = domain.OrderStatusCompleted
	tx.StockPrice = data.PriceTotal / float64(data.Quantity)
	tx.WalletTxID = walletTx.WalletTxID
	if err := s.store.SaveStockTransaction(ctx, tx); err != nil {
		return fmt.Errorf("complete buy transaction %s: %w", tx.StockTxID, err)
	}

	if err := s.addQuantity(ctx, tx.StockID, tx.UserName, data.Quantity); err != nil {
		return fmt.Errorf("add purchased quantity to portfolio: %w", err)
	}

	ok, err := s.ledger.DeductAndUnlock(ctx, tx.UserName, data.PriceTotal)
	if err != nil {
		return fmt.Errorf("deduct and unlock buyer wallet: %w", err)
	}
	if !ok {
		return fmt.Errorf("deduct %.2f from %s: %w", data.PriceTotal, tx.UserName, ErrWalletDeductFailed)
	}

	s.archiveStockTx(ctx, tx)
	s.archiveWalletTx(ctx, walletTx)
	return nil
}

// HandleFailedBuy marks a buy the engine could not fill as FAILED and
// releases the wallet lock held since intake. No funds move.
func (s *Service) HandleFailedBuy(ctx context.Context, data *orders.BuyCompletedData) error {
	tx, err := s.store.GetStockTransaction(ctx, data.StockTxID)
	if err != nil {
		return fmt.Errorf("fetch buy transaction %s: %w", data.StockTxID, err)
	}

	tx.Status = domain.OrderStatusFailed
	if err := s.store.SaveStockTransaction(ctx, tx); err != nil {
		return fmt.Errorf("mark buy transaction %s failed: %w", tx.StockTxID, err)
	}

	if err := s.ledger.UnlockWallet(ctx, tx.UserName); err != nil {
		return fmt.Errorf("unlock buyer wallet: %w", err)
	}

	s.archiveStockTx(ctx, tx)
	return nil
}

// HandleCancellation applies a cancellation acknowledgement: the root
// transaction becomes CANCELLED and the unsold remainder goes back into
// the seller's portfolio. A failed cancellation is logged and dropped.
func (s *Service) HandleCancellation(ctx context.Context, event *orders.Cancelled) error {
	if !event.Success {
		s.logger.WithField("stock_tx_id", event.Data.StockTxID).Error("matching engine rejected cancellation")
		return nil
	}

	tx, err := s.store.GetStockTransaction(ctx, event.Data.StockTxID)
	if err != nil {
		return fmt.Errorf("fetch transaction %s to cancel: %w", event.Data.StockTxID, err)
	}

	tx.Status = domain.OrderStatusCancelled
	if err := s.store.SaveStockTransaction(ctx, tx); err != nil {
		return fmt.Errorf("mark transaction %s cancelled: %w", tx.StockTxID, err)
	}

	if err := s.addQuantity(ctx, tx.StockID, tx.UserName, event.Data.CurQuantity); err != nil {
		return fmt.Errorf("return unsold quantity to seller: %w", err)
	}

	s.archiveStockTx(ctx, tx)
	return nil
}

func (s *Service) archiveStockTx(ctx context.Context, tx *domain.StockTransaction) {
	if s.archive == nil || !tx.Status.Terminal() {
		return
	}
	if err := s.archive.ArchiveStockTransaction(ctx, tx); err != nil {
		s.logger.WithError(err).Warnf("archive stock transaction %s", tx.StockTxID)
	}
}

func (s *Service) archiveWalletTx(ctx context.Context, tx *domain.WalletTransaction) {
	if s.archive == nil {
		return
	}
	if err := s.archive.ArchiveWalletTransaction(ctx, tx); err != nil {
		s.logger.WithError(err).Warnf("archive wallet transaction %s", tx.WalletTxID)
	}
}
