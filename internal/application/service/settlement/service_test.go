package settlement

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"main/internal/application/service/intake"
	"main/internal/config"
	"main/internal/domain/entity/orders"
	"main/internal/infrastructure/store/memory"

	domain "main/internal/domain/entity/trading"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newFixture(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	s := memory.New()
	svc := NewService(s, s, testLogger())

	ctx := context.Background()
	require.NoError(t, s.SaveUser(ctx, &domain.User{UserName: "alice", WalletBalance: 1000}))
	require.NoError(t, s.CreateStock(ctx, &domain.Stock{StockID: "stock-1", StockName: "Stock One"}))
	return svc, s
}

func seedLimitSellRoot(t *testing.T, s *memory.Store, quantity int64, price float64) *domain.StockTransaction {
	t.Helper()
	root := &domain.StockTransaction{
		UserName:   "alice",
		StockTxID:  "sell-root",
		StockID:    "stock-1",
		Status:     domain.OrderStatusInProgress,
		OrderType:  domain.OrderTypeLimit,
		StockPrice: price,
		Quantity:   quantity,
		TimeStamp:  time.Now().UTC(),
	}
	require.NoError(t, s.SaveStockTransaction(context.Background(), root))
	return root
}

func childrenOf(s *memory.Store, rootID string) []domain.StockTransaction {
	var children []domain.StockTransaction
	for _, tx := range s.StockTransactions() {
		if tx.ParentTxID == rootID {
			children = append(children, tx)
		}
	}
	return children
}

func TestHandleSaleUpdatePartialThenComplete(t *testing.T) {
	svc, s := newFixture(t)
	ctx := context.Background()
	seedLimitSellRoot(t, s, 6, 10)

	// Fill #1: 1 of 6 sold.
	require.NoError(t, svc.HandleSaleUpdate(ctx, &orders.SaleUpdate{
		StockID: "stock-1", SoldQuantity: 1, RemainingQuantity: 5,
		Price: 10, StockTxID: "sell-root", UserName: "alice",
	}))

	root, err := s.GetStockTransaction(ctx, "sell-root")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPartiallyCompleted, root.Status)

	children := childrenOf(s, "sell-root")
	require.Len(t, children, 1)
	assert.Equal(t, domain.OrderStatusCompleted, children[0].Status)
	assert.Equal(t, int64(1), children[0].Quantity)
	assert.Equal(t, 10.0, children[0].StockPrice)
	assert.NotEmpty(t, children[0].WalletTxID)

	// Fill #2: remaining 5 sold, order done.
	require.NoError(t, svc.HandleSaleUpdate(ctx, &orders.SaleUpdate{
		StockID: "stock-1", SoldQuantity: 5, RemainingQuantity: 0,
		Price: 10, StockTxID: "sell-root", UserName: "alice",
	}))

	root, err = s.GetStockTransaction(ctx, "sell-root")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, root.Status)

	children = childrenOf(s, "sell-root")
	require.Len(t, children, 2)
	var totalFilled int64
	for _, child := range children {
		assert.Equal(t, domain.OrderStatusCompleted, child.Status)
		totalFilled += child.Quantity
	}
	assert.Equal(t, root.Quantity, totalFilled, "child quantities must add up to the root order")

	user, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1060.0, user.WalletBalance, "credited 1*10 + 5*10")

	credits := s.WalletTransactions()
	require.Len(t, credits, 2)
	for _, tx := range credits {
		assert.False(t, tx.IsDebit)
	}
}

func TestHandleSaleUpdateSingleFullFill(t *testing.T) {
	svc, s := newFixture(t)
	ctx := context.Background()
	seedLimitSellRoot(t, s, 6, 10)

	require.NoError(t, svc.HandleSaleUpdate(ctx, &orders.SaleUpdate{
		StockID: "stock-1", SoldQuantity: 6, RemainingQuantity: 0,
		Price: 10, StockTxID: "sell-root", UserName: "alice",
	}))

	root, err := s.GetStockTransaction(ctx, "sell-root")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, root.Status)
	assert.Empty(t, childrenOf(s, "sell-root"), "a full fill spawns no child")

	credits := s.WalletTransactions()
	require.Len(t, credits, 1)
	assert.Equal(t, "sell-root", credits[0].StockTxID, "wallet tx attaches to the root on a full fill")
	assert.Equal(t, 60.0, credits[0].Amount)
}

func TestHandleSaleUpdateCreditsIgnoreWalletLock(t *testing.T) {
	svc, s := newFixture(t)
	ctx := context.Background()
	seedLimitSellRoot(t, s, 2, 5)

	locked, err := s.TryLockWallet(ctx, "alice")
	require.NoError(t, err)
	require.True(t, locked)

	require.NoError(t, svc.HandleSaleUpdate(ctx, &orders.SaleUpdate{
		StockID: "stock-1", SoldQuantity: 2, RemainingQuantity: 0,
		Price: 5, StockTxID: "sell-root", UserName: "alice",
	}))

	user, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1010.0, user.WalletBalance)
	assert.True(t, user.IsLocked, "crediting never touches the lock")
}

// brokenWalletTxStore fails wallet transaction writes while passing every
// other call through to the wrapped store.
type brokenWalletTxStore struct {
	*memory.Store
	walletTxErr error
}

func (b *brokenWalletTxStore) SaveWalletTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	if b.walletTxErr != nil {
		return b.walletTxErr
	}
	return b.Store.SaveWalletTransaction(ctx, tx)
}

func TestHandleSaleUpdateWalletTxFailureRollsBackIDAndStillCredits(t *testing.T) {
	s := memory.New()
	broken := &brokenWalletTxStore{Store: s, walletTxErr: errors.New("write refused")}
	svc := NewService(broken, s, testLogger())

	ctx := context.Background()
	require.NoError(t, s.SaveUser(ctx, &domain.User{UserName: "alice", WalletBalance: 1000}))
	require.NoError(t, s.CreateStock(ctx, &domain.Stock{StockID: "stock-1", StockName: "Stock One"}))
	seedLimitSellRoot(t, s, 6, 10)

	require.NoError(t, svc.HandleSaleUpdate(ctx, &orders.SaleUpdate{
		StockID: "stock-1", SoldQuantity: 1, RemainingQuantity: 5,
		Price: 10, StockTxID: "sell-root", UserName: "alice",
	}))

	children := childrenOf(s, "sell-root")
	require.Len(t, children, 1)
	assert.Empty(t, children[0].WalletTxID, "optimistic id taken back off the record")
	assert.Equal(t, domain.OrderStatusCompleted, children[0].Status)
	assert.Empty(t, s.WalletTransactions())

	user, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1010.0, user.WalletBalance, "the credit still lands")
}

func TestHandleSaleUpdateMissingParent(t *testing.T) {
	svc, _ := newFixture(t)

	err := svc.HandleSaleUpdate(context.Background(), &orders.SaleUpdate{
		StockID: "stock-1", SoldQuantity: 1, RemainingQuantity: 0,
		Price: 10, StockTxID: "missing", UserName: "alice",
	})
	require.Error(t, err)
}

func seedPendingBuy(t *testing.T, s *memory.Store, quantity int64) *domain.StockTransaction {
	t.Helper()
	ctx := context.Background()
	tx := &domain.StockTransaction{
		UserName:  "alice",
		StockTxID: "buy-1",
		StockID:   "stock-1",
		Status:    domain.OrderStatusPending,
		IsBuy:     true,
		OrderType: domain.OrderTypeMarket,
		Quantity:  quantity,
		TimeStamp: time.Now().UTC(),
	}
	require.NoError(t, s.SaveStockTransaction(ctx, tx))

	locked, err := s.TryLockWallet(ctx, "alice")
	require.NoError(t, err)
	require.True(t, locked)
	return tx
}

func TestHandleBuyCompletion(t *testing.T) {
	svc, s := newFixture(t)
	ctx := context.Background()
	seedPendingBuy(t, s, 10)

	require.NoError(t, svc.HandleBuyCompletion(ctx, &orders.BuyCompletedData{
		StockID: "stock-1", StockTxID: "buy-1", Quantity: 10, PriceTotal: 750,
	}))

	user, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 250.0, user.WalletBalance)
	assert.False(t, user.IsLocked)

	owned, err := s.GetOwnedStock(ctx, "alice", "stock-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), owned.CurrentQuantity)
	assert.Equal(t, "Stock One", owned.StockName, "record created on first acquisition")

	tx, err := s.GetStockTransaction(ctx, "buy-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, tx.Status)
	assert.Equal(t, 75.0, tx.StockPrice, "average fill price replaces the placeholder")
	assert.NotEmpty(t, tx.WalletTxID)

	debits := s.WalletTransactions()
	require.Len(t, debits, 1)
	assert.True(t, debits[0].IsDebit)
	assert.Equal(t, 750.0, debits[0].Amount)
}

func TestHandleBuyCompletionAddsToExistingPosition(t *testing.T) {
	svc, s := newFixture(t)
	ctx := context.Background()
	seedPendingBuy(t, s, 5)
	require.NoError(t, s.SaveOwnedStock(ctx, &domain.OwnedStock{
		UserName: "alice", StockID: "stock-1", StockName: "Stock One", CurrentQuantity: 7,
	}))

	require.NoError(t, svc.HandleBuyCompletion(ctx, &orders.BuyCompletedData{
		StockID: "stock-1", StockTxID: "buy-1", Quantity: 5, PriceTotal: 100,
	}))

	owned, err := s.GetOwnedStock(ctx, "alice", "stock-1")
	require.NoError(t, err)
	assert.Equal(t, int64(12), owned.CurrentQuantity)
}

func TestHandleBuyCompletionInsufficientBalanceIsFatal(t *testing.T) {
	svc, s := newFixture(t)
	ctx := context.Background()
	seedPendingBuy(t, s, 10)

	err := svc.HandleBuyCompletion(ctx, &orders.BuyCompletedData{
		StockID: "stock-1", StockTxID: "buy-1", Quantity: 10, PriceTotal: 1000.5,
	})
	require.ErrorIs(t, err, ErrWalletDeductFailed)

	// Funds untouched, lock still held: the event dead-letters for
	// manual reconciliation.
	user, getErr := s.GetUser(ctx, "alice")
	require.NoError(t, getErr)
	assert.Equal(t, 1000.0, user.WalletBalance)
	assert.True(t, user.IsLocked)
}

func TestHandleFailedBuy(t *testing.T) {
	svc, s := newFixture(t)
	ctx := context.Background()
	seedPendingBuy(t, s, 10)

	require.NoError(t, svc.HandleFailedBuy(ctx, &orders.BuyCompletedData{
		StockID: "stock-1", StockTxID: "buy-1",
	}))

	tx, err := s.GetStockTransaction(ctx, "buy-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusFailed, tx.Status)

	user, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, user.WalletBalance, "no funds move on a failed buy")
	assert.False(t, user.IsLocked)

	assert.Empty(t, s.WalletTransactions())
}

func TestHandleCancellationReturnsUnsoldQuantity(t *testing.T) {
	svc, s := newFixture(t)
	ctx := context.Background()

	root := seedLimitSellRoot(t, s, 6, 10)
	root.Status = domain.OrderStatusPartiallyCompleted
	require.NoError(t, s.SaveStockTransaction(ctx, root))
	require.NoError(t, s.SaveOwnedStock(ctx, &domain.OwnedStock{
		UserName: "alice", StockID: "stock-1", StockName: "Stock One", CurrentQuantity: 4,
	}))

	require.NoError(t, svc.HandleCancellation(ctx, &orders.Cancelled{
		Success: true,
		Data: orders.CancelledData{
			StockID: "stock-1", StockTxID: "sell-root",
			PartiallySold: true, OriQuantity: 6, CurQuantity: 3, SoldQuantity: 3, Price: 10,
		},
	}))

	tx, err := s.GetStockTransaction(ctx, "sell-root")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, tx.Status)

	owned, err := s.GetOwnedStock(ctx, "alice", "stock-1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), owned.CurrentQuantity, "unsold remainder returned")
}

func TestHandleCancellationRejectedByEngine(t *testing.T) {
	svc, s := newFixture(t)
	seedLimitSellRoot(t, s, 6, 10)

	require.NoError(t, svc.HandleCancellation(context.Background(), &orders.Cancelled{Success: false}))

	tx, err := s.GetStockTransaction(context.Background(), "sell-root")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusInProgress, tx.Status, "rejected cancellation changes nothing")
}

type recordingArchive struct {
	stockTxs  []domain.StockTransaction
	walletTxs []domain.WalletTransaction
}

func (a *recordingArchive) ArchiveStockTransaction(_ context.Context, tx *domain.StockTransaction) error {
	a.stockTxs = append(a.stockTxs, *tx)
	return nil
}

func (a *recordingArchive) ArchiveWalletTransaction(_ context.Context, tx *domain.WalletTransaction) error {
	a.walletTxs = append(a.walletTxs, *tx)
	return nil
}

func TestArchiveReceivesOnlyTerminalTransactions(t *testing.T) {
	svc, s := newFixture(t)
	arch := &recordingArchive{}
	svc = svc.WithArchive(arch)

	ctx := context.Background()
	seedLimitSellRoot(t, s, 6, 10)

	require.NoError(t, svc.HandleSaleUpdate(ctx, &orders.SaleUpdate{
		StockID: "stock-1", SoldQuantity: 1, RemainingQuantity: 5,
		Price: 10, StockTxID: "sell-root", UserName: "alice",
	}))

	require.Len(t, arch.stockTxs, 1, "the PARTIALLY_COMPLETED root stays out of the archive")
	assert.Equal(t, domain.OrderStatusCompleted, arch.stockTxs[0].Status)
	assert.NotEqual(t, "sell-root", arch.stockTxs[0].StockTxID)
	require.Len(t, arch.walletTxs, 1)

	require.NoError(t, svc.HandleSaleUpdate(ctx, &orders.SaleUpdate{
		StockID: "stock-1", SoldQuantity: 5, RemainingQuantity: 0,
		Price: 10, StockTxID: "sell-root", UserName: "alice",
	}))

	require.Len(t, arch.stockTxs, 3, "final fill archives its child and the completed root")
	for _, tx := range arch.stockTxs {
		assert.True(t, tx.Status.Terminal())
	}
}

type capturingPublisher struct {
	limitSells []*orders.LimitSellOrder
	cancels    []*orders.CancelSellOrder
}

func (p *capturingPublisher) PublishLimitSell(_ context.Context, order *orders.LimitSellOrder) error {
	p.limitSells = append(p.limitSells, order)
	return nil
}

func (p *capturingPublisher) PublishMarketBuy(_ context.Context, _ *orders.MarketBuyOrder) error {
	return nil
}

func (p *capturingPublisher) PublishCancelSell(_ context.Context, order *orders.CancelSellOrder) error {
	p.cancels = append(p.cancels, order)
	return nil
}

// A limit sell placed through intake and cancelled before any fill must hand
// back exactly the quantity it reserved.
func TestCancelBeforeFillRestoresReservedShares(t *testing.T) {
	svc, s := newFixture(t)
	ctx := context.Background()
	require.NoError(t, s.SaveOwnedStock(ctx, &domain.OwnedStock{
		UserName: "alice", StockID: "stock-1", StockName: "Stock One", CurrentQuantity: 10,
	}))

	pub := &capturingPublisher{}
	placing := intake.NewService(s, s, pub, config.IntakeConfig{
		LockRetryInterval: time.Millisecond,
		PollInterval:      time.Millisecond,
		PollTimeout:       100 * time.Millisecond,
	}, testLogger())

	require.NoError(t, placing.PlaceLimitSell(ctx, "stock-1", 6, 10, "alice"))

	owned, err := s.GetOwnedStock(ctx, "alice", "stock-1")
	require.NoError(t, err)
	require.Equal(t, int64(4), owned.CurrentQuantity)
	require.Len(t, pub.limitSells, 1)

	txID := pub.limitSells[0].StockTxID
	require.NoError(t, placing.CancelTransaction(ctx, txID, "alice"))
	require.Len(t, pub.cancels, 1)

	require.NoError(t, svc.HandleCancellation(ctx, &orders.Cancelled{
		Success: true,
		Data: orders.CancelledData{
			StockID: "stock-1", StockTxID: pub.cancels[0].StockTxID,
			OriQuantity: 6, CurQuantity: 6, Price: 10,
		},
	}))

	owned, err = s.GetOwnedStock(ctx, "alice", "stock-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), owned.CurrentQuantity, "position back where it started")

	tx, err := s.GetStockTransaction(ctx, txID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, tx.Status)
}
