// Package archive persists terminal transactions into Postgres for
// reporting. It is write-only from the settlement consumer's point of view
// and entirely optional: settlement correctness never depends on it.
package archive

import (
	"context"
	"errors"
	"fmt"

	"main/internal/domain/interfaces"
	"main/internal/infrastructure/archive/models"

	domain "main/internal/domain/entity/trading"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

var _ interfaces.TransactionArchive = (*Repository)(nil)

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

const upsertStockTxQuery = `
	INSERT INTO archived_stock_transactions
		(stock_tx_id, parent_tx_id, user_name, stock_id, wallet_tx_id, order_status, is_buy, order_type, stock_price, quantity, time_stamp)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	ON CONFLICT (stock_tx_id) DO UPDATE SET
		wallet_tx_id = EXCLUDED.wallet_tx_id,
		order_status = EXCLUDED.order_status,
		stock_price  = EXCLUDED.stock_price`

func (r *Repository) ArchiveStockTransaction(ctx context.Context, tx *domain.StockTransaction) error {
	if tx == nil {
		return errors.New("nil stock transaction")
	}
	row := models.StockTransactionModel{
		StockTxID:   tx.StockTxID,
		ParentTxID:  tx.ParentTxID,
		UserName:    tx.UserName,
		StockID:     tx.StockID,
		WalletTxID:  tx.WalletTxID,
		OrderStatus: tx.Status.String(),
		IsBuy:       tx.IsBuy,
		OrderType:   tx.OrderType.String(),
		StockPrice:  tx.StockPrice,
		Quantity:    tx.Quantity,
		TimeStamp:   tx.TimeStamp,
	}
	_, err := r.pool.Exec(ctx, upsertStockTxQuery,
		row.StockTxID,
		row.ParentTxID,
		row.UserName,
		row.StockID,
		row.WalletTxID,
		row.OrderStatus,
		row.IsBuy,
		row.OrderType,
		row.StockPrice,
		row.Quantity,
		row.TimeStamp,
	)
	if err != nil {
		return fmt.Errorf("archive stock transaction %s: %w", row.StockTxID, err)
	}
	return nil
}

const insertWalletTxQuery = `
	INSERT INTO archived_wallet_transactions
		(wallet_tx_id, stock_tx_id, user_name, is_debit, amount, time_stamp)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (wallet_tx_id) DO NOTHING`

func (r *Repository) ArchiveWalletTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	if tx == nil {
		return errors.New("nil wallet transaction")
	}
	row := models.WalletTransactionModel{
		WalletTxID: tx.WalletTxID,
		StockTxID:  tx.StockTxID,
		UserName:   tx.UserName,
		IsDebit:    tx.IsDebit,
		Amount:     tx.Amount,
		TimeStamp:  tx.TimeStamp,
	}
	_, err := r.pool.Exec(ctx, insertWalletTxQuery,
		row.WalletTxID,
		row.StockTxID,
		row.UserName,
		row.IsDebit,
		row.Amount,
		row.TimeStamp,
	)
	if err != nil {
		return fmt.Errorf("archive wallet transaction %s: %w", row.WalletTxID, err)
	}
	return nil
}
