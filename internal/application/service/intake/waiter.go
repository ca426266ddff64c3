package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "main/internal/domain/entity/trading"
)

var (
	ErrCompletionTimeout = errors.New("timed out waiting for settlement")
	ErrTransactionFailed = errors.New("transaction failed")
)

// WaitForCompletion polls the transaction until it settles. It is a
// synchronous bridge over the asynchronous settlement path: returning,
// including on timeout, does not stop the settlement itself.
func (s *Service) WaitForCompletion(ctx context.Context, stockTxID string) error {
	deadline := time.Now().Add(s.cfg.PollTimeout)
	for time.Now().Before(deadline) {
		tx, err := s.store.GetStockTransaction(ctx, stockTxID)
		if err != nil {
			return fmt.Errorf("poll transaction %s: %w", stockTxID, err)
		}

		switch tx.Status {
		case domain.OrderStatusCompleted:
			return nil
		case domain.OrderStatusFailed:
			return fmt.Errorf("transaction %s: %w", stockTxID, ErrTransactionFailed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}
	return fmt.Errorf("transaction %s: %w", stockTxID, ErrCompletionTimeout)
}
