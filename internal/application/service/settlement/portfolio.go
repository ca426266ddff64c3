package settlement

import (
	"context"
	"errors"
	"fmt"

	"main/internal/domain/interfaces"

	domain "main/internal/domain/entity/trading"
)

// addQuantity credits qty shares to the user's position, creating the
// owned-stock record on first acquisition. Increments on an existing record
// go through the ledger primitive so they compose with concurrent sells.
func (s *Service) addQuantity(ctx context.Context, stockID, userName string, qty int64) error {
	_, err := s.store.GetOwnedStock(ctx, userName, stockID)
	switch {
	case err == nil:
		ok, err := s.ledger.UpdateOwnedQuantity(ctx, userName, stockID, qty)
		if err != nil {
			return fmt.Errorf("increment owned quantity: %w", err)
		}
		if !ok {
			return fmt.Errorf("increment owned quantity for %s/%s rejected", userName, stockID)
		}
		return nil
	case errors.Is(err, interfaces.ErrOwnedStockNotFound):
		stock, err := s.store.GetStock(ctx, stockID)
		if err != nil {
			return fmt.Errorf("fetch stock %s: %w", stockID, err)
		}
		return s.store.SaveOwnedStock(ctx, &domain.OwnedStock{
			UserName:        userName,
			StockID:         stockID,
			StockName:       stock.StockName,
			CurrentQuantity: qty,
		})
	default:
		return fmt.Errorf("fetch owned stock %s/%s: %w", userName, stockID, err)
	}
}
