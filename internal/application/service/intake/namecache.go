package intake

import (
	"context"
	"sync"

	"main/internal/domain/interfaces"
)

// nameCache memoizes stock id -> name lookups. Safe only because stock
// records are immutable after creation; a renameable stock would require
// dropping this cache and querying the store every time.
type nameCache struct {
	store interfaces.TradingStore

	mu    sync.RWMutex
	names map[string]string
}

func newNameCache(store interfaces.TradingStore) *nameCache {
	return &nameCache{
		store: store,
		names: make(map[string]string),
	}
}

func (c *nameCache) resolve(ctx context.Context, stockID string) (string, error) {
	c.mu.RLock()
	name, ok := c.names[stockID]
	c.mu.RUnlock()
	if ok {
		return name, nil
	}

	stock, err := c.store.GetStock(ctx, stockID)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.names[stockID] = stock.StockName
	c.mu.Unlock()
	return stock.StockName, nil
}
