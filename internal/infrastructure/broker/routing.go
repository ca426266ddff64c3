package broker

import (
	"fmt"
	"hash/crc32"
)

// Router maps instruments onto matching engine partitions. The same stock id
// always lands on the same shard for a fixed shard count, which gives the
// engine a single writer per instrument without cross-shard coordination.
type Router struct {
	shards int
}

func NewRouter(shards int) (*Router, error) {
	if shards <= 0 {
		return nil, fmt.Errorf("shard count must be positive, got %d", shards)
	}
	return &Router{shards: shards}, nil
}

// Shard returns the partition index for a stock id.
func (r *Router) Shard(stockID string) int {
	return int(crc32.ChecksumIEEE([]byte(stockID)) % uint32(r.shards))
}

// RoutingKey builds the topic routing key for an order kind and stock id,
// e.g. "order.limit_sell.shard_2".
func (r *Router) RoutingKey(orderKind, stockID string) string {
	return fmt.Sprintf("%s.shard_%d", orderKind, r.Shard(stockID))
}
