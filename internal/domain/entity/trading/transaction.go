package trading

import "time"

// StockTransaction records one order and its settlement lifecycle. A limit
// sell that fills in pieces spawns child transactions whose ParentTxID points
// at the root order; children are created already COMPLETED while the root
// advances through PARTIALLY_COMPLETED to COMPLETED.
type StockTransaction struct {
	UserName   string      `json:"user_name"`
	StockTxID  string      `json:"stock_tx_id"`
	StockID    string      `json:"stock_id"`
	WalletTxID string      `json:"wallet_tx_id,omitempty"`
	Status     OrderStatus `json:"order_status"`
	IsBuy      bool        `json:"is_buy"`
	OrderType  OrderType   `json:"order_type"`
	StockPrice float64     `json:"stock_price"`
	Quantity   int64       `json:"quantity"`
	ParentTxID string      `json:"parent_tx_id,omitempty"`
	TimeStamp  time.Time   `json:"time_stamp"`
}

// IsRoot reports whether this transaction is the order as originally placed.
func (t *StockTransaction) IsRoot() bool {
	return t.ParentTxID == ""
}

// WalletTransaction is the durable record of one money movement produced by
// the settlement consumer.
type WalletTransaction struct {
	UserName   string    `json:"user_name"`
	WalletTxID string    `json:"wallet_tx_id"`
	StockTxID  string    `json:"stock_tx_id"`
	IsDebit    bool      `json:"is_debit"`
	Amount     float64   `json:"amount"`
	TimeStamp  time.Time `json:"time_stamp"`
}
