package orders

// Wire contracts exchanged with the external matching engine over RabbitMQ.
// Outbound orders go to the topic exchange under <kind>.shard_<n> routing
// keys; inbound settlement events arrive on the direct update exchange.

// Outbound order kinds. The routing key is "<kind>.shard_<n>".
const (
	KindLimitSell     = "order.limit_sell"
	KindMarketBuy     = "order.market_buy"
	KindCancelSell    = "order.limit_sell_cancellation"
	EventSaleUpdate   = "order.sale_update"
	EventBuyCompleted = "order.buy_completed"
	EventCancelled    = "order.cancelled"
)

// LimitSellOrder asks the matching engine to book a limit sell.
type LimitSellOrder struct {
	StockID   string  `json:"stock_id"`
	StockName string  `json:"stock_name"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
	StockTxID string  `json:"stock_tx_id"`
	UserName  string  `json:"user_name"`
}

// MarketBuyOrder asks the matching engine to fill a buy against the user's
// whole wallet balance; Budget caps what the engine may spend.
type MarketBuyOrder struct {
	StockID   string  `json:"stock_id"`
	Quantity  int64   `json:"quantity"`
	StockTxID string  `json:"stock_tx_id"`
	Budget    float64 `json:"budget"`
	UserName  string  `json:"user_name"`
}

// CancelSellOrder asks the matching engine to cancel the root limit sell.
type CancelSellOrder struct {
	StockID   string  `json:"stock_id"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
	StockTxID string  `json:"stock_tx_id"`
}

// SaleUpdate reports one fill against a limit sell. SoldQuantity is the size
// of this fill, RemainingQuantity what is still open on the book.
type SaleUpdate struct {
	StockID           string  `json:"stock_id"`
	SoldQuantity      int64   `json:"sold_quantity"`
	RemainingQuantity int64   `json:"remaining_quantity"`
	Price             float64 `json:"price"`
	StockTxID         string  `json:"stock_tx_id"`
	UserName          string  `json:"user_name"`
}

// BuyCompleted is the envelope for a finished market buy. Success false
// means the engine could not fill within budget and no funds moved.
type BuyCompleted struct {
	Success bool             `json:"success"`
	Data    BuyCompletedData `json:"data"`
}

type BuyCompletedData struct {
	StockID    string  `json:"stock_id"`
	StockTxID  string  `json:"stock_tx_id"`
	Quantity   int64   `json:"quantity"`
	PriceTotal float64 `json:"price_total"`
}

// Cancelled is the envelope for a cancellation acknowledgement. CurQuantity
// is the unsold remainder to return to the seller's portfolio.
type Cancelled struct {
	Success bool          `json:"success"`
	Data    CancelledData `json:"data"`
}

type CancelledData struct {
	StockID       string  `json:"stock_id"`
	StockTxID     string  `json:"stock_tx_id"`
	PartiallySold bool    `json:"partially_sold"`
	OriQuantity   int64   `json:"ori_quantity"`
	CurQuantity   int64   `json:"cur_quantity"`
	SoldQuantity  int64   `json:"sold_quantity"`
	Price         float64 `json:"price"`
}
