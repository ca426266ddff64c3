package trading

// OrderStatus tracks a stock transaction through its settlement lifecycle.
// Transitions are forward-only; COMPLETED, CANCELLED and FAILED are terminal.
type OrderStatus string

const (
	OrderStatusPending            OrderStatus = "PENDING"
	OrderStatusInProgress         OrderStatus = "IN_PROGRESS"
	OrderStatusPartiallyCompleted OrderStatus = "PARTIALLY_COMPLETED"
	OrderStatusCompleted          OrderStatus = "COMPLETED"
	OrderStatusCancelled          OrderStatus = "CANCELLED"
	OrderStatusFailed             OrderStatus = "FAILED"
)

func (s OrderStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transition can follow this status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusFailed:
		return true
	default:
		return false
	}
}

// OrderType distinguishes market orders from limit orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

func (t OrderType) String() string {
	return string(t)
}
