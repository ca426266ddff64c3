package trading

// User is the wallet-bearing account record. WalletBalance never goes below
// zero and IsLocked serializes concurrent buy settlements against the wallet;
// both fields are mutated exclusively through the ledger primitives.
type User struct {
	UserName      string  `json:"user_name"`
	Name          string  `json:"name,omitempty"`
	WalletBalance float64 `json:"wallet_balance"`
	IsLocked      bool    `json:"is_locked"`
}

// Stock is the immutable id -> name mapping. Records are created once and
// never mutated, which is what makes the process-local name cache safe.
type Stock struct {
	StockID   string `json:"stock_id"`
	StockName string `json:"stock_name"`
}

// OwnedStock is a per (user, stock) position. CurrentQuantity never goes
// below zero; decrements happen only through the ledger primitive.
type OwnedStock struct {
	UserName        string `json:"user_name"`
	StockID         string `json:"stock_id"`
	StockName       string `json:"stock_name"`
	CurrentQuantity int64  `json:"current_quantity"`
}
