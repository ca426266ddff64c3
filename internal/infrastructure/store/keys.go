package store

import "fmt"

// Key prefixes mirror the logical collections of the document store. Owned
// stock keys compound user and stock so one position maps to one document.
const (
	userPrefix     = "users:"
	stockPrefix    = "stocks:"
	ownedPrefix    = "owned_stocks:"
	stockTxPrefix  = "stock_transactions:"
	walletTxPrefix = "wallet_transactions:"
)

func userKey(userName string) string {
	return userPrefix + userName
}

func stockKey(stockID string) string {
	return stockPrefix + stockID
}

func ownedStockKey(userName, stockID string) string {
	return fmt.Sprintf("%s%s:%s", ownedPrefix, userName, stockID)
}

func stockTxKey(stockTxID string) string {
	return stockTxPrefix + stockTxID
}

func walletTxKey(walletTxID string) string {
	return walletTxPrefix + walletTxID
}
