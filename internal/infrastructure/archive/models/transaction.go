package models

import (
	"time"

	"gorm.io/gorm"
)

// StockTransactionModel is the reporting row for a settled order. Terminal
// records are upserted by transaction id, so a root that moves from
// PARTIALLY_COMPLETED to COMPLETED overwrites its earlier row.
type StockTransactionModel struct {
	StockTxID   string         `gorm:"primaryKey;column:stock_tx_id;type:varchar(64);not null"`
	ParentTxID  string         `gorm:"column:parent_tx_id;type:varchar(64);index"`
	UserName    string         `gorm:"column:user_name;type:varchar(255);not null;index"`
	StockID     string         `gorm:"column:stock_id;type:varchar(64);not null;index"`
	WalletTxID  string         `gorm:"column:wallet_tx_id;type:varchar(64)"`
	OrderStatus string         `gorm:"column:order_status;type:varchar(32);not null"`
	IsBuy       bool           `gorm:"column:is_buy;not null"`
	OrderType   string         `gorm:"column:order_type;type:varchar(16);not null"`
	StockPrice  float64        `gorm:"column:stock_price;type:numeric(18,4);not null"`
	Quantity    int64          `gorm:"column:quantity;type:bigint;not null"`
	TimeStamp   time.Time      `gorm:"column:time_stamp;type:timestamp;not null"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;type:timestamp;index"`
}

func (StockTransactionModel) TableName() string {
	return "archived_stock_transactions"
}

// WalletTransactionModel is the reporting row for one money movement.
type WalletTransactionModel struct {
	WalletTxID string         `gorm:"primaryKey;column:wallet_tx_id;type:varchar(64);not null"`
	StockTxID  string         `gorm:"column:stock_tx_id;type:varchar(64);not null;index"`
	UserName   string         `gorm:"column:user_name;type:varchar(255);not null;index"`
	IsDebit    bool           `gorm:"column:is_debit;not null"`
	Amount     float64        `gorm:"column:amount;type:numeric(18,4);not null"`
	TimeStamp  time.Time      `gorm:"column:time_stamp;type:timestamp;not null"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_at;type:timestamp;index"`
}

func (WalletTransactionModel) TableName() string {
	return "archived_wallet_transactions"
}
