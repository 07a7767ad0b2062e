package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Retention is how long a stored version stays before the store may remove it.
const Retention = 30 * 24 * time.Hour

// StockRecord is one immutable version of a symbol's price history.
// (Symbol, Timestamp) identifies it.
type StockRecord struct {
	Symbol    string          `json:"stockId"`
	Timestamp int64           `json:"timestamp"` // unix seconds
	Price     decimal.Decimal `json:"price"`
	ExpireAt  int64           `json:"expireAt"` // unix seconds
}

// NewStockRecord stamps a record at now with an expiry one retention window later.
func NewStockRecord(symbol string, price decimal.Decimal, now time.Time) StockRecord {
	return StockRecord{
		Symbol:    symbol,
		Timestamp: now.Unix(),
		Price:     price,
		ExpireAt:  now.Add(Retention).Unix(),
	}
}

// StockUpdate is the price feed event emitted after a record is appended.
type StockUpdate struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"` // unix seconds
	ExpireAt  int64   `json:"expire_at"`
}

func (r StockRecord) Update() StockUpdate {
	return StockUpdate{
		Symbol:    r.Symbol,
		Price:     r.Price.InexactFloat64(),
		Timestamp: r.Timestamp,
		ExpireAt:  r.ExpireAt,
	}
}
