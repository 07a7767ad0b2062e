package models

import "github.com/shopspring/decimal"

// WireRecord is the JSON shape of a StockRecord in reader responses.
// Price holds an int64 when the stored decimal is whole, a float64 otherwise.
type WireRecord struct {
	StockID   string      `json:"stockId"`
	Timestamp int64       `json:"timestamp"`
	Price     interface{} `json:"price"`
	ExpireAt  int64       `json:"expireAt"`
}

// WireNumber converts a decimal to the JSON number type it should be encoded as.
func WireNumber(d decimal.Decimal) interface{} {
	if d.IsInteger() {
		return d.IntPart()
	}
	return d.InexactFloat64()
}

func ToWire(r StockRecord) WireRecord {
	return WireRecord{
		StockID:   r.Symbol,
		Timestamp: r.Timestamp,
		Price:     WireNumber(r.Price),
		ExpireAt:  r.ExpireAt,
	}
}

// ToWireList never returns nil so an empty result encodes as [].
func ToWireList(records []StockRecord) []WireRecord {
	out := make([]WireRecord, 0, len(records))
	for _, r := range records {
		out = append(out, ToWire(r))
	}
	return out
}
