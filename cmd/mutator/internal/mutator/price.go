package mutator

import "github.com/shopspring/decimal"

// Volatility is the largest fractional move of a single run, either direction.
const Volatility = 0.05

var (
	FloorPrice    = decimal.NewFromInt(10)
	BaselinePrice = decimal.RequireFromString("100.00")
)

// NextPrice moves current by a uniform random fraction in [-Volatility, +Volatility],
// clamps it at FloorPrice and rounds half-to-even to cents.
func NextPrice(current decimal.Decimal, rnd Rand) decimal.Decimal {
	pct := rnd.Float64()*2*Volatility - Volatility
	change := decimal.NewFromFloat(pct * current.InexactFloat64())
	return decimal.Max(FloorPrice, current.Add(change)).RoundBank(2)
}
