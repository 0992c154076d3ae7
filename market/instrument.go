// market/instrument.go
package market

// Instrument describes a tradeable symbol. Instruments are registered once at
// startup from configuration and never mutated afterwards.
type Instrument struct {
	Symbol     string
	Name       string
	Category   string
	BasePrice  float64
	Volatility float64 // relative stddev per tick
	Spread     float64 // ask = mid + spread, in price units
}
