package market

import "time"

// MaxCandles bounds per-series retention; oldest candles are evicted first.
const MaxCandles = 1000

// Candle is one OHLC bucket. Start is the bucket open time.
type Candle struct {
	Start time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Series holds candles for one (symbol, granularity) pair. Bucket starts are
// strictly increasing; only the most recent candle is mutable. Series is not
// safe for concurrent use; the owning generator serializes access.
type Series struct {
	Granularity Granularity
	candles     []Candle
}

func NewSeries(g Granularity) *Series {
	return &Series{Granularity: g}
}

func (s *Series) Len() int { return len(s.candles) }

// Update folds a price into the series. If t falls into the open bucket the
// candle is widened, otherwise the open candle is sealed and a new one starts
// at open=high=low=close=price.
func (s *Series) Update(t time.Time, price float64) {
	start := s.Granularity.Bucket(t)

	if n := len(s.candles); n > 0 {
		cur := &s.candles[n-1]
		if cur.Start.Equal(start) {
			if price > cur.High {
				cur.High = price
			}
			if price < cur.Low {
				cur.Low = price
			}
			cur.Close = price
			return
		}
		if start.Before(cur.Start) {
			// Out-of-order timestamp; bucket starts must stay increasing.
			return
		}
	}

	s.candles = append(s.candles, Candle{
		Start: start,
		Open:  price,
		High:  price,
		Low:   price,
		Close: price,
	})
	if len(s.candles) > MaxCandles {
		s.candles = s.candles[len(s.candles)-MaxCandles:]
	}
}

// Recent returns the most recent count candles, oldest first. The result is a
// copy and safe to hold across updates.
func (s *Series) Recent(count int) []Candle {
	if count <= 0 || len(s.candles) == 0 {
		return nil
	}
	if count > len(s.candles) {
		count = len(s.candles)
	}
	out := make([]Candle, count)
	copy(out, s.candles[len(s.candles)-count:])
	return out
}

// Reset drops all accumulated candles.
func (s *Series) Reset() {
	s.candles = nil
}
