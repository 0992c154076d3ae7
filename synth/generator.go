// Package synth produces a continuous synthetic price stream for registered
// instruments and maintains OHLC candles at every tracked granularity.
package synth

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/tradeforge/papersim/market"
)

// backfillCandles is how much 1-minute history a freshly registered
// instrument gets, so charts are not empty before the first live tick.
const backfillCandles = 100

// Generator owns the instrument registry and the latest-quote board. Tick is
// the single writer for quotes and candles; reads go through LatestPrice and
// Candles.
type Generator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	board       *market.Board
	instruments map[string]market.Instrument
	mids        map[string]float64
	series      map[string]map[market.Granularity]*market.Series
}

// NewGenerator builds a generator writing to board. A non-zero seed makes the
// price path deterministic, which tests rely on.
func NewGenerator(board *market.Board, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng:         rand.New(rand.NewSource(seed)),
		board:       board,
		instruments: make(map[string]market.Instrument),
		mids:        make(map[string]float64),
		series:      make(map[string]map[market.Granularity]*market.Series),
	}
}

func (g *Generator) Board() *market.Board { return g.board }

// Register adds an instrument, seeds its quote at the base price and
// back-fills synthetic 1-minute history. Re-registering an existing symbol
// replaces its configuration but keeps accumulated candles.
func (g *Generator) Register(inst market.Instrument) {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, known := g.instruments[inst.Symbol]
	g.instruments[inst.Symbol] = inst
	if known {
		return
	}

	sm := make(map[market.Granularity]*market.Series, len(market.Granularities))
	for _, gr := range market.Granularities {
		sm[gr] = market.NewSeries(gr)
	}
	g.series[inst.Symbol] = sm

	g.backfillLocked(inst, sm)

	g.mids[inst.Symbol] = inst.BasePrice
	g.board.Set(market.Quote{
		Symbol: inst.Symbol,
		Bid:    inst.BasePrice,
		Ask:    inst.BasePrice + inst.Spread,
		Time:   time.Now().UTC(),
	})
}

// backfillLocked walks the same stochastic process over the past
// backfillCandles minutes so a new instrument has immediate chart history.
func (g *Generator) backfillLocked(inst market.Instrument, sm map[market.Granularity]*market.Series) {
	start := time.Now().UTC().Add(-backfillCandles * time.Minute).Truncate(time.Minute)
	mid := inst.BasePrice
	for i := 0; i < backfillCandles; i++ {
		ts := start.Add(time.Duration(i) * time.Minute)
		// A handful of steps per minute gives each candle a real range.
		for s := 0; s < 4; s++ {
			mid = g.stepLocked(mid, inst.Volatility)
			at := ts.Add(time.Duration(s) * 15 * time.Second)
			for _, series := range sm {
				series.Update(at, mid)
			}
		}
	}
}

// ResetHistory drops accumulated candles for symbol, keeping its
// registration and current quote.
func (g *Generator) ResetHistory(symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, s := range g.series[symbol] {
		s.Reset()
	}
}

// Tick advances every registered instrument by one stochastic step at time
// now, publishing the new quote and folding it into all candle series.
func (g *Generator) Tick(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for sym, inst := range g.instruments {
		mid := g.stepLocked(g.mids[sym], inst.Volatility)
		g.mids[sym] = mid

		g.board.Set(market.Quote{
			Symbol: sym,
			Bid:    mid,
			Ask:    mid + inst.Spread,
			Time:   now,
		})
		for _, s := range g.series[sym] {
			s.Update(now, mid)
		}
	}
}

// stepLocked applies one relative price change: mid * (1 + N(0,1)*vol).
func (g *Generator) stepLocked(mid, vol float64) float64 {
	next := mid * (1 + g.normLocked()*vol)
	if next <= 0 {
		// A pathological draw must not kill the walk.
		next = mid
	}
	return next
}

// normLocked draws a standard normal sample via the Box-Muller transform.
func (g *Generator) normLocked() float64 {
	u1 := g.rng.Float64()
	for u1 == 0 {
		u1 = g.rng.Float64()
	}
	u2 := g.rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// LatestPrice returns the current bid for symbol. The second return is false
// when the symbol is unregistered or has not ticked yet.
func (g *Generator) LatestPrice(symbol string) (float64, bool) {
	q, ok := g.board.Get(symbol)
	if !ok {
		return 0, false
	}
	return q.Bid, true
}

// Candles returns the most recent count candles for (symbol, gran), oldest
// first. Unknown symbols or granularities yield an empty slice, not an error.
func (g *Generator) Candles(symbol string, gran market.Granularity, count int) []market.Candle {
	g.mu.Lock()
	defer g.mu.Unlock()
	sm, ok := g.series[symbol]
	if !ok {
		return nil
	}
	s, ok := sm[gran]
	if !ok {
		return nil
	}
	return s.Recent(count)
}

// Instruments returns the registered instruments, for status reporting.
func (g *Generator) Instruments() []market.Instrument {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]market.Instrument, 0, len(g.instruments))
	for _, inst := range g.instruments {
		out = append(out, inst)
	}
	return out
}
