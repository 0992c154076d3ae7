package market

import (
	"sync"
	"time"
)

// Quote is the latest bid/ask for an instrument. One quote per symbol at any
// time; last write wins.
type Quote struct {
	Symbol string
	Bid    float64
	Ask    float64
	Time   time.Time
}

func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// Board holds the latest quote per symbol. Writers (the tick task and an
// optional external feed) follow last-write-wins; readers must tolerate a
// quote changing between read and use.
type Board struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

func NewBoard() *Board {
	return &Board{quotes: make(map[string]Quote)}
}

func (b *Board) Set(q Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[q.Symbol] = q
}

// Get returns the latest quote for symbol. A missing quote is not an error:
// callers must distinguish "not warmed up yet" from a hard failure.
func (b *Board) Get(symbol string) (Quote, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.quotes[symbol]
	return q, ok
}
