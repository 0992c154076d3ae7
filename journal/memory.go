package journal

import (
	"fmt"
	"sort"
	"sync"

	"github.com/tradeforge/papersim/stats"
)

// Memory is an in-process Journal for tests and throwaway runs; nothing
// survives the process.
type Memory struct {
	mu     sync.Mutex
	trades map[string]TradeRecord
	stats  map[string]stats.Stats
	equity map[string][]stats.EquityPoint
}

func NewMemory() *Memory {
	return &Memory{
		trades: make(map[string]TradeRecord),
		stats:  make(map[string]stats.Stats),
		equity: make(map[string][]stats.EquityPoint),
	}
}

func (m *Memory) InsertTrade(t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.trades[t.TradeID]; ok {
		return fmt.Errorf("trade %q already recorded", t.TradeID)
	}
	m.trades[t.TradeID] = t
	return nil
}

func (m *Memory) UpdateTrade(t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.trades[t.TradeID]
	if !ok {
		return fmt.Errorf("trade %q not recorded", t.TradeID)
	}
	cur.ExitPrice = t.ExitPrice
	cur.Status = t.Status
	cur.Result = t.Result
	cur.PnL = t.PnL
	cur.BalanceBefore = t.BalanceBefore
	cur.BalanceAfter = t.BalanceAfter
	cur.CloseTime = t.CloseTime
	cur.CloseReason = t.CloseReason
	m.trades[t.TradeID] = cur
	return nil
}

func (m *Memory) OpenTrades() ([]TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TradeRecord
	for _, t := range m.trades {
		if t.Status == "OPEN" {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out, nil
}

func (m *Memory) TradeHistory(owner string, limit int) ([]TradeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []TradeRecord
	for _, t := range m.trades {
		if t.Owner == owner && t.Status == "CLOSED" {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CloseTime.After(out[j].CloseTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) SaveStats(s stats.Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[s.Owner] = s
	return nil
}

func (m *Memory) LoadStats(owner string) (stats.Stats, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[owner]
	if ok {
		s.EquityCurve = append([]stats.EquityPoint(nil), m.equity[owner]...)
	}
	return s, ok, nil
}

func (m *Memory) AppendEquity(owner string, p stats.EquityPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity[owner] = append(m.equity[owner], p)
	return nil
}

func (m *Memory) LoadEquity(owner string) ([]stats.EquityPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stats.EquityPoint(nil), m.equity[owner]...), nil
}

func (m *Memory) ResetOwner(owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range m.trades {
		if t.Owner == owner {
			delete(m.trades, id)
		}
	}
	delete(m.stats, owner)
	delete(m.equity, owner)
	return nil
}

func (m *Memory) Close() error { return nil }
