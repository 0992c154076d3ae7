// Package account tracks per-owner balances and trading-discipline state:
// the daily trade counter and the loss-streak cooldown.
package account

import (
	"sync"
	"time"

	"github.com/tradeforge/papersim/risk"
)

// State is one owner's risk state. Balance always equals the seed balance
// plus the sum of realized P&L applied through the ledger.
type State struct {
	Balance       float64
	SeedBalance   float64
	TradesToday   int
	DayStart      time.Time
	CooldownUntil time.Time
}

// Ledger holds all owner states. The trade lifecycle engine is the only
// writer for balances; the cooldown is written by the loss-streak check.
type Ledger struct {
	mu     sync.Mutex
	seed   float64
	owners map[string]*State
}

func NewLedger(seedBalance float64) *Ledger {
	return &Ledger{
		seed:   seedBalance,
		owners: make(map[string]*State),
	}
}

// state lazily seeds unknown owners. Callers hold l.mu.
func (l *Ledger) state(owner string, now time.Time) *State {
	s, ok := l.owners[owner]
	if !ok {
		s = &State{
			Balance:     l.seed,
			SeedBalance: l.seed,
			DayStart:    dayStart(now),
		}
		l.owners[owner] = s
	}
	if ds := dayStart(now); !ds.Equal(s.DayStart) {
		s.DayStart = ds
		s.TradesToday = 0
	}
	return s
}

// dayStart truncates to local midnight; the daily trade cap resets there.
func dayStart(now time.Time) time.Time {
	y, m, d := now.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// Snapshot returns the read-only view the risk validator consumes.
func (l *Ledger) Snapshot(owner string, now time.Time) risk.AccountSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state(owner, now)
	return risk.AccountSnapshot{
		Balance:       s.Balance,
		TradesToday:   s.TradesToday,
		CooldownUntil: s.CooldownUntil,
	}
}

// State returns a copy of the owner's full state.
func (l *Ledger) State(owner string, now time.Time) State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.state(owner, now)
}

// IncTradeCount bumps the owner's daily counter after a trade opens.
func (l *Ledger) IncTradeCount(owner string, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state(owner, now).TradesToday++
}

// ApplyPnL settles realized P&L into the balance and returns the balances
// before and after.
func (l *Ledger) ApplyPnL(owner string, pnl float64, now time.Time) (before, after float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state(owner, now)
	before = s.Balance
	s.Balance += pnl
	return before, s.Balance
}

// StartCooldown locks the owner out of new trades until the given time.
func (l *Ledger) StartCooldown(owner string, until time.Time, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state(owner, now).CooldownUntil = until
}

// Reset restores the seed balance and clears counters and cooldown.
func (l *Ledger) Reset(owner string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	s := l.state(owner, now)
	s.Balance = s.SeedBalance
	s.TradesToday = 0
	s.DayStart = dayStart(now)
	s.CooldownUntil = time.Time{}
}
