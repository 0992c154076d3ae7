// Package stats maintains per-owner performance statistics. Updates are
// incremental: each settlement folds into the running record, never a full
// recompute from trade history.
package stats

import (
	"math"
	"sync"
	"time"
)

// Settlement is the event published by the trade lifecycle engine after a
// trade closes. The result is derived from the P&L sign.
type Settlement struct {
	Owner    string
	PnL      float64
	Balance  float64 // account balance after settlement
	ClosedAt time.Time
}

// EquityPoint is one sample of the append-only equity curve.
type EquityPoint struct {
	Time    time.Time
	Balance float64
}

// Stats is one owner's performance record.
type Stats struct {
	Owner string

	TotalTrades int
	Wins        int
	Losses      int
	BreakEvens  int
	WinRate     float64 // percent

	CurrentStreak     int // positive while winning, negative while losing
	LongestWinStreak  int
	LongestLossStreak int

	TotalPnL    float64
	GrossProfit float64
	GrossLoss   float64
	LargestWin  float64
	LargestLoss float64

	PeakBalance    float64
	MaxDrawdownPct float64

	ProfitFactor     float64
	ConsistencyScore float64
	RuleViolations   int

	EquityCurve []EquityPoint
}

// WinRate returns wins/total as a percentage, 0 when there are no trades.
func WinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// ProfitFactor is gross profit over gross loss. With no losses it reports
// the gross profit itself, which reads as "infinite enough" on a dashboard
// without poisoning downstream math.
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		return grossProfit
	}
	return grossProfit / grossLoss
}

// Consistency blends win rate, drawdown control and rule adherence into a
// 0-100 score: 40 points scale with win rate, 30 points erode once drawdown
// passes 20%, and 30 points erode with the violation rate.
func Consistency(winRate, maxDrawdownPct, violationRate float64) float64 {
	win := winRate * 0.4

	dd := 30.0
	if maxDrawdownPct > 20 {
		dd = 30 - (maxDrawdownPct - 20)
		if dd < 0 {
			dd = 0
		}
	}

	adherence := 30 - violationRate*100
	if adherence < 0 {
		adherence = 0
	}

	score := win + dd + adherence
	return math.Min(100, math.Max(0, score))
}

// Aggregator owns all per-owner records.
type Aggregator struct {
	mu    sync.Mutex
	stats map[string]*Stats
}

func NewAggregator() *Aggregator {
	return &Aggregator{stats: make(map[string]*Stats)}
}

func (a *Aggregator) record(owner string) *Stats {
	s, ok := a.stats[owner]
	if !ok {
		s = &Stats{Owner: owner}
		a.stats[owner] = s
	}
	return s
}

// Apply folds one settlement into the owner's record and returns the updated
// copy for persistence.
func (a *Aggregator) Apply(ev Settlement) Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.record(ev.Owner)
	s.TotalTrades++
	s.TotalPnL += ev.PnL

	switch {
	case ev.PnL > 0:
		s.Wins++
		s.GrossProfit += ev.PnL
		if ev.PnL > s.LargestWin {
			s.LargestWin = ev.PnL
		}
		if s.CurrentStreak > 0 {
			s.CurrentStreak++
		} else {
			s.CurrentStreak = 1
		}
		if s.CurrentStreak > s.LongestWinStreak {
			s.LongestWinStreak = s.CurrentStreak
		}
	case ev.PnL < 0:
		s.Losses++
		s.GrossLoss += -ev.PnL
		if ev.PnL < s.LargestLoss {
			s.LargestLoss = ev.PnL
		}
		if s.CurrentStreak < 0 {
			s.CurrentStreak--
		} else {
			s.CurrentStreak = -1
		}
		if -s.CurrentStreak > s.LongestLossStreak {
			s.LongestLossStreak = -s.CurrentStreak
		}
	default:
		s.BreakEvens++
		s.CurrentStreak = 0
	}

	s.WinRate = WinRate(s.Wins, s.TotalTrades)
	s.ProfitFactor = ProfitFactor(s.GrossProfit, s.GrossLoss)

	// Seed the peak from the pre-settlement balance so a losing streak
	// straight out of the gate still registers drawdown.
	if s.PeakBalance == 0 {
		s.PeakBalance = ev.Balance - ev.PnL
	}
	if ev.Balance > s.PeakBalance {
		s.PeakBalance = ev.Balance
	}
	if s.PeakBalance > 0 {
		dd := (s.PeakBalance - ev.Balance) / s.PeakBalance * 100
		if dd > s.MaxDrawdownPct {
			s.MaxDrawdownPct = dd
		}
	}

	s.EquityCurve = append(s.EquityCurve, EquityPoint{Time: ev.ClosedAt, Balance: ev.Balance})

	s.ConsistencyScore = Consistency(s.WinRate, s.MaxDrawdownPct, a.violationRateLocked(s))
	return *s
}

// RecordViolations counts rejected-trade rule violations; they feed the
// consistency score's adherence component.
func (a *Aggregator) RecordViolations(owner string, n int) Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.record(owner)
	s.RuleViolations += n
	s.ConsistencyScore = Consistency(s.WinRate, s.MaxDrawdownPct, a.violationRateLocked(s))
	return *s
}

func (a *Aggregator) violationRateLocked(s *Stats) float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.RuleViolations) / float64(s.TotalTrades)
}

// Stats returns a copy of the owner's record, zero-valued for new owners.
func (a *Aggregator) Stats(owner string) Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.stats[owner]
	if !ok {
		return Stats{Owner: owner, ConsistencyScore: Consistency(0, 0, 0)}
	}
	out := *s
	out.EquityCurve = append([]EquityPoint(nil), s.EquityCurve...)
	return out
}

// Load restores a persisted record, replacing anything in memory.
func (a *Aggregator) Load(s Stats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := s
	a.stats[s.Owner] = &cp
}

// Reset drops the owner's record.
func (a *Aggregator) Reset(owner string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.stats, owner)
}
