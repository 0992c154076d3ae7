// Package sim owns the OPEN->CLOSED trade state machine and is the only
// path from trading activity to account-balance mutation.
package sim

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradeforge/papersim/account"
	"github.com/tradeforge/papersim/internal/id"
	"github.com/tradeforge/papersim/journal"
	"github.com/tradeforge/papersim/market"
	"github.com/tradeforge/papersim/risk"
	"github.com/tradeforge/papersim/stats"
)

// PriceSource is the quote lookup the engine monitors trades against.
// Absence of a price is not an error; the monitor just skips that cycle.
type PriceSource interface {
	LatestPrice(symbol string) (float64, bool)
}

// SettlementListener is notified after every settlement, outside the engine
// lock. The performance aggregator sits behind this.
type SettlementListener interface {
	OnSettlement(stats.Settlement)
}

// OpenRequest is a caller's proposed trade.
type OpenRequest struct {
	Symbol     string
	Direction  market.Direction
	Lots       float64
	StopLoss   float64
	TakeProfit float64
}

type Engine struct {
	mu       sync.Mutex
	policy   risk.Policy
	prices   PriceSource
	ledger   *account.Ledger
	journal  journal.Journal
	listener SettlementListener
	log      logrus.FieldLogger

	trades  map[string]*Trade   // every trade this process knows, open and closed
	history map[string][]*Trade // closed trades per owner, oldest first
}

func NewEngine(policy risk.Policy, prices PriceSource, ledger *account.Ledger, j journal.Journal, listener SettlementListener, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{
		policy:   policy,
		prices:   prices,
		ledger:   ledger,
		journal:  j,
		listener: listener,
		log:      log,
		trades:   make(map[string]*Trade),
		history:  make(map[string][]*Trade),
	}
}

// Open validates and opens a trade at the current market price. It returns
// ErrDataUnavailable when the symbol has no quote yet and *ValidationError
// when the risk rules reject the request; no Trade object exists in either
// case. The ledger snapshot, rule evaluation and counter increment form one
// critical section, so concurrent opens cannot both squeeze past the daily
// cap or the solvency check.
func (e *Engine) Open(owner string, req OpenRequest) (Trade, error) {
	now := time.Now().UTC()

	e.mu.Lock()
	defer e.mu.Unlock()

	price, ok := e.prices.LatestPrice(req.Symbol)
	if !ok {
		return Trade{}, fmt.Errorf("%s: %w", req.Symbol, ErrDataUnavailable)
	}

	intent := risk.TradeIntent{
		Symbol:     req.Symbol,
		Direction:  req.Direction,
		Lots:       req.Lots,
		Entry:      price,
		Stop:       req.StopLoss,
		TakeProfit: req.TakeProfit,
	}
	snap := e.ledger.Snapshot(owner, now)
	decision := risk.Evaluate(e.policy, intent, snap, now)
	if !decision.Allowed {
		return Trade{}, &ValidationError{Violations: decision.Violations}
	}

	t := &Trade{
		ID:         id.New(),
		Owner:      owner,
		Symbol:     req.Symbol,
		Direction:  req.Direction,
		Lots:       req.Lots,
		EntryPrice: price,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		RiskPct:    decision.RiskPct,
		RR:         decision.RR,
		Status:     StatusOpen,
		OpenTime:   now,
	}

	if err := e.journal.InsertTrade(record(t)); err != nil {
		return Trade{}, fmt.Errorf("journal trade %s: %w", t.ID, err)
	}

	e.trades[t.ID] = t
	e.ledger.IncTradeCount(owner, now)
	return *t, nil
}

// Sweep is the monitor pass: every open trade is checked against its
// instrument's latest price and settled on a stop-loss or take-profit
// breach. A missing price skips the trade until the next cycle. Settlement
// listeners run after the lock is released.
func (e *Engine) Sweep(now time.Time) {
	e.mu.Lock()

	var settled []stats.Settlement
	for _, t := range e.trades {
		if t.Status != StatusOpen {
			continue
		}
		price, ok := e.prices.LatestPrice(t.Symbol)
		if !ok {
			continue
		}

		var reason CloseReason
		switch {
		case hitStopLoss(t, price):
			reason = ReasonStopLoss
		case hitTakeProfit(t, price):
			reason = ReasonTakeProfit
		default:
			continue
		}

		if ev, ok := e.settleLocked(t, price, reason, now); ok {
			settled = append(settled, ev)
		}
	}

	listener := e.listener
	e.mu.Unlock()

	if listener != nil {
		for _, ev := range settled {
			listener.OnSettlement(ev)
		}
	}
}

// Close settles an open trade at the current price with reason MANUAL. It is
// deliberately not idempotent: closing an already-closed or unknown trade
// returns ErrNotFound so a double close is detectable.
func (e *Engine) Close(owner, tradeID string) (Trade, error) {
	now := time.Now().UTC()

	e.mu.Lock()
	t, ok := e.trades[tradeID]
	if !ok || t.Owner != owner || t.Status != StatusOpen {
		e.mu.Unlock()
		return Trade{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
	}

	price, okPrice := e.prices.LatestPrice(t.Symbol)
	if !okPrice {
		e.mu.Unlock()
		return Trade{}, fmt.Errorf("%s: %w", t.Symbol, ErrDataUnavailable)
	}

	ev, won := e.settleLocked(t, price, ReasonManual, now)
	closed := *t
	listener := e.listener
	e.mu.Unlock()

	if !won {
		// Lost the race against the monitor task.
		return Trade{}, fmt.Errorf("trade %q: %w", tradeID, ErrNotFound)
	}
	if listener != nil {
		listener.OnSettlement(ev)
	}
	return closed, nil
}

// settleLocked performs the shared settlement. The OPEN->CLOSED transition
// is the first step; only the caller that wins it executes the body, which
// is what keeps "monitor settles" and "manual close settles" mutually
// exclusive.
func (e *Engine) settleLocked(t *Trade, exit float64, reason CloseReason, now time.Time) (stats.Settlement, bool) {
	if t.Status != StatusOpen {
		return stats.Settlement{}, false
	}
	t.Status = StatusClosed

	pnl := RealizedPnL(t.Direction, t.EntryPrice, exit, t.Lots)
	before, after := e.ledger.ApplyPnL(t.Owner, pnl, now)

	t.ExitPrice = exit
	t.PnL = pnl
	t.Result = resultFor(pnl)
	t.BalanceBefore = before
	t.BalanceAfter = after
	t.CloseTime = now
	t.CloseReason = reason

	e.history[t.Owner] = append(e.history[t.Owner], t)

	if err := e.journal.UpdateTrade(record(t)); err != nil {
		// A journal hiccup must not halt settlement; the in-memory state
		// stays authoritative for this process.
		e.log.WithError(err).WithField("trade", t.ID).Warn("journal update failed")
	}

	e.checkLossStreakLocked(t.Owner, now)

	return stats.Settlement{
		Owner:    t.Owner,
		PnL:      pnl,
		Balance:  after,
		ClosedAt: now,
	}, true
}

// checkLossStreakLocked starts a cooldown when the owner's most recent
// LossStreakLen closed trades are all losses.
func (e *Engine) checkLossStreakLocked(owner string, now time.Time) {
	n := e.policy.LossStreakLen
	hist := e.history[owner]
	if n <= 0 || len(hist) < n {
		return
	}
	for _, t := range hist[len(hist)-n:] {
		if t.Result != ResultLoss {
			return
		}
	}
	e.ledger.StartCooldown(owner, now.Add(e.policy.Cooldown), now)
}

// Active returns the owner's open trades, oldest first.
func (e *Engine) Active(owner string) []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Trade
	for _, t := range e.trades {
		if t.Owner == owner && t.Status == StatusOpen {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenTime.Before(out[j].OpenTime) })
	return out
}

// History returns the owner's closed trades, most recently closed first.
// limit <= 0 returns everything.
func (e *Engine) History(owner string, limit int) []Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	hist := e.history[owner]
	var out []Trade
	for i := len(hist) - 1; i >= 0; i-- {
		out = append(out, *hist[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// ResetOwner drops all of the owner's trades from the engine. The caller
// resets the ledger, stats and journal alongside.
func (e *Engine) ResetOwner(owner string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for tid, t := range e.trades {
		if t.Owner == owner {
			delete(e.trades, tid)
		}
	}
	delete(e.history, owner)
}

// Restore reloads persisted trades after a restart. Open trades rejoin the
// monitoring set; closed trades rebuild the per-owner history the
// loss-streak check reads.
func (e *Engine) Restore(recs []journal.TradeRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var closed []*Trade
	for _, rec := range recs {
		t := fromRecord(rec)
		e.trades[t.ID] = t
		if t.Status == StatusClosed {
			closed = append(closed, t)
		}
	}
	sort.Slice(closed, func(i, j int) bool { return closed[i].CloseTime.Before(closed[j].CloseTime) })
	for _, t := range closed {
		e.history[t.Owner] = append(e.history[t.Owner], t)
	}
}

func record(t *Trade) journal.TradeRecord {
	return journal.TradeRecord{
		TradeID:       t.ID,
		Owner:         t.Owner,
		Symbol:        t.Symbol,
		Direction:     string(t.Direction),
		Lots:          t.Lots,
		EntryPrice:    t.EntryPrice,
		ExitPrice:     t.ExitPrice,
		StopLoss:      t.StopLoss,
		TakeProfit:    t.TakeProfit,
		RiskPct:       t.RiskPct,
		RR:            t.RR,
		Status:        string(t.Status),
		Result:        string(t.Result),
		PnL:           t.PnL,
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		OpenTime:      t.OpenTime,
		CloseTime:     t.CloseTime,
		CloseReason:   string(t.CloseReason),
	}
}

func fromRecord(rec journal.TradeRecord) *Trade {
	return &Trade{
		ID:            rec.TradeID,
		Owner:         rec.Owner,
		Symbol:        rec.Symbol,
		Direction:     market.Direction(rec.Direction),
		Lots:          rec.Lots,
		EntryPrice:    rec.EntryPrice,
		ExitPrice:     rec.ExitPrice,
		StopLoss:      rec.StopLoss,
		TakeProfit:    rec.TakeProfit,
		RiskPct:       rec.RiskPct,
		RR:            rec.RR,
		Status:        Status(rec.Status),
		Result:        Result(rec.Result),
		PnL:           rec.PnL,
		BalanceBefore: rec.BalanceBefore,
		BalanceAfter:  rec.BalanceAfter,
		OpenTime:      rec.OpenTime,
		CloseTime:     rec.CloseTime,
		CloseReason:   CloseReason(rec.CloseReason),
	}
}
