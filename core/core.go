// Package core wires the generator, risk rules, trade engine, performance
// aggregator and journal into one facade, and runs the two background tasks
// that drive them.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradeforge/papersim/account"
	"github.com/tradeforge/papersim/config"
	"github.com/tradeforge/papersim/feed"
	"github.com/tradeforge/papersim/journal"
	"github.com/tradeforge/papersim/market"
	"github.com/tradeforge/papersim/sim"
	"github.com/tradeforge/papersim/stats"
	"github.com/tradeforge/papersim/synth"
)

// Re-exported so callers depend on one package for the error taxonomy.
var (
	ErrDataUnavailable = sim.ErrDataUnavailable
	ErrTradeNotFound   = sim.ErrNotFound
)

// RiskStatus is the per-owner view of where the owner stands against the
// active rule set.
type RiskStatus struct {
	Balance              float64
	MaxRiskPercent       float64
	MinRewardRisk        float64
	TradesUsedToday      int
	TradesRemainingToday int
	CooldownActive       bool
	CooldownUntil        time.Time
}

// Core is the simulation facade. All public methods are safe for concurrent
// use.
type Core struct {
	cfg    *config.Config
	log    logrus.FieldLogger
	board  *market.Board
	gen    *synth.Generator
	ledger *account.Ledger
	agg    *stats.Aggregator
	engine *sim.Engine
	jrnl   journal.Journal
	feed   *feed.Client

	loadMu sync.Mutex
	loaded map[string]bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New assembles a core from a validated config and an open journal. Seed 0
// randomizes the price path; tests pass a fixed seed.
func New(cfg *config.Config, jrnl journal.Journal, seed int64, log logrus.FieldLogger) *Core {
	if log == nil {
		log = logrus.StandardLogger()
	}
	board := market.NewBoard()
	gen := synth.NewGenerator(board, seed)
	for _, inst := range cfg.MarketInstruments() {
		gen.Register(inst)
	}

	c := &Core{
		cfg:    cfg,
		log:    log,
		board:  board,
		gen:    gen,
		ledger: account.NewLedger(cfg.Account.SeedBalance),
		agg:    stats.NewAggregator(),
		jrnl:   jrnl,
		loaded: make(map[string]bool),
	}
	c.engine = sim.NewEngine(cfg.Policy(), gen, c.ledger, jrnl, c, log)

	if cfg.Feed.URL != "" {
		c.feed = feed.NewClient(cfg.Feed.URL, cfg.Feed.Symbols, board, log)
	}
	return c
}

// OnSettlement folds a settlement into the aggregator and persists the
// updated record. Persistence failures are logged, never surfaced; the
// in-memory record stays authoritative.
func (c *Core) OnSettlement(ev stats.Settlement) {
	s := c.agg.Apply(ev)
	if err := c.jrnl.SaveStats(s); err != nil {
		c.log.WithError(err).WithField("owner", ev.Owner).Warn("persist stats failed")
	}
	p := stats.EquityPoint{Time: ev.ClosedAt, Balance: ev.Balance}
	if err := c.jrnl.AppendEquity(ev.Owner, p); err != nil {
		c.log.WithError(err).WithField("owner", ev.Owner).Warn("persist equity failed")
	}
}

// Restore reloads persisted state after a restart: open trades rejoin the
// monitor and their owners' performance records are rehydrated.
func (c *Core) Restore() error {
	recs, err := c.jrnl.OpenTrades()
	if err != nil {
		return fmt.Errorf("restore open trades: %w", err)
	}
	c.engine.Restore(recs)

	owners := map[string]bool{}
	for _, rec := range recs {
		owners[rec.Owner] = true
	}
	for owner := range owners {
		c.ensureLoaded(owner)
	}
	if len(recs) > 0 {
		c.log.WithField("trades", len(recs)).Info("restored open trades")
	}
	return nil
}

// ensureLoaded pulls the owner's persisted state into memory once: closed
// trades rejoin the engine's history (the loss-streak check and history
// listing read it) and the performance record's total P&L is replayed onto
// the fresh ledger so the balance matches the journal.
func (c *Core) ensureLoaded(owner string) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()
	if c.loaded[owner] {
		return
	}
	c.loaded[owner] = true

	closed, err := c.jrnl.TradeHistory(owner, 0)
	if err != nil {
		c.log.WithError(err).WithField("owner", owner).Warn("load trade history failed")
	} else if len(closed) > 0 {
		c.engine.Restore(closed)
	}

	s, ok, err := c.jrnl.LoadStats(owner)
	if err != nil {
		c.log.WithError(err).WithField("owner", owner).Warn("load stats failed")
		return
	}
	if !ok {
		return
	}
	c.agg.Load(s)
	if s.TotalPnL != 0 {
		c.ledger.ApplyPnL(owner, s.TotalPnL, time.Now())
	}
}

// Start launches the tick and monitor tasks, plus the feed client when one is
// configured. Stop cancels them and waits.
func (c *Core) Start() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	tick, _ := c.cfg.TickInterval()
	monitor, _ := c.cfg.MonitorInterval()

	c.wg.Add(2)
	go c.loop(ctx, "tick", tick, func(now time.Time) { c.gen.Tick(now) })
	go c.loop(ctx, "monitor", monitor, func(now time.Time) { c.engine.Sweep(now) })

	if c.feed != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			if err := c.feed.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.log.WithError(err).Warn("feed stopped")
			}
		}()
	}
	c.log.WithFields(logrus.Fields{"tick": tick, "monitor": monitor}).Info("simulation started")
}

// loop runs fn on every interval until the context is cancelled. A panic in
// one pass is logged and the loop keeps running; a wedged task must not take
// the whole simulation down.
func (c *Core) loop(ctx context.Context, name string, every time.Duration, fn func(time.Time)) {
	defer c.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.log.WithField("task", name).Errorf("task panic: %v", r)
					}
				}()
				fn(now.UTC())
			}()
		}
	}
}

func (c *Core) Stop() {
	c.runMu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
	c.log.Info("simulation stopped")
}

// OpenTrade validates and opens a trade for owner. Rule rejections return
// *sim.ValidationError and are counted against the owner's consistency
// score.
func (c *Core) OpenTrade(owner string, req sim.OpenRequest) (sim.Trade, error) {
	c.ensureLoaded(owner)
	t, err := c.engine.Open(owner, req)
	if err != nil {
		var verr *sim.ValidationError
		if errors.As(err, &verr) {
			s := c.agg.RecordViolations(owner, len(verr.Violations))
			if serr := c.jrnl.SaveStats(s); serr != nil {
				c.log.WithError(serr).WithField("owner", owner).Warn("persist stats failed")
			}
		}
		return sim.Trade{}, err
	}
	return t, nil
}

// CloseTrade settles one of the owner's open trades at the current price.
func (c *Core) CloseTrade(owner, tradeID string) (sim.Trade, error) {
	c.ensureLoaded(owner)
	return c.engine.Close(owner, tradeID)
}

// ListActiveTrades returns the owner's open trades, oldest first.
func (c *Core) ListActiveTrades(owner string) []sim.Trade {
	c.ensureLoaded(owner)
	return c.engine.Active(owner)
}

// ListTradeHistory returns the owner's closed trades, newest first,
// including trades settled before the last restart.
func (c *Core) ListTradeHistory(owner string, limit int) []sim.Trade {
	c.ensureLoaded(owner)
	return c.engine.History(owner, limit)
}

// GetRiskStatus reports where the owner stands against the rule set right
// now.
func (c *Core) GetRiskStatus(owner string) RiskStatus {
	c.ensureLoaded(owner)
	now := time.Now()
	st := c.ledger.State(owner, now)
	pol := c.cfg.Policy()

	remaining := pol.MaxTradesPerDay - st.TradesToday
	if remaining < 0 {
		remaining = 0
	}
	return RiskStatus{
		Balance:              st.Balance,
		MaxRiskPercent:       pol.MaxRiskPct,
		MinRewardRisk:        pol.MinRR,
		TradesUsedToday:      st.TradesToday,
		TradesRemainingToday: remaining,
		CooldownActive:       now.Before(st.CooldownUntil),
		CooldownUntil:        st.CooldownUntil,
	}
}

// GetPerformanceStats returns the owner's performance record, zero-valued
// for owners who have never traded.
func (c *Core) GetPerformanceStats(owner string) stats.Stats {
	c.ensureLoaded(owner)
	return c.agg.Stats(owner)
}

// GetCandles returns up to count recent candles for (symbol, granularity),
// oldest first. Unknown symbols and granularities yield an empty sequence,
// never an error.
func (c *Core) GetCandles(symbol, granularity string, count int) []market.Candle {
	gran, ok := market.ParseGranularity(granularity)
	if !ok {
		return nil
	}
	return c.gen.Candles(symbol, gran, count)
}

// Instruments lists the registered instruments.
func (c *Core) Instruments() []market.Instrument {
	return c.gen.Instruments()
}

// FeedState reports the external feed's connection state; disconnected when
// no feed is configured.
func (c *Core) FeedState() feed.State {
	if c.feed == nil {
		return feed.StateDisconnected
	}
	return c.feed.State()
}

// ResetAccount wipes the owner back to a fresh seed balance: open trades are
// discarded unsettled, history, stats, equity and cooldown all clear.
func (c *Core) ResetAccount(owner string) error {
	c.engine.ResetOwner(owner)
	c.ledger.Reset(owner)
	c.agg.Reset(owner)

	c.loadMu.Lock()
	c.loaded[owner] = true // fresh state is authoritative, skip rehydration
	c.loadMu.Unlock()

	if err := c.jrnl.ResetOwner(owner); err != nil {
		return fmt.Errorf("reset journal for %s: %w", owner, err)
	}
	return nil
}
