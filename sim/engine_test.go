package sim

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tradeforge/papersim/account"
	"github.com/tradeforge/papersim/journal"
	"github.com/tradeforge/papersim/market"
	"github.com/tradeforge/papersim/risk"
	"github.com/tradeforge/papersim/stats"
)

type stubPrices struct {
	mu sync.Mutex
	m  map[string]float64
}

func (s *stubPrices) set(sym string, p float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sym] = p
}

func (s *stubPrices) LatestPrice(sym string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[sym]
	return p, ok
}

type captureListener struct {
	mu     sync.Mutex
	events []stats.Settlement
}

func (l *captureListener) OnSettlement(ev stats.Settlement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *captureListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func newTestEngine(t *testing.T) (*Engine, *stubPrices, *account.Ledger, *captureListener) {
	t.Helper()
	prices := &stubPrices{m: map[string]float64{}}
	ledger := account.NewLedger(10000)
	listener := &captureListener{}
	e := NewEngine(risk.DefaultPolicy(), prices, ledger, journal.NewMemory(), listener, nil)
	return e, prices, ledger, listener
}

func openBuy(t *testing.T, e *Engine, owner string, lots, sl, tp float64) Trade {
	t.Helper()
	tr, err := e.Open(owner, OpenRequest{
		Symbol:     "EURUSD",
		Direction:  market.Buy,
		Lots:       lots,
		StopLoss:   sl,
		TakeProfit: tp,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return tr
}

func TestOpenRecordsTradeAndCounter(t *testing.T) {
	e, prices, ledger, _ := newTestEngine(t)
	prices.set("EURUSD", 100)

	tr := openBuy(t, e, "alice", 1, 99, 102)

	if tr.Status != StatusOpen {
		t.Fatalf("status = %s", tr.Status)
	}
	if tr.EntryPrice != 100 {
		t.Fatalf("entry = %v", tr.EntryPrice)
	}
	if tr.RR != 2 {
		t.Fatalf("rr = %v", tr.RR)
	}
	if got := len(e.Active("alice")); got != 1 {
		t.Fatalf("active = %d", got)
	}
	if snap := ledger.Snapshot("alice", time.Now()); snap.TradesToday != 1 {
		t.Fatalf("trades today = %d", snap.TradesToday)
	}
}

func TestOpenWithoutPriceFails(t *testing.T) {
	e, _, _, _ := newTestEngine(t)

	_, err := e.Open("alice", OpenRequest{Symbol: "XAUUSD", Direction: market.Buy, Lots: 1, StopLoss: 1, TakeProfit: 3})
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("want ErrDataUnavailable, got %v", err)
	}
	if got := len(e.Active("alice")); got != 0 {
		t.Fatalf("no trade should exist, active = %d", got)
	}
}

func TestOpenRejectionCreatesNoTrade(t *testing.T) {
	e, prices, _, _ := newTestEngine(t)
	prices.set("EURUSD", 100)

	_, err := e.Open("alice", OpenRequest{Symbol: "EURUSD", Direction: market.Buy, Lots: -1, StopLoss: 99, TakeProfit: 102})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if got := len(e.Active("alice")); got != 0 {
		t.Fatalf("rejected trade must not persist, active = %d", got)
	}
}

func TestSweepSettlesStopLoss(t *testing.T) {
	e, prices, ledger, listener := newTestEngine(t)
	prices.set("EURUSD", 100)

	tr := openBuy(t, e, "alice", 2, 99, 102)

	prices.set("EURUSD", 98.9)
	e.Sweep(time.Now().UTC())

	hist := e.History("alice", 1)
	if len(hist) != 1 {
		t.Fatalf("history = %d", len(hist))
	}
	got := hist[0]
	if got.ID != tr.ID || got.CloseReason != ReasonStopLoss || got.Result != ResultLoss {
		t.Fatalf("unexpected settlement: %+v", got)
	}
	wantPnL := (98.9 - 100) * 2
	if got.PnL != wantPnL {
		t.Fatalf("pnl = %v want %v", got.PnL, wantPnL)
	}
	if bal := ledger.Snapshot("alice", time.Now()).Balance; bal != 10000+wantPnL {
		t.Fatalf("balance = %v", bal)
	}
	if listener.count() != 1 {
		t.Fatalf("listener events = %d", listener.count())
	}
}

func TestSweepSettlesTakeProfitSell(t *testing.T) {
	e, prices, _, _ := newTestEngine(t)
	prices.set("EURUSD", 100)

	_, err := e.Open("alice", OpenRequest{Symbol: "EURUSD", Direction: market.Sell, Lots: 2, StopLoss: 105, TakeProfit: 90})
	if err != nil {
		t.Fatalf("open sell: %v", err)
	}

	prices.set("EURUSD", 90)
	e.Sweep(time.Now().UTC())

	hist := e.History("alice", 1)
	if len(hist) != 1 || hist[0].CloseReason != ReasonTakeProfit {
		t.Fatalf("expected TP settlement, got %+v", hist)
	}
	// SELL from 100 to 90 at 2 lots profits +20.
	if hist[0].PnL != 20 {
		t.Fatalf("pnl = %v want +20", hist[0].PnL)
	}
}

func TestSweepSkipsMissingPrices(t *testing.T) {
	e, prices, _, _ := newTestEngine(t)
	prices.set("EURUSD", 100)
	openBuy(t, e, "alice", 1, 99, 102)

	prices.mu.Lock()
	delete(prices.m, "EURUSD")
	prices.mu.Unlock()

	e.Sweep(time.Now().UTC())
	if got := len(e.Active("alice")); got != 1 {
		t.Fatalf("trade should remain open, active = %d", got)
	}
}

func TestManualCloseDirectionAwarePnL(t *testing.T) {
	e, prices, _, _ := newTestEngine(t)

	// BUY 100 -> 110 at 2 lots: +20.
	prices.set("EURUSD", 100)
	tr := openBuy(t, e, "alice", 2, 95, 120)
	prices.set("EURUSD", 110)
	closed, err := e.Close("alice", tr.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.PnL != 20 || closed.Result != ResultWin || closed.CloseReason != ReasonManual {
		t.Fatalf("unexpected close: %+v", closed)
	}
	if closed.BalanceAfter != closed.BalanceBefore+20 {
		t.Fatalf("balances: %v -> %v", closed.BalanceBefore, closed.BalanceAfter)
	}
}

func TestCloseTwiceFails(t *testing.T) {
	e, prices, _, _ := newTestEngine(t)
	prices.set("EURUSD", 100)
	tr := openBuy(t, e, "alice", 1, 99, 102)

	if _, err := e.Close("alice", tr.ID); err != nil {
		t.Fatalf("first close: %v", err)
	}
	_, err := e.Close("alice", tr.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("second close: want ErrNotFound, got %v", err)
	}
}

func TestCloseWrongOwnerFails(t *testing.T) {
	e, prices, _, _ := newTestEngine(t)
	prices.set("EURUSD", 100)
	tr := openBuy(t, e, "alice", 1, 99, 102)

	if _, err := e.Close("mallory", tr.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestLossStreakTriggersCooldown(t *testing.T) {
	e, prices, ledger, _ := newTestEngine(t)

	for i := 0; i < 3; i++ {
		prices.set("EURUSD", 100)
		openBuy(t, e, "alice", 1, 99, 102)
		prices.set("EURUSD", 98.5)
		e.Sweep(time.Now().UTC())
	}

	snap := ledger.Snapshot("alice", time.Now())
	if !snap.CooldownUntil.After(time.Now()) {
		t.Fatal("cooldown should be active after three straight losses")
	}

	// The fourth attempt fails with the cooldown violation alone.
	prices.set("EURUSD", 100)
	_, err := e.Open("alice", OpenRequest{Symbol: "EURUSD", Direction: market.Buy, Lots: 1, StopLoss: 99, TakeProfit: 102})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if len(verr.Violations) != 1 || verr.Violations[0].Code != risk.CodeCooldown {
		t.Fatalf("want lone cooldown violation, got %+v", verr.Violations)
	}
}

func TestHistoryOrderAndLimit(t *testing.T) {
	e, prices, _, _ := newTestEngine(t)

	var ids []string
	for i := 0; i < 3; i++ {
		prices.set("EURUSD", 100)
		tr := openBuy(t, e, "alice", 1, 99, 102)
		ids = append(ids, tr.ID)
		prices.set("EURUSD", 101)
		if _, err := e.Close("alice", tr.ID); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}

	hist := e.History("alice", 2)
	if len(hist) != 2 {
		t.Fatalf("limit ignored: %d", len(hist))
	}
	if hist[0].ID != ids[2] {
		t.Fatal("most recently closed trade should come first")
	}
}

func TestResetOwner(t *testing.T) {
	e, prices, _, _ := newTestEngine(t)
	prices.set("EURUSD", 100)
	openBuy(t, e, "alice", 1, 99, 102)
	tr := openBuy(t, e, "alice", 1, 99, 102)
	prices.set("EURUSD", 101)
	if _, err := e.Close("alice", tr.ID); err != nil {
		t.Fatalf("close: %v", err)
	}

	e.ResetOwner("alice")
	if len(e.Active("alice")) != 0 || len(e.History("alice", 0)) != 0 {
		t.Fatal("reset should drop all trades")
	}
}

func TestRestoreRebuildsMonitoringAndHistory(t *testing.T) {
	e, prices, _, _ := newTestEngine(t)
	now := time.Now().UTC()

	recs := []journal.TradeRecord{
		{TradeID: "open-1", Owner: "alice", Symbol: "EURUSD", Direction: "BUY", Lots: 1,
			EntryPrice: 100, StopLoss: 99, TakeProfit: 102, Status: "OPEN", OpenTime: now.Add(-time.Hour)},
		{TradeID: "closed-1", Owner: "alice", Symbol: "EURUSD", Direction: "BUY", Lots: 1,
			EntryPrice: 100, ExitPrice: 99, StopLoss: 99, TakeProfit: 102, Status: "CLOSED",
			Result: "LOSS", PnL: -1, OpenTime: now.Add(-2 * time.Hour), CloseTime: now.Add(-time.Hour)},
	}
	e.Restore(recs)

	if got := len(e.Active("alice")); got != 1 {
		t.Fatalf("restored active = %d", got)
	}
	if got := len(e.History("alice", 0)); got != 1 {
		t.Fatalf("restored history = %d", got)
	}

	// The restored open trade is monitored again.
	prices.set("EURUSD", 98)
	e.Sweep(time.Now().UTC())
	if got := len(e.Active("alice")); got != 0 {
		t.Fatalf("restored trade should settle, active = %d", got)
	}
}

func TestConcurrentOpensCannotExceedDailyCap(t *testing.T) {
	e, prices, ledger, _ := newTestEngine(t)
	prices.set("EURUSD", 100)
	limit := risk.DefaultPolicy().MaxTradesPerDay

	var wg sync.WaitGroup
	errs := make(chan error, limit+5)
	for i := 0; i < limit+5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Open("alice", OpenRequest{
				Symbol:     "EURUSD",
				Direction:  market.Buy,
				Lots:       1,
				StopLoss:   99,
				TakeProfit: 102,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	opened := 0
	for err := range errs {
		if err == nil {
			opened++
		}
	}
	if opened != limit {
		t.Fatalf("opened = %d, want exactly the daily cap %d", opened, limit)
	}
	if got := ledger.State("alice", time.Now()).TradesToday; got != limit {
		t.Fatalf("daily counter = %d, want %d", got, limit)
	}
}

func TestRealizedPnLSigns(t *testing.T) {
	if got := RealizedPnL(market.Buy, 100, 110, 2); got != 20 {
		t.Fatalf("buy pnl = %v", got)
	}
	if got := RealizedPnL(market.Sell, 100, 90, 2); got != 20 {
		t.Fatalf("sell pnl = %v", got)
	}
	if got := RealizedPnL(market.Buy, 100, 90, 2); got != -20 {
		t.Fatalf("buy loss pnl = %v", got)
	}
}
