package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/papersim/stats"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "papersim.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func sampleTrade(id, owner string, open time.Time) TradeRecord {
	return TradeRecord{
		TradeID:    id,
		Owner:      owner,
		Symbol:     "EURUSD",
		Direction:  "BUY",
		Lots:       1,
		EntryPrice: 1.0850,
		StopLoss:   1.0800,
		TakeProfit: 1.0950,
		RiskPct:    0.5,
		RR:         2.0,
		Status:     "OPEN",
		OpenTime:   open,
	}
}

func TestTradeRoundTrip(t *testing.T) {
	j := openTestDB(t)
	open := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, j.InsertTrade(sampleTrade("t1", "alice", open)))

	rec, ok, err := j.GetTrade("t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "EURUSD", rec.Symbol)
	assert.True(t, rec.CloseTime.IsZero())

	rec.Status = "CLOSED"
	rec.Result = "WIN"
	rec.ExitPrice = 1.0950
	rec.PnL = 0.01
	rec.BalanceBefore = 10000
	rec.BalanceAfter = 10000.01
	rec.CloseTime = open.Add(time.Hour)
	rec.CloseReason = "TP_HIT"
	require.NoError(t, j.UpdateTrade(rec))

	got, ok, err := j.GetTrade("t1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "CLOSED", got.Status)
	assert.Equal(t, "TP_HIT", got.CloseReason)
	assert.InDelta(t, 0.01, got.PnL, 1e-12)

	_, ok, err = j.GetTrade("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenTradesAndHistory(t *testing.T) {
	j := openTestDB(t)
	base := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, j.InsertTrade(sampleTrade(id, "alice", base.Add(time.Duration(i)*time.Minute))))
	}
	// Close "a" and "b", in that order.
	for i, id := range []string{"a", "b"} {
		rec, _, err := j.GetTrade(id)
		require.NoError(t, err)
		rec.Status = "CLOSED"
		rec.Result = "LOSS"
		rec.CloseTime = base.Add(time.Duration(10+i) * time.Minute)
		require.NoError(t, j.UpdateTrade(rec))
	}

	open, err := j.OpenTrades()
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "c", open[0].TradeID)

	hist, err := j.TradeHistory("alice", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "b", hist[0].TradeID, "most recently closed first")

	hist, err = j.TradeHistory("alice", 1)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestStatsUpsertAndEquity(t *testing.T) {
	j := openTestDB(t)

	s := stats.Stats{Owner: "alice", TotalTrades: 1, Wins: 1, WinRate: 100, ConsistencyScore: 100}
	require.NoError(t, j.SaveStats(s))
	s.TotalTrades = 2
	s.Losses = 1
	s.WinRate = 50
	require.NoError(t, j.SaveStats(s))

	ts := time.Date(2024, 4, 2, 11, 0, 0, 0, time.UTC)
	require.NoError(t, j.AppendEquity("alice", stats.EquityPoint{Time: ts, Balance: 10100}))
	require.NoError(t, j.AppendEquity("alice", stats.EquityPoint{Time: ts.Add(time.Minute), Balance: 10050}))

	got, ok, err := j.LoadStats("alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, got.TotalTrades)
	assert.Equal(t, 50.0, got.WinRate)
	require.Len(t, got.EquityCurve, 2)
	assert.Equal(t, 10050.0, got.EquityCurve[1].Balance)

	_, ok, err = j.LoadStats("nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResetOwner(t *testing.T) {
	j := openTestDB(t)
	base := time.Now().UTC()

	require.NoError(t, j.InsertTrade(sampleTrade("t1", "alice", base)))
	require.NoError(t, j.InsertTrade(sampleTrade("t2", "bob", base)))
	require.NoError(t, j.SaveStats(stats.Stats{Owner: "alice", TotalTrades: 3}))
	require.NoError(t, j.AppendEquity("alice", stats.EquityPoint{Time: base, Balance: 1}))

	require.NoError(t, j.ResetOwner("alice"))

	_, ok, err := j.GetTrade("t1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = j.LoadStats("alice")
	require.NoError(t, err)
	assert.False(t, ok)

	// Other owners untouched.
	_, ok, err = j.GetTrade("t2")
	require.NoError(t, err)
	assert.True(t, ok)
}
