package journal

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tradeforge/papersim/stats"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) InsertTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, owner, symbol, direction, lots, entry_price, exit_price,
		 stop_loss, take_profit, risk_pct, rr, status, result, pnl,
		 balance_before, balance_after, open_time, close_time, close_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Owner, t.Symbol, t.Direction, t.Lots, t.EntryPrice, t.ExitPrice,
		t.StopLoss, t.TakeProfit, t.RiskPct, t.RR, t.Status, t.Result, t.PnL,
		t.BalanceBefore, t.BalanceAfter, t.OpenTime, nullTime(t.CloseTime), t.CloseReason,
	)
	return err
}

func (j *SQLite) UpdateTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		UPDATE trades SET
			exit_price = ?, status = ?, result = ?, pnl = ?,
			balance_before = ?, balance_after = ?, close_time = ?, close_reason = ?
		WHERE trade_id = ?`,
		t.ExitPrice, t.Status, t.Result, t.PnL,
		t.BalanceBefore, t.BalanceAfter, nullTime(t.CloseTime), t.CloseReason,
		t.TradeID,
	)
	return err
}

func (j *SQLite) SaveStats(s stats.Stats) error {
	_, err := j.db.Exec(`
		INSERT INTO perf_stats
		(owner, total_trades, wins, losses, break_evens, win_rate,
		 current_streak, longest_win_streak, longest_loss_streak,
		 total_pnl, gross_profit, gross_loss, largest_win, largest_loss,
		 peak_balance, max_drawdown_pct, profit_factor, consistency, rule_violations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET
			total_trades = excluded.total_trades,
			wins = excluded.wins,
			losses = excluded.losses,
			break_evens = excluded.break_evens,
			win_rate = excluded.win_rate,
			current_streak = excluded.current_streak,
			longest_win_streak = excluded.longest_win_streak,
			longest_loss_streak = excluded.longest_loss_streak,
			total_pnl = excluded.total_pnl,
			gross_profit = excluded.gross_profit,
			gross_loss = excluded.gross_loss,
			largest_win = excluded.largest_win,
			largest_loss = excluded.largest_loss,
			peak_balance = excluded.peak_balance,
			max_drawdown_pct = excluded.max_drawdown_pct,
			profit_factor = excluded.profit_factor,
			consistency = excluded.consistency,
			rule_violations = excluded.rule_violations`,
		s.Owner, s.TotalTrades, s.Wins, s.Losses, s.BreakEvens, s.WinRate,
		s.CurrentStreak, s.LongestWinStreak, s.LongestLossStreak,
		s.TotalPnL, s.GrossProfit, s.GrossLoss, s.LargestWin, s.LargestLoss,
		s.PeakBalance, s.MaxDrawdownPct, s.ProfitFactor, s.ConsistencyScore, s.RuleViolations,
	)
	return err
}

func (j *SQLite) AppendEquity(owner string, p stats.EquityPoint) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (owner, time, balance) VALUES (?, ?, ?)`,
		owner, p.Time, p.Balance,
	)
	return err
}

func (j *SQLite) ResetOwner(owner string) error {
	for _, q := range []string{
		`DELETE FROM trades WHERE owner = ?`,
		`DELETE FROM perf_stats WHERE owner = ?`,
		`DELETE FROM equity WHERE owner = ?`,
	} {
		if _, err := j.db.Exec(q, owner); err != nil {
			return err
		}
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
