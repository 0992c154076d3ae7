package journal

import (
	"database/sql"

	"github.com/tradeforge/papersim/stats"
)

const tradeColumns = `trade_id, owner, symbol, direction, lots, entry_price, exit_price,
	stop_loss, take_profit, risk_pct, rr, status, result, pnl,
	balance_before, balance_after, open_time, close_time, close_reason`

func scanTrade(row interface{ Scan(...interface{}) error }) (TradeRecord, error) {
	var rec TradeRecord
	var closeTime sql.NullTime
	err := row.Scan(
		&rec.TradeID, &rec.Owner, &rec.Symbol, &rec.Direction, &rec.Lots,
		&rec.EntryPrice, &rec.ExitPrice, &rec.StopLoss, &rec.TakeProfit,
		&rec.RiskPct, &rec.RR, &rec.Status, &rec.Result, &rec.PnL,
		&rec.BalanceBefore, &rec.BalanceAfter, &rec.OpenTime, &closeTime, &rec.CloseReason,
	)
	if closeTime.Valid {
		rec.CloseTime = closeTime.Time
	}
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, bool, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	rec, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return TradeRecord{}, false, nil
	}
	if err != nil {
		return TradeRecord{}, false, err
	}
	return rec, true, nil
}

// OpenTrades returns every trade still marked open, across all owners. Used
// to rebuild the monitoring set after a restart.
func (j *SQLite) OpenTrades() ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT ` + tradeColumns + `
		FROM trades
		WHERE status = 'OPEN'
		ORDER BY open_time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

// TradeHistory returns the owner's closed trades, most recently closed
// first. limit <= 0 means no limit.
func (j *SQLite) TradeHistory(owner string, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.Query(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE owner = ? AND status = 'CLOSED'
		ORDER BY close_time DESC
		LIMIT ?`, owner, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

func collectTrades(rows *sql.Rows) ([]TradeRecord, error) {
	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadStats fetches the persisted performance record for owner; the second
// return is false when none exists yet.
func (j *SQLite) LoadStats(owner string) (stats.Stats, bool, error) {
	var s stats.Stats
	row := j.db.QueryRow(`
		SELECT owner, total_trades, wins, losses, break_evens, win_rate,
			current_streak, longest_win_streak, longest_loss_streak,
			total_pnl, gross_profit, gross_loss, largest_win, largest_loss,
			peak_balance, max_drawdown_pct, profit_factor, consistency, rule_violations
		FROM perf_stats WHERE owner = ?`, owner)
	err := row.Scan(
		&s.Owner, &s.TotalTrades, &s.Wins, &s.Losses, &s.BreakEvens, &s.WinRate,
		&s.CurrentStreak, &s.LongestWinStreak, &s.LongestLossStreak,
		&s.TotalPnL, &s.GrossProfit, &s.GrossLoss, &s.LargestWin, &s.LargestLoss,
		&s.PeakBalance, &s.MaxDrawdownPct, &s.ProfitFactor, &s.ConsistencyScore, &s.RuleViolations,
	)
	if err == sql.ErrNoRows {
		return stats.Stats{}, false, nil
	}
	if err != nil {
		return stats.Stats{}, false, err
	}
	curve, err := j.LoadEquity(owner)
	if err != nil {
		return stats.Stats{}, false, err
	}
	s.EquityCurve = curve
	return s, true, nil
}

// LoadEquity returns the owner's equity curve in time order.
func (j *SQLite) LoadEquity(owner string) ([]stats.EquityPoint, error) {
	rows, err := j.db.Query(`
		SELECT time, balance FROM equity
		WHERE owner = ? ORDER BY time ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stats.EquityPoint
	for rows.Next() {
		var p stats.EquityPoint
		if err := rows.Scan(&p.Time, &p.Balance); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
