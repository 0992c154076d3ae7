// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	owner TEXT NOT NULL,
	symbol TEXT NOT NULL,
	direction TEXT NOT NULL,
	lots REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL DEFAULT 0,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	risk_pct REAL NOT NULL,
	rr REAL NOT NULL,
	status TEXT NOT NULL,
	result TEXT NOT NULL DEFAULT '',
	pnl REAL NOT NULL DEFAULT 0,
	balance_before REAL NOT NULL DEFAULT 0,
	balance_after REAL NOT NULL DEFAULT 0,
	open_time DATETIME NOT NULL,
	close_time DATETIME,
	close_reason TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_trades_owner ON trades(owner, status);
CREATE INDEX IF NOT EXISTS idx_trades_close ON trades(owner, close_time);

CREATE TABLE IF NOT EXISTS perf_stats (
	owner TEXT PRIMARY KEY,
	total_trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	break_evens INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	current_streak INTEGER NOT NULL,
	longest_win_streak INTEGER NOT NULL,
	longest_loss_streak INTEGER NOT NULL,
	total_pnl REAL NOT NULL,
	gross_profit REAL NOT NULL,
	gross_loss REAL NOT NULL,
	largest_win REAL NOT NULL,
	largest_loss REAL NOT NULL,
	peak_balance REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	profit_factor REAL NOT NULL,
	consistency REAL NOT NULL,
	rule_violations INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	owner TEXT NOT NULL,
	time DATETIME NOT NULL,
	balance REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_owner_time ON equity(owner, time);
`
