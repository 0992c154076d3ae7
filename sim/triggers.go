// sim/triggers.go
package sim

import "github.com/tradeforge/papersim/market"

func hitStopLoss(t *Trade, price float64) bool {
	if t.Direction == market.Buy {
		return price <= t.StopLoss
	}
	return price >= t.StopLoss
}

func hitTakeProfit(t *Trade, price float64) bool {
	if t.Direction == market.Buy {
		return price >= t.TakeProfit
	}
	return price <= t.TakeProfit
}

// RealizedPnL is direction-aware: a SELL profits when price falls.
func RealizedPnL(dir market.Direction, entry, exit, lots float64) float64 {
	pl := (exit - entry) * lots
	if dir == market.Sell {
		pl = -pl
	}
	return pl
}

func resultFor(pnl float64) Result {
	switch {
	case pnl > 0:
		return ResultWin
	case pnl < 0:
		return ResultLoss
	default:
		return ResultBreakeven
	}
}
