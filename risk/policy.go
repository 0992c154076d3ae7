package risk

import (
	"time"

	"github.com/tradeforge/papersim/market"
)

// Policy holds the configurable rule thresholds the validator enforces.
type Policy struct {
	StartBalance float64 // seed balance for fresh accounts

	// Risk limits
	MaxRiskPct float64 // max risk per trade, percent of balance (2.0 = 2%)
	MinRR      float64 // minimum reward:risk ratio

	// Discipline limits
	MaxTradesPerDay int
	LossStreakLen   int           // consecutive losses that trigger a cooldown
	Cooldown        time.Duration // lockout after a loss streak
}

// DefaultPolicy returns the stock rule set.
func DefaultPolicy() Policy {
	return Policy{
		StartBalance:    10000,
		MaxRiskPct:      2.0,
		MinRR:           1.0,
		MaxTradesPerDay: 10,
		LossStreakLen:   3,
		Cooldown:        30 * time.Minute,
	}
}

// TradeIntent is a proposed trade before any Trade object exists.
type TradeIntent struct {
	Symbol     string
	Direction  market.Direction
	Lots       float64
	Entry      float64
	Stop       float64
	TakeProfit float64
}

// AccountSnapshot is the slice of account risk state the validator reads.
// The validator never mutates anything.
type AccountSnapshot struct {
	Balance       float64
	TradesToday   int
	CooldownUntil time.Time
}
