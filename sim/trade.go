package sim

import (
	"time"

	"github.com/tradeforge/papersim/market"
)

type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

type Result string

const (
	ResultWin       Result = "WIN"
	ResultLoss      Result = "LOSS"
	ResultBreakeven Result = "BREAKEVEN"
)

// CloseReason records why a trade settled.
type CloseReason string

const (
	ReasonStopLoss   CloseReason = "SL_HIT"
	ReasonTakeProfit CloseReason = "TP_HIT"
	ReasonManual     CloseReason = "MANUAL"
)

// Trade is the full lifecycle record. A trade is created OPEN and
// transitions to CLOSED exactly once; it is never reopened.
type Trade struct {
	ID        string
	Owner     string
	Symbol    string
	Direction market.Direction
	Lots      float64

	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	RiskPct    float64 // percent of balance at risk when opened
	RR         float64 // reward:risk at entry

	Status Status
	Result Result

	ExitPrice     float64
	PnL           float64
	BalanceBefore float64
	BalanceAfter  float64

	OpenTime    time.Time
	CloseTime   time.Time
	CloseReason CloseReason
}
