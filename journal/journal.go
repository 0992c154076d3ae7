// journal/journal.go
package journal

import (
	"time"

	"github.com/tradeforge/papersim/stats"
)

// TradeRecord is the persisted form of a trade. Open trades have zero
// CloseTime and empty Result/CloseReason.
type TradeRecord struct {
	TradeID       string
	Owner         string
	Symbol        string
	Direction     string
	Lots          float64
	EntryPrice    float64
	ExitPrice     float64
	StopLoss      float64
	TakeProfit    float64
	RiskPct       float64
	RR            float64
	Status        string
	Result        string
	PnL           float64
	BalanceBefore float64
	BalanceAfter  float64
	OpenTime      time.Time
	CloseTime     time.Time
	CloseReason   string
}

type Journal interface {
	InsertTrade(TradeRecord) error
	UpdateTrade(TradeRecord) error
	OpenTrades() ([]TradeRecord, error)
	TradeHistory(owner string, limit int) ([]TradeRecord, error)

	SaveStats(stats.Stats) error
	LoadStats(owner string) (stats.Stats, bool, error)
	AppendEquity(owner string, p stats.EquityPoint) error
	LoadEquity(owner string) ([]stats.EquityPoint, error)

	ResetOwner(owner string) error
	Close() error
}
