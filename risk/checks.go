package risk

import (
	"fmt"
	"time"

	"github.com/tradeforge/papersim/market"
)

// Violation codes. CodeInsufficientBalance stays distinguishable so callers
// can message solvency failures separately.
const (
	CodeCooldown            = "COOLDOWN_ACTIVE"
	CodeRiskTooHigh         = "RISK_TOO_HIGH"
	CodeMissingStopOrTarget = "NO_STOP_OR_TARGET"
	CodeBadLevels           = "BAD_LEVELS"
	CodeRRTooLow            = "RR_TOO_LOW"
	CodeDailyLimit          = "DAILY_LIMIT"
	CodeBadLotSize          = "BAD_LOT_SIZE"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
)

type Violation struct {
	Code string
	Msg  string
}

// Decision is the validator's verdict plus the numbers it computed on the
// way; the lifecycle engine stamps them onto the trade at entry.
type Decision struct {
	Allowed    bool
	Violations []Violation

	RiskAmount float64
	RiskPct    float64
	RR         float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Messages returns the human-readable violation list.
func (d Decision) Messages() []string {
	out := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		out[i] = v.Msg
	}
	return out
}

// Evaluate gates a proposed trade against the policy. Every rule is checked
// and the violations unioned, so the caller can present a complete correction
// list. The one exception is an active cooldown: that is a time-based lockout
// the trader cannot parameter-fix, so it is returned alone.
func Evaluate(p Policy, intent TradeIntent, acct AccountSnapshot, now time.Time) Decision {
	d := Decision{Allowed: true}

	if now.Before(acct.CooldownUntil) {
		remaining := acct.CooldownUntil.Sub(now).Round(time.Second)
		d.add(CodeCooldown, fmt.Sprintf(
			"trading paused after a loss streak; cooldown ends in %s", remaining))
		return d
	}

	d.RiskAmount = RiskAmount(intent.Entry, intent.Stop, intent.Lots)
	d.RiskPct = RiskPct(d.RiskAmount, acct.Balance)
	d.RR = RR(intent.Entry, intent.Stop, intent.TakeProfit)

	if intent.Lots <= 0 {
		d.add(CodeBadLotSize, "lot size must be positive")
	}

	if intent.Stop == 0 || intent.TakeProfit == 0 {
		d.add(CodeMissingStopOrTarget, "stop-loss and take-profit must both be set")
	}

	switch intent.Direction {
	case market.Buy:
		if !(intent.Stop < intent.Entry && intent.Entry < intent.TakeProfit) {
			d.add(CodeBadLevels,
				"for BUY the stop-loss must sit below entry and the take-profit above")
		}
	case market.Sell:
		if !(intent.TakeProfit < intent.Entry && intent.Entry < intent.Stop) {
			d.add(CodeBadLevels,
				"for SELL the take-profit must sit below entry and the stop-loss above")
		}
	default:
		d.add(CodeBadLevels, fmt.Sprintf("unknown direction %q", intent.Direction))
	}

	if d.RiskPct > p.MaxRiskPct {
		d.add(CodeRiskTooHigh, fmt.Sprintf(
			"planned risk %.2f%% exceeds the maximum %.2f%% per trade",
			d.RiskPct, p.MaxRiskPct))
	}

	if d.RR < p.MinRR {
		d.add(CodeRRTooLow, fmt.Sprintf(
			"reward:risk %.2f below the minimum %.2f", d.RR, p.MinRR))
	}

	if acct.TradesToday >= p.MaxTradesPerDay {
		d.add(CodeDailyLimit, fmt.Sprintf(
			"daily limit reached: %d of %d trades used", acct.TradesToday, p.MaxTradesPerDay))
	}

	if d.RiskAmount > acct.Balance {
		d.add(CodeInsufficientBalance, fmt.Sprintf(
			"risk amount %.2f exceeds account balance %.2f", d.RiskAmount, acct.Balance))
	}

	return d
}
