package risk

import "math"

// RiskAmount is the balance at stake if the stop is hit.
func RiskAmount(entry, stop, lots float64) float64 {
	return math.Abs(entry-stop) * lots
}

// RewardAmount is the balance gained if the target is hit.
func RewardAmount(entry, takeProfit, lots float64) float64 {
	return math.Abs(takeProfit-entry) * lots
}

// RR is the reward:risk ratio. Zero risk yields 0, which always fails a
// positive minimum. Lot size cancels out, so unit amounts suffice.
func RR(entry, stop, takeProfit float64) float64 {
	risk := RiskAmount(entry, stop, 1)
	if risk == 0 {
		return 0
	}
	return RewardAmount(entry, takeProfit, 1) / risk
}

// RiskPct expresses a risk amount as a percentage of balance.
func RiskPct(riskAmount, balance float64) float64 {
	if balance <= 0 {
		return math.Inf(1)
	}
	return riskAmount / balance * 100
}
