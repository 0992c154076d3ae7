package sim

import (
	"errors"
	"strings"

	"github.com/tradeforge/papersim/risk"
)

// ErrDataUnavailable means no current price exists for the symbol yet. The
// caller can retry once the generator (or feed) has warmed up.
var ErrDataUnavailable = errors.New("no current price for symbol")

// ErrNotFound covers both an unknown trade ID and a trade that has already
// closed; a second close of the same trade must fail, not silently succeed.
var ErrNotFound = errors.New("trade not found or already closed")

// ValidationError aggregates every rule the proposed trade violated.
type ValidationError struct {
	Violations []risk.Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Msg
	}
	return "trade rejected: " + strings.Join(msgs, "; ")
}

// Solvency reports whether insufficient balance is among the violations, so
// callers can message it separately.
func (e *ValidationError) Solvency() bool {
	for _, v := range e.Violations {
		if v.Code == risk.CodeInsufficientBalance {
			return true
		}
	}
	return false
}
