// Package fairness bounds the value asymmetry of a trade. It is a pure
// validation step executed before any write, never a persistence side effect.
package fairness

import (
	"errors"

	"github.com/seralyne/cardex/database/models"
)

// MaxDiffPct is the cap on |a-b|/max(a,b)*100 for public trades.
const MaxDiffPct = 10.0

var ErrValueDiffTooHigh = errors.New("value difference exceeds the fair-trade limit")

// DiffPct returns the asymmetry between two totals as a percentage of the
// larger one. Both totals zero yields 0.
func DiffPct(a, b int64) float64 {
	maxVal := a
	if b > maxVal {
		maxVal = b
	}
	if maxVal <= 0 {
		return 0
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(maxVal) * 100
}

// Validate checks the fairness rule for a trade of the given kind and returns
// the percentage to store on the trade. Private trades are friend-to-friend
// and self-policed, so they always pass.
func Validate(initiatorTotal, receiverTotal int64, kind models.TradeKind) (float64, error) {
	pct := DiffPct(initiatorTotal, receiverTotal)
	if kind == models.TradePrivate {
		return pct, nil
	}
	if pct > MaxDiffPct {
		return pct, ErrValueDiffTooHigh
	}
	return pct, nil
}
