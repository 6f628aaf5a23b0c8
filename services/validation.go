package services

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Pure redemption input rules. No I/O, no state — safe to run on every
// keystroke of the bill form.

// ParseAmount normalizes free-form numeric input: empty, unparseable and NaN
// values all become 0.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return v
}

// MaxRedeemable is the largest whole number of points spendable against a
// bill under a percentage cap.
func MaxRedeemable(billAmount, percentage float64) float64 {
	return math.Floor(billAmount * percentage / 100)
}

// Round2 rounds a monetary/points amount to 2 decimal places. All ledger
// figures are fixed at this precision when calculated.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CeilForDisplay is the presentation-only rounding applied to balances shown
// to users. The stored ledger value stays the precise 2-decimal figure.
func CeilForDisplay(v float64) float64 {
	return math.Ceil(v)
}

// ValidateRedemption checks a requested redemption against the percentage cap
// and the user's balance. A nil return means nothing to report: either the
// inputs are within bounds, or bill/points are not yet positive (nothing to
// validate), which is not an error.
func ValidateRedemption(billTotal, pointsToRedeem, maxPct, userPoints float64) *RedemptionWarning {
	if billTotal <= 0 || pointsToRedeem <= 0 {
		return nil
	}
	if max := MaxRedeemable(billTotal, maxPct); pointsToRedeem > max {
		return &RedemptionWarning{
			Code:    WarnCapExceeded,
			Message: fmt.Sprintf("You can redeem up to %.0f%% of the bill (maximum: %.0f points)", maxPct, max),
		}
	}
	if pointsToRedeem > userPoints {
		return &RedemptionWarning{
			Code:    WarnInsufficientBalance,
			Message: fmt.Sprintf("You only have %.0f points available", math.Floor(userPoints)),
		}
	}
	return nil
}

// RedemptionWarning is a user-facing validation result, not a system error.
type RedemptionWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnCapExceeded         = "cap_exceeded"
	WarnInsufficientBalance = "insufficient_balance"
)
