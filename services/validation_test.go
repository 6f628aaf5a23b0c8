package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	assert.Equal(t, 0.0, ParseAmount(""))
	assert.Equal(t, 0.0, ParseAmount("   "))
	assert.Equal(t, 0.0, ParseAmount("abc"))
	assert.Equal(t, 0.0, ParseAmount("NaN"))
	assert.Equal(t, 42.5, ParseAmount("42.5"))
	assert.Equal(t, 100.0, ParseAmount(" 100 "))
	assert.Equal(t, -3.0, ParseAmount("-3"))
}

func TestMaxRedeemable(t *testing.T) {
	assert.Equal(t, 50.0, MaxRedeemable(100, 50))
	assert.Equal(t, 49.0, MaxRedeemable(99.99, 50)) // floor, not round
	assert.Equal(t, 0.0, MaxRedeemable(1, 50))
	assert.Equal(t, 100.0, MaxRedeemable(100, 100))
	assert.Equal(t, 0.0, MaxRedeemable(100, 0))
}

func TestValidateRedemption_CapAndBalance(t *testing.T) {
	// bill=$100, cap 50%, balance 40 points
	w := ValidateRedemption(100, 60, 50, 40)
	if assert.NotNil(t, w) {
		assert.Equal(t, WarnCapExceeded, w.Code)
		assert.Contains(t, w.Message, "maximum: 50 points")
	}

	assert.Nil(t, ValidateRedemption(100, 40, 50, 40))

	w = ValidateRedemption(100, 45, 50, 40)
	if assert.NotNil(t, w) {
		assert.Equal(t, WarnInsufficientBalance, w.Code)
	}
}

func TestValidateRedemption_WarnsExactlyWhenOverCap(t *testing.T) {
	for points := 1.0; points <= 100; points++ {
		w := ValidateRedemption(100, points, 50, 1000)
		if points > MaxRedeemable(100, 50) {
			assert.NotNil(t, w, "points=%v should exceed cap", points)
		} else {
			assert.Nil(t, w, "points=%v within cap", points)
		}
	}
}

func TestValidateRedemption_NothingToValidateYet(t *testing.T) {
	assert.Nil(t, ValidateRedemption(0, 0, 50, 100))
	assert.Nil(t, ValidateRedemption(-5, 10, 50, 100))
	assert.Nil(t, ValidateRedemption(100, 0, 50, 100))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2345))
	assert.Equal(t, 1.24, Round2(1.235))
	assert.Equal(t, 0.0, Round2(0))
}

func TestCeilForDisplay(t *testing.T) {
	// Display rounds up; the stored ledger figure stays at 2 decimals.
	assert.Equal(t, 13.0, CeilForDisplay(12.01))
	assert.Equal(t, 12.0, CeilForDisplay(12.0))
}
