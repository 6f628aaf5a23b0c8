package services

import (
	"testing"
	"time"

	"referdby-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAllocationService(t *testing.T) *AllocationService {
	db := setupTestDB(t)
	currency := NewCurrencyService(db)
	return NewAllocationService(db, currency)
}

func TestCalculatePoints_Distribution(t *testing.T) {
	svc := testAllocationService(t)
	seedAllocationRules(t, svc.DB, defaultRules)

	split, err := svc.CalculatePoints(200)
	require.NoError(t, err)

	assert.Equal(t, 10.0, split.CustomerPoints)           // 5%
	assert.Equal(t, 4.0, split.ReferrerPoints)            // 2%
	assert.Equal(t, 2.0, split.RestaurantRecruiterPoints) // 1%
	assert.Equal(t, 1.0, split.AppReferrerPoints)         // 0.5%
	assert.Equal(t, 17.0, split.RestaurantDeduction)      // 8.5%
	assert.Equal(t, 200.0, split.BillAmount)
}

func TestCalculatePoints_DeductionMatchesConfiguredShare(t *testing.T) {
	// The restaurant pays its configured share of the bill — not the sum
	// of the distributed role points.
	svc := testAllocationService(t)
	seedAllocationRules(t, svc.DB, defaultRules)

	bill := 123.45
	split, err := svc.CalculatePoints(bill)
	require.NoError(t, err)
	assert.Equal(t, Round2(bill*8.5/100), split.RestaurantDeduction)
}

func TestCalculatePoints_RoundsToTwoDecimals(t *testing.T) {
	svc := testAllocationService(t)
	seedAllocationRules(t, svc.DB, defaultRules)

	split, err := svc.CalculatePoints(33.33)
	require.NoError(t, err)
	assert.Equal(t, 1.67, split.CustomerPoints) // 5% of 33.33 = 1.6665
}

func TestCalculatePoints_MissingRuleIsHardFailure(t *testing.T) {
	svc := testAllocationService(t)
	partial := map[models.AllocationRole]float64{
		models.RoleCustomer:            5,
		models.RoleReferrer:            2,
		models.RoleRestaurantRecruiter: 1,
		models.RoleAppReferrer:         0.5,
		// restaurant_deduction missing
	}
	seedAllocationRules(t, svc.DB, partial)

	_, err := svc.CalculatePoints(100)
	assert.ErrorIs(t, err, ErrMissingAllocationRule)
}

func TestCalculatePoints_IgnoresInactiveRules(t *testing.T) {
	svc := testAllocationService(t)
	seedAllocationRules(t, svc.DB, defaultRules)
	// A retired customer rule at a wild percentage must not be read.
	retired := &models.PointsAllocationRule{
		ID:         uuid.NewString(),
		Role:       models.RoleCustomer,
		Percentage: 99,
		Active:     false,
	}
	require.NoError(t, svc.DB.Create(retired).Error)

	// The insert must store false, not let a column default flip it on.
	var stored models.PointsAllocationRule
	require.NoError(t, svc.DB.First(&stored, "id = ?", retired.ID).Error)
	require.False(t, stored.Active)

	split, err := svc.CalculatePoints(100)
	require.NoError(t, err)
	assert.Equal(t, 5.0, split.CustomerPoints)
}

func TestCalculatePoints_DuplicateActiveRuleIsHardFailure(t *testing.T) {
	svc := testAllocationService(t)
	seedAllocationRules(t, svc.DB, defaultRules)
	require.NoError(t, svc.DB.Create(&models.PointsAllocationRule{
		ID:         uuid.NewString(),
		Role:       models.RoleCustomer,
		Percentage: 7,
		Active:     true,
	}).Error)

	_, err := svc.CalculatePoints(100)
	assert.ErrorIs(t, err, ErrConflictingAllocationRules)
}

func TestCalculatePointsInCurrency_ConvertsFirst(t *testing.T) {
	svc := testAllocationService(t)
	seedAllocationRules(t, svc.DB, defaultRules)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc.Currency.Now = fixedClock(now)
	svc.Currency.Cache.Now = svc.Currency.Now
	seedRate(t, svc.DB, "EUR", "USD", 1.1, now.Add(-1*time.Hour), true)

	split, err := svc.CalculatePointsInCurrency(100, "EUR", "USD", false)
	require.NoError(t, err)

	assert.Equal(t, 110.0, split.ConvertedAmount)
	assert.Equal(t, 100.0, split.BillAmount, "original amount preserved")
	assert.Equal(t, "EUR", split.BillCurrency, "original currency rides along")
	assert.Equal(t, "USD", split.HomeCurrency)
	assert.Equal(t, 5.5, split.CustomerPoints, "5% of the converted 110")
}

func TestCalculatePointsInCurrency_PropagatesRateFailure(t *testing.T) {
	svc := testAllocationService(t)
	seedAllocationRules(t, svc.DB, defaultRules)

	_, err := svc.CalculatePointsInCurrency(100, "EUR", "USD", false)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}
