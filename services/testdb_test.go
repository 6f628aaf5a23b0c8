package services

import (
	"testing"
	"time"

	"referdby-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.Restaurant{},
		&models.Referral{},
		&models.Activity{},
		&models.DiceToken{},
		&models.PointsAllocationRule{},
		&models.ExchangeRate{},
	))
	return db
}

// seedAllocationRules installs the default active percentage set used by
// most calculator and processor tests.
func seedAllocationRules(t *testing.T, db *gorm.DB, pct map[models.AllocationRole]float64) {
	t.Helper()
	for role, p := range pct {
		require.NoError(t, db.Create(&models.PointsAllocationRule{
			ID:         uuid.NewString(),
			Role:       role,
			Percentage: p,
			Active:     true,
		}).Error)
	}
}

var defaultRules = map[models.AllocationRole]float64{
	models.RoleCustomer:            5,
	models.RoleReferrer:            2,
	models.RoleRestaurantRecruiter: 1,
	models.RoleAppReferrer:         0.5,
	models.RoleRestaurantDeduction: 8.5,
}

func seedProfile(t *testing.T, db *gorm.DB, balance float64, currencyCode string) *models.Profile {
	t.Helper()
	p := &models.Profile{
		ID:            uuid.NewString(),
		PointsBalance: balance,
		Currency:      currencyCode,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedRestaurant(t *testing.T, db *gorm.DB, maxPct float64, currencyCode string) *models.Restaurant {
	t.Helper()
	r := &models.Restaurant{
		ID:           uuid.NewString(),
		Name:         "Test Bistro",
		Slug:         "test-bistro-" + uuid.NewString()[:8],
		Status:       models.RestaurantStatusPublished,
		Timezone:     "UTC",
		Currency:     currencyCode,
		MaxRedeemPct: maxPct,
	}
	require.NoError(t, db.Create(r).Error)
	return r
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
