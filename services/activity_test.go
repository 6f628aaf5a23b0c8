package services

import (
	"testing"
	"time"

	"referdby-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testActivityService(t *testing.T) (*ActivityService, *ReferralService) {
	db := setupTestDB(t)
	referrals := NewReferralService(db)
	return NewActivityService(db, referrals), referrals
}

func TestScanActivity_ReferralFlow(t *testing.T) {
	svc, referrals := testActivityService(t)
	restaurantID := uuid.NewString()

	original, err := referrals.CreateReferral(uuid.NewString(), &restaurantID, nil)
	require.NoError(t, err)
	claimed, err := referrals.ClaimReferral(original.ID, uuid.NewString())
	require.NoError(t, err)

	act, err := svc.PresentReferral(*claimed.ScannedByID, restaurantID, &claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityReferralPresented, act.Type)

	staff := uuid.NewString()
	scanned, err := svc.ScanActivity(act.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityReferralScanned, scanned.Type)
	assert.Equal(t, staff, *scanned.ScannerID)

	// The scan cascades the linked referral to presented.
	var ref models.Referral
	require.NoError(t, svc.DB.First(&ref, "id = ?", claimed.ID).Error)
	assert.Equal(t, models.ReferralStatusPresented, ref.Status)
}

func TestScanActivity_OnlyPresentedIsScannable(t *testing.T) {
	svc, _ := testActivityService(t)

	act, err := svc.PresentRedemption(uuid.NewString(), uuid.NewString(), false)
	require.NoError(t, err)

	_, err = svc.ScanActivity(act.ID, uuid.NewString())
	require.NoError(t, err)

	// A second scan finds the row already advanced.
	_, err = svc.ScanActivity(act.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrAlreadyPresented)
}

func TestScanActivity_CascadeFailureRollsBackScan(t *testing.T) {
	svc, referrals := testActivityService(t)
	restaurantID := uuid.NewString()

	original, err := referrals.CreateReferral(uuid.NewString(), &restaurantID, nil)
	require.NoError(t, err)
	claimed, err := referrals.ClaimReferral(original.ID, uuid.NewString())
	require.NoError(t, err)

	act, err := svc.PresentReferral(*claimed.ScannedByID, restaurantID, &claimed.ID)
	require.NoError(t, err)

	// Break the referral table so the cascade inside the scan fails.
	require.NoError(t, svc.DB.Migrator().DropTable(&models.Referral{}))

	_, err = svc.ScanActivity(act.ID, uuid.NewString())
	require.Error(t, err)

	var after models.Activity
	require.NoError(t, svc.DB.First(&after, "id = ?", act.ID).Error)
	assert.Equal(t, models.ActivityReferralPresented, after.Type, "scan rolled back with the cascade")
	assert.Nil(t, after.ScannerID)
}

func TestScanActivity_ExpiredQR(t *testing.T) {
	svc, _ := testActivityService(t)

	act, err := svc.PresentReferral(uuid.NewString(), uuid.NewString(), nil)
	require.NoError(t, err)

	svc.Now = fixedClock(time.Now().Add(ActivityLifetime + time.Hour))
	_, err = svc.ScanActivity(act.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrActivityExpired)
}

func TestScanActivity_NotFound(t *testing.T) {
	svc, _ := testActivityService(t)

	_, err := svc.ScanActivity(uuid.NewString(), uuid.NewString())
	assert.ErrorIs(t, err, ErrActivityNotFound)
}

func TestPresentRedemption_TakeawayDescription(t *testing.T) {
	svc, _ := testActivityService(t)

	act, err := svc.PresentRedemption(uuid.NewString(), uuid.NewString(), true)
	require.NoError(t, err)
	assert.True(t, act.IsTakeaway)
	assert.Contains(t, act.Description, "Takeaway")
}

func TestDeactivateOverdue(t *testing.T) {
	svc, _ := testActivityService(t)

	stale, err := svc.PresentReferral(uuid.NewString(), uuid.NewString(), nil)
	require.NoError(t, err)
	require.NoError(t, svc.DB.Model(&models.Activity{}).
		Where("id = ?", stale.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	fresh, err := svc.PresentReferral(uuid.NewString(), uuid.NewString(), nil)
	require.NoError(t, err)

	n, err := svc.DeactivateOverdue()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var retired models.Activity
	require.NoError(t, svc.DB.First(&retired, "id = ?", stale.ID).Error)
	assert.False(t, retired.IsActive)
	var untouched models.Activity
	require.NoError(t, svc.DB.First(&untouched, "id = ?", fresh.ID).Error)
	assert.True(t, untouched.IsActive)
}
