package services

import (
	"testing"
	"time"

	"referdby-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestCreateReferral_ListedAndExternal(t *testing.T) {
	svc := NewReferralService(setupTestDB(t))
	creator := uuid.NewString()

	listed, err := svc.CreateReferral(creator, strptr(uuid.NewString()), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ReferralStatusActive, listed.Status)
	assert.False(t, listed.IsExternal)

	external, err := svc.CreateReferral(creator, nil, strptr("  Mario's Trattoria "))
	require.NoError(t, err)
	assert.True(t, external.IsExternal)
	assert.Equal(t, "Mario's Trattoria", *external.ExternalRestaurantName)

	_, err = svc.CreateReferral(creator, nil, nil)
	assert.ErrorIs(t, err, ErrMissingRestaurant)

	_, err = svc.CreateReferral(creator, strptr(uuid.NewString()), strptr("Both"))
	assert.ErrorIs(t, err, ErrAmbiguousReferral)
}

func TestClaimReferral_CreatesScannerOwnedRow(t *testing.T) {
	svc := NewReferralService(setupTestDB(t))
	creator, scanner := uuid.NewString(), uuid.NewString()

	original, err := svc.CreateReferral(creator, strptr(uuid.NewString()), nil)
	require.NoError(t, err)

	claimed, err := svc.ClaimReferral(original.ID, scanner)
	require.NoError(t, err)

	assert.NotEqual(t, original.ID, claimed.ID, "claim inserts a new row")
	assert.Equal(t, models.ReferralStatusScanned, claimed.Status)
	assert.Equal(t, scanner, *claimed.ScannedByID)
	assert.NotNil(t, claimed.ScannedAt)

	// The original stays active and re-shareable.
	var orig models.Referral
	require.NoError(t, svc.DB.First(&orig, "id = ?", original.ID).Error)
	assert.Equal(t, models.ReferralStatusActive, orig.Status)
	assert.Nil(t, orig.ScannedByID)
}

func TestClaimReferral_RejectsSelfReferral(t *testing.T) {
	svc := NewReferralService(setupTestDB(t))
	creator := uuid.NewString()

	original, err := svc.CreateReferral(creator, strptr(uuid.NewString()), nil)
	require.NoError(t, err)

	_, err = svc.ClaimReferral(original.ID, creator)
	assert.ErrorIs(t, err, ErrSelfReferral)
}

func TestClaimReferral_RejectsExpired(t *testing.T) {
	svc := NewReferralService(setupTestDB(t))

	original, err := svc.CreateReferral(uuid.NewString(), strptr(uuid.NewString()), nil)
	require.NoError(t, err)

	svc.Now = fixedClock(time.Now().Add(ReferralLifetime + time.Hour))
	_, err = svc.ClaimReferral(original.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrReferralExpired)
}

func TestClaimReferral_OncePerTriple(t *testing.T) {
	svc := NewReferralService(setupTestDB(t))
	creator, scanner := uuid.NewString(), uuid.NewString()

	original, err := svc.CreateReferral(creator, strptr(uuid.NewString()), nil)
	require.NoError(t, err)

	_, err = svc.ClaimReferral(original.ID, scanner)
	require.NoError(t, err)

	_, err = svc.ClaimReferral(original.ID, scanner)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)

	// A different scanner still can claim.
	_, err = svc.ClaimReferral(original.ID, uuid.NewString())
	assert.NoError(t, err)
}

func TestClaimReferral_ExpiredClaimStillBlocksReclaim(t *testing.T) {
	svc := NewReferralService(setupTestDB(t))
	creator, scanner := uuid.NewString(), uuid.NewString()

	original, err := svc.CreateReferral(creator, strptr(uuid.NewString()), nil)
	require.NoError(t, err)

	claimed, err := svc.ClaimReferral(original.ID, scanner)
	require.NoError(t, err)

	// The claimed row expires; the triple stays used up.
	require.NoError(t, svc.DB.Model(&models.Referral{}).
		Where("id = ?", claimed.ID).
		Update("status", models.ReferralStatusExpired).Error)

	_, err = svc.ClaimReferral(original.ID, scanner)
	assert.ErrorIs(t, err, ErrAlreadyClaimed)
}

func TestClaimReferral_RejectsNonActiveOriginal(t *testing.T) {
	svc := NewReferralService(setupTestDB(t))

	original, err := svc.CreateReferral(uuid.NewString(), strptr(uuid.NewString()), nil)
	require.NoError(t, err)
	require.NoError(t, svc.DB.Model(&models.Referral{}).
		Where("id = ?", original.ID).
		Update("status", models.ReferralStatusExpired).Error)

	_, err = svc.ClaimReferral(original.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrReferralNotActive)
}

func TestMarkPresented_Idempotent(t *testing.T) {
	svc := NewReferralService(setupTestDB(t))

	original, err := svc.CreateReferral(uuid.NewString(), strptr(uuid.NewString()), nil)
	require.NoError(t, err)
	claimed, err := svc.ClaimReferral(original.ID, uuid.NewString())
	require.NoError(t, err)

	require.NoError(t, svc.MarkPresented(claimed.ID))
	require.NoError(t, svc.MarkPresented(claimed.ID), "second call is a no-op")

	var ref models.Referral
	require.NoError(t, svc.DB.First(&ref, "id = ?", claimed.ID).Error)
	assert.Equal(t, models.ReferralStatusPresented, ref.Status)
}

func TestExpireOverdue(t *testing.T) {
	svc := NewReferralService(setupTestDB(t))

	fresh, err := svc.CreateReferral(uuid.NewString(), strptr(uuid.NewString()), nil)
	require.NoError(t, err)

	stale, err := svc.CreateReferral(uuid.NewString(), strptr(uuid.NewString()), nil)
	require.NoError(t, err)
	require.NoError(t, svc.DB.Model(&models.Referral{}).
		Where("id = ?", stale.ID).
		Update("expires_at", time.Now().Add(-time.Hour)).Error)

	n, err := svc.ExpireOverdue()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var expired models.Referral
	require.NoError(t, svc.DB.First(&expired, "id = ?", stale.ID).Error)
	assert.Equal(t, models.ReferralStatusExpired, expired.Status)
	var untouched models.Referral
	require.NoError(t, svc.DB.First(&untouched, "id = ?", fresh.ID).Error)
	assert.Equal(t, models.ReferralStatusActive, untouched.Status)
}

func TestDeleteReferral_OwnerOnly(t *testing.T) {
	svc := NewReferralService(setupTestDB(t))
	creator := uuid.NewString()

	original, err := svc.CreateReferral(creator, strptr(uuid.NewString()), nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteReferral(original.ID, uuid.NewString()), ErrReferralNotFound)
	assert.NoError(t, svc.DeleteReferral(original.ID, creator))
}
