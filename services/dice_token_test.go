package services

import (
	"testing"
	"time"

	"referdby-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiceToken_FullLifecycle(t *testing.T) {
	svc := NewDiceTokenService(setupTestDB(t))
	customer, staff := uuid.NewString(), uuid.NewString()

	tok, err := svc.CreateToken(uuid.NewString())
	require.NoError(t, err)
	assert.Equal(t, models.TokenStateCreated, tok.TokenState)

	tok, err = svc.UserScan(tok.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, models.TokenStateUserScanned, tok.TokenState)
	assert.Equal(t, customer, *tok.UserScannedBy)

	tok, err = svc.PresentAtRestaurant(tok.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, models.TokenStatePresentAtRestaurant, tok.TokenState)

	tok, err = svc.ProcessRoll(tok.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, models.TokenStateProcessed, tok.TokenState)
	assert.Equal(t, staff, *tok.ProcessedBy)
}

func TestDiceToken_CannotSkipStates(t *testing.T) {
	svc := NewDiceTokenService(setupTestDB(t))

	tok, err := svc.CreateToken(uuid.NewString())
	require.NoError(t, err)

	// created -> present_at_restaurant directly must fail and leave the
	// token untouched.
	_, err = svc.PresentAtRestaurant(tok.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrTokenConflict)

	_, err = svc.ProcessRoll(tok.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrTokenConflict)

	var fresh models.DiceToken
	require.NoError(t, svc.DB.First(&fresh, "id = ?", tok.ID).Error)
	assert.Equal(t, models.TokenStateCreated, fresh.TokenState)
	assert.Nil(t, fresh.RestaurantScannedBy)
	assert.Nil(t, fresh.ProcessedBy)
}

func TestDiceToken_DoubleScanConflicts(t *testing.T) {
	svc := NewDiceTokenService(setupTestDB(t))

	tok, err := svc.CreateToken(uuid.NewString())
	require.NoError(t, err)

	first := uuid.NewString()
	_, err = svc.UserScan(tok.ID, first)
	require.NoError(t, err)

	// A second customer racing on the same token loses the swap and the
	// first scanner is preserved.
	_, err = svc.UserScan(tok.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrTokenConflict)

	var fresh models.DiceToken
	require.NoError(t, svc.DB.First(&fresh, "id = ?", tok.ID).Error)
	assert.Equal(t, first, *fresh.UserScannedBy)
}

func TestDiceToken_ExpiryBlocksTransitions(t *testing.T) {
	svc := NewDiceTokenService(setupTestDB(t))

	tok, err := svc.CreateToken(uuid.NewString())
	require.NoError(t, err)

	svc.Now = fixedClock(time.Now().Add(TokenLifetime + time.Hour))
	_, err = svc.UserScan(tok.ID, uuid.NewString())
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestDiceToken_NotFound(t *testing.T) {
	svc := NewDiceTokenService(setupTestDB(t))

	_, err := svc.UserScan(uuid.NewString(), uuid.NewString())
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
