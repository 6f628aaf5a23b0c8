package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"referdby-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrReferralNotFound   = errors.New("referral not found")
	ErrSelfReferral       = errors.New("you cannot claim your own referral")
	ErrReferralExpired    = errors.New("referral has expired")
	ErrReferralNotActive  = errors.New("referral is no longer active")
	ErrAlreadyClaimed     = errors.New("referral already claimed")
	ErrMissingRestaurant  = errors.New("referral needs a restaurant or an external restaurant name")
	ErrAmbiguousReferral  = errors.New("referral cannot name both a listed and an external restaurant")
)

// ReferralLifetime is the validity window given to new and claimed referrals.
const ReferralLifetime = 30 * 24 * time.Hour

// ReferralService owns the referral lifecycle: create, claim, delete and the
// lazy expiry sweep. Claiming never mutates the creator's row — it inserts a
// new row owned by the scanner, so the original stays re-shareable.
type ReferralService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{DB: db, Now: time.Now}
}

// CreateReferral issues a fresh active referral from creator to either a
// listed restaurant or an external (unlisted) one, exactly one of the two.
func (s *ReferralService) CreateReferral(creatorID string, restaurantID, externalName *string) (*models.Referral, error) {
	hasListed := restaurantID != nil && *restaurantID != ""
	hasExternal := externalName != nil && strings.TrimSpace(*externalName) != ""
	if hasListed == hasExternal {
		if hasListed {
			return nil, ErrAmbiguousReferral
		}
		return nil, ErrMissingRestaurant
	}

	ref := &models.Referral{
		ID:        uuid.NewString(),
		CreatorID: creatorID,
		Status:    models.ReferralStatusActive,
		ExpiresAt: s.Now().Add(ReferralLifetime),
	}
	if hasListed {
		ref.RestaurantID = restaurantID
	} else {
		name := strings.TrimSpace(*externalName)
		ref.ExternalRestaurantName = &name
		ref.IsExternal = true
	}
	if err := s.DB.Create(ref).Error; err != nil {
		return nil, fmt.Errorf("failed to create referral: %w", err)
	}
	return ref, nil
}

// claimKey is the dedup identity of a claim: creator, venue, scanner. Set on
// claimed rows only; a unique index on it makes a concurrent duplicate claim
// lose at insert time.
func claimKey(original *models.Referral, scannerID string) string {
	venue := ""
	if original.RestaurantID != nil {
		venue = *original.RestaurantID
	} else if original.ExternalRestaurantName != nil {
		venue = "ext:" + strings.ToLower(*original.ExternalRestaurantName)
	}
	return original.CreatorID + "|" + venue + "|" + scannerID
}

// ClaimReferral is the scan of someone else's referral QR. Guards: no
// self-referral, no expired or non-active originals, and one claim per
// (creator, restaurant, scanner) triple ever — a claimed-then-expired row
// still blocks re-claiming. On success a new scanner-owned row in status
// scanned is returned.
func (s *ReferralService) ClaimReferral(referralID, scannerID string) (*models.Referral, error) {
	now := s.Now()
	var claimed *models.Referral

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var original models.Referral
		if err := tx.First(&original, "id = ?", referralID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReferralNotFound
			}
			return err
		}

		if original.CreatorID == scannerID {
			return ErrSelfReferral
		}
		if original.ExpiresAt.Before(now) {
			return ErrReferralExpired
		}
		if original.Status != models.ReferralStatusActive {
			return ErrReferralNotActive
		}

		key := claimKey(&original, scannerID)
		var existing int64
		if err := tx.Model(&models.Referral{}).Where("claim_key = ?", key).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyClaimed
		}

		row := models.Referral{
			ID:                     uuid.NewString(),
			CreatorID:              original.CreatorID,
			RestaurantID:           original.RestaurantID,
			ExternalRestaurantName: original.ExternalRestaurantName,
			IsExternal:             original.IsExternal,
			Status:                 models.ReferralStatusScanned,
			ExpiresAt:              now.Add(ReferralLifetime),
			ScannedByID:            &scannerID,
			ScannedAt:              &now,
			ClaimKey:               &key,
		}
		if err := tx.Create(&row).Error; err != nil {
			// Unique index on claim_key: a concurrent duplicate lands here.
			if isUniqueViolation(err) {
				return ErrAlreadyClaimed
			}
			return err
		}
		claimed = &row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkPresented advances a referral to presented when its activity is scanned
// at the restaurant. Idempotent: a row already at presented or beyond is left
// alone (zero affected rows is not an error here).
func (s *ReferralService) MarkPresented(referralID string) error {
	return markReferralPresented(s.DB, referralID)
}

// markReferralPresented is the tx-friendly form, so the activity scan can
// advance the referral inside its own transaction.
func markReferralPresented(db *gorm.DB, referralID string) error {
	return db.Model(&models.Referral{}).
		Where("id = ? AND status IN ?", referralID,
			[]models.ReferralStatus{models.ReferralStatusActive, models.ReferralStatusScanned}).
		Update("status", models.ReferralStatusPresented).Error
}

// DeleteReferral removes the creator's own referral (soft delete).
func (s *ReferralService) DeleteReferral(referralID, creatorID string) error {
	res := s.DB.Where("id = ? AND creator_id = ?", referralID, creatorID).Delete(&models.Referral{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrReferralNotFound
	}
	return nil
}

// ExpireOverdue flips every non-terminal referral past its expiry to expired.
// Run by the sweep scheduler; expiry is also checked lazily on claim so this
// is a tidy-up, not a correctness gate.
func (s *ReferralService) ExpireOverdue() (int64, error) {
	res := s.DB.Model(&models.Referral{}).
		Where("status IN ? AND expires_at < ?",
			[]models.ReferralStatus{
				models.ReferralStatusActive,
				models.ReferralStatusScanned,
				models.ReferralStatusPresented,
			}, s.Now()).
		Update("status", models.ReferralStatusExpired)
	return res.RowsAffected, res.Error
}

// isUniqueViolation matches duplicate-key failures across postgres and the
// sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
