package services

import (
	"errors"
	"fmt"
	"time"

	"referdby-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrActivityNotFound  = errors.New("activity not found")
	ErrAlreadyPresented  = errors.New("activity already presented")
	ErrActivityExpired   = errors.New("activity has expired")
	ErrActivityNotActive = errors.New("activity is no longer active")
)

// ActivityLifetime bounds how long a presented QR stays scannable.
const ActivityLifetime = 24 * time.Hour

// ActivityService creates and advances activity records — the per-visit
// workflow rows behind referral and redemption QR codes.
type ActivityService struct {
	DB        *gorm.DB
	Referrals *ReferralService
	Now       func() time.Time
}

func NewActivityService(db *gorm.DB, referrals *ReferralService) *ActivityService {
	return &ActivityService{DB: db, Referrals: referrals, Now: time.Now}
}

// PresentReferral opens a referral-flavor activity: the customer is at the
// restaurant showing their claimed referral.
func (s *ActivityService) PresentReferral(userID, restaurantID string, referralID *string) (*models.Activity, error) {
	act := &models.Activity{
		ID:           uuid.NewString(),
		UserID:       userID,
		RestaurantID: restaurantID,
		Type:         models.ActivityReferralPresented,
		Description:  "Referral presented at restaurant",
		ReferralID:   referralID,
		IsActive:     true,
		ExpiresAt:    s.Now().Add(ActivityLifetime),
	}
	if err := s.DB.Create(act).Error; err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	return act, nil
}

// PresentRedemption opens a redeem-flavor activity: the customer generated a
// redemption QR for staff to scan. InitialPointsBalance is snapshotted later,
// at processing time.
func (s *ActivityService) PresentRedemption(userID, restaurantID string, isTakeaway bool) (*models.Activity, error) {
	desc := "Points redemption presented"
	if isTakeaway {
		desc = "Takeaway points redemption presented"
	}
	act := &models.Activity{
		ID:           uuid.NewString(),
		UserID:       userID,
		RestaurantID: restaurantID,
		Type:         models.ActivityRedeemPresented,
		Description:  desc,
		IsTakeaway:   isTakeaway,
		IsActive:     true,
		ExpiresAt:    s.Now().Add(ActivityLifetime),
	}
	if err := s.DB.Create(act).Error; err != nil {
		return nil, fmt.Errorf("failed to create activity: %w", err)
	}
	return act, nil
}

// ScanActivity is the staff-side scan of a presented QR. Only a presented
// activity is scannable; the transition is a conditional update keyed on the
// expected prior type, so a concurrent second scan affects zero rows and is
// reported as already presented. A referral scan cascades the linked referral
// to presented in the same transaction: a failed cascade must not leave the
// activity scanned with the referral behind.
func (s *ActivityService) ScanActivity(activityID, scannerID string) (*models.Activity, error) {
	var act models.Activity
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&act, "id = ?", activityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActivityNotFound
			}
			return err
		}
		if act.ExpiresAt.Before(s.Now()) {
			return ErrActivityExpired
		}

		var next models.ActivityType
		switch act.Type {
		case models.ActivityReferralPresented:
			next = models.ActivityReferralScanned
		case models.ActivityRedeemPresented:
			next = models.ActivityRedeemScanned
		default:
			return ErrAlreadyPresented
		}

		res := tx.Model(&models.Activity{}).
			Where("id = ? AND type = ?", activityID, act.Type).
			Updates(map[string]interface{}{
				"type":       next,
				"scanner_id": scannerID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Someone else scanned between our read and this update.
			return ErrAlreadyPresented
		}

		if next == models.ActivityReferralScanned && act.ReferralID != nil {
			if err := markReferralPresented(tx, *act.ReferralID); err != nil {
				return fmt.Errorf("failed to advance referral: %w", err)
			}
		}

		act.Type = next
		act.ScannerID = &scannerID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &act, nil
}

// DeactivateOverdue retires activity rows whose QR window has passed.
func (s *ActivityService) DeactivateOverdue() (int64, error) {
	res := s.DB.Model(&models.Activity{}).
		Where("is_active = ? AND expires_at < ? AND type IN ?", true, s.Now(),
			[]models.ActivityType{
				models.ActivityReferralPresented,
				models.ActivityRedeemPresented,
			}).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}
