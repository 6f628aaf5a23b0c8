package services

import (
	"errors"
	"fmt"
	"time"

	"referdby-backend/models"

	"gorm.io/gorm"
)

// CooldownMonths is the minimum gap between two processed redemptions by the
// same user at the same restaurant, in calendar months (not fixed days).
const CooldownMonths = 3

// EligibilityService enforces the once-per-cooldown redemption rule.
type EligibilityService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewEligibilityService(db *gorm.DB) *EligibilityService {
	return &EligibilityService{DB: db, Now: time.Now}
}

// Eligibility is the outcome of a cooldown check. Message is set only when
// ineligible and names the next date a redemption becomes possible.
type Eligibility struct {
	Eligible         bool       `json:"eligible"`
	Message          string     `json:"message,omitempty"`
	LastRedemptionAt *time.Time `json:"last_redemption_at,omitempty"`
	NextEligibleAt   *time.Time `json:"next_eligible_at,omitempty"`
}

// CheckEligibility finds the most recent processed redemption for the
// (user, restaurant) pair and applies the calendar-month cooldown. The
// boundary is closed: exactly CooldownMonths after the last redemption is
// eligible again. Lookup failures are returned as errors, never treated as
// eligible.
func (s *EligibilityService) CheckEligibility(userID, restaurantID string) (*Eligibility, error) {
	var last models.Activity
	err := s.DB.
		Where("user_id = ? AND restaurant_id = ? AND type = ?",
			userID, restaurantID, models.ActivityRedeemProcessed).
		Order("created_at DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Eligibility{Eligible: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("eligibility lookup failed: %w", err)
	}

	nextEligible := last.CreatedAt.AddDate(0, CooldownMonths, 0)
	now := s.Now()
	if !now.Before(nextEligible) {
		return &Eligibility{Eligible: true, LastRedemptionAt: &last.CreatedAt}, nil
	}
	return &Eligibility{
		Eligible:         false,
		LastRedemptionAt: &last.CreatedAt,
		NextEligibleAt:   &nextEligible,
		Message: fmt.Sprintf("You already redeemed points at this restaurant in the last %d months. Next redemption available on %s.",
			CooldownMonths, nextEligible.Format("2 Jan 2006")),
	}, nil
}
