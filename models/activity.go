package models

import "time"

// ActivityType is the workflow state of an activity record. Each flavor
// (referral, redeem) only moves forward through its presented -> scanned ->
// processed chain.
type ActivityType string

const (
	ActivityReferralPresented ActivityType = "referral_presented"
	ActivityReferralScanned   ActivityType = "referral_scanned"
	ActivityReferralProcessed ActivityType = "referral_processed"

	ActivityRedeemPresented ActivityType = "redeem_presented"
	ActivityRedeemScanned   ActivityType = "redeem_scanned"
	ActivityRedeemProcessed ActivityType = "redeem_processed"

	ActivityPointsDeducted     ActivityType = "points_deducted"
	ActivityRollTokenProcessed ActivityType = "roll_token_processed"
)

// Activity records one customer/restaurant interaction in progress: a
// referral redemption or a points redemption. Exactly one points
// distribution is ever committed per activity — bill processing transitions
// the row to its terminal processed type with a conditional update, so a
// re-run finds zero matching rows instead of paying twice.
type Activity struct {
	ID           string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	UserID       string `gorm:"type:uuid;index;not null" json:"user_id"`
	RestaurantID string `gorm:"type:uuid;index;not null" json:"restaurant_id"`

	Type        ActivityType `gorm:"not null;index" json:"type"`
	Description string       `gorm:"type:text" json:"description"`

	AmountSpent    float64 `json:"amount_spent"`
	PointsRedeemed float64 `json:"points_redeemed"`

	// Points distribution, fixed at processing time.
	CustomerPoints            float64 `json:"customer_points"`
	ReferrerPoints            float64 `json:"referrer_points"`
	RestaurantRecruiterPoints float64 `json:"restaurant_recruiter_points"`
	AppReferrerPoints         float64 `json:"app_referrer_points"`
	RestaurantDeduction       float64 `json:"restaurant_deduction"`

	// Customer balance snapshot taken just before the deduction commits.
	InitialPointsBalance float64 `json:"initial_points_balance"`

	ReceiptPhotoURL       string `gorm:"type:text" json:"receipt_photo_url"`
	ProcessedOutsideHours bool   `gorm:"not null;default:false" json:"processed_outside_hours"`
	IsTakeaway            bool   `gorm:"not null;default:false" json:"is_takeaway"`

	ReferralID *string `gorm:"type:uuid;index" json:"referral_id,omitempty"`

	IsActive  bool      `gorm:"not null;default:true;index" json:"is_active"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`

	ScannerID     *string `gorm:"type:uuid" json:"scanner_id,omitempty"`
	ProcessedByID *string `gorm:"type:uuid" json:"processed_by_id,omitempty"`

	Timestamps
}
