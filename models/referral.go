package models

import "time"

// ReferralStatus is the lifecycle state of a referral. Transitions only move
// forward: active -> scanned -> presented -> used, or any non-terminal state
// -> expired once ExpiresAt passes.
type ReferralStatus string

const (
	ReferralStatusActive    ReferralStatus = "active"
	ReferralStatusScanned   ReferralStatus = "scanned"
	ReferralStatusPresented ReferralStatus = "presented"
	ReferralStatusUsed      ReferralStatus = "used"
	ReferralStatusExpired   ReferralStatus = "expired"
)

// Referral is a shareable invitation from a creator to a restaurant. A claim
// by another user inserts a *new* row owned by the scanner (the original row
// stays active and re-shareable); ClaimKey enforces one claim per
// (creator, restaurant, scanner) triple at the database level.
type Referral struct {
	ID        string `gorm:"primaryKey;type:uuid;not null" json:"id"`
	CreatorID string `gorm:"type:uuid;index;not null" json:"creator_id"`

	// Exactly one of RestaurantID / ExternalRestaurantName is set,
	// flagged by IsExternal (unlisted venues are referred by name).
	RestaurantID           *string `gorm:"type:uuid;index" json:"restaurant_id,omitempty"`
	ExternalRestaurantName *string `json:"external_restaurant_name,omitempty"`
	IsExternal             bool    `gorm:"not null;default:false" json:"is_external"`

	Status    ReferralStatus `gorm:"not null;default:'active';index" json:"status"`
	ExpiresAt time.Time      `gorm:"not null;index" json:"expires_at"`

	ScannedByID *string    `gorm:"type:uuid;index" json:"scanned_by_id,omitempty"`
	ScannedAt   *time.Time `json:"scanned_at,omitempty"`

	// Set only on claimed rows: "creator|restaurant|scanner". NULL on
	// originals so they never collide with each other.
	ClaimKey *string `gorm:"uniqueIndex" json:"-"`

	// Advisory flag, not a blocking state: the scanner visited this
	// restaurant too recently for the referral to pay out.
	IsInvalidRecentVisit bool `gorm:"not null;default:false" json:"is_invalid_recent_visit"`

	Timestamps
}

// Terminal reports whether the status admits no further transitions.
func (s ReferralStatus) Terminal() bool {
	return s == ReferralStatusUsed || s == ReferralStatusExpired
}
