package models

import "time"

// TokenState is the lifecycle state of a dice (bonus roll) token. The chain
// is strictly linear; every transition is committed as a conditional update
// guarded by the expected prior state, which is what makes concurrent scans
// from separate sessions safe.
type TokenState string

const (
	TokenStateCreated             TokenState = "created"
	TokenStateUserScanned         TokenState = "user_scanned"
	TokenStatePresentAtRestaurant TokenState = "present_at_restaurant"
	TokenStateProcessed           TokenState = "processed"
)

// DiceToken is a gamified bonus-roll ticket issued by a restaurant.
type DiceToken struct {
	ID           string     `gorm:"primaryKey;type:uuid;not null" json:"id"`
	RestaurantID string     `gorm:"type:uuid;index;not null" json:"restaurant_id"`
	TokenState   TokenState `gorm:"not null;default:'created';index" json:"token_state"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`

	UserScannedBy       *string `gorm:"type:uuid" json:"user_scanned_by,omitempty"`
	RestaurantScannedBy *string `gorm:"type:uuid" json:"restaurant_scanned_by,omitempty"`
	ProcessedBy         *string `gorm:"type:uuid" json:"processed_by,omitempty"`

	Timestamps
}
