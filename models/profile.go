package models

import (
	"time"

	"gorm.io/gorm"
)

// Profile mirrors the customer identity from the auth service plus the
// loyalty state this service owns (points balance, home currency).
type Profile struct {
	ID            string  `gorm:"primaryKey;type:uuid;not null" json:"id"` // External user ID
	DisplayName   string  `gorm:"size:120" json:"display_name"`
	PointsBalance float64 `gorm:"not null;default:0" json:"points_balance"`
	Currency      string  `gorm:"size:3;not null;default:'USD'" json:"currency"`

	// Who referred this user into the app, if anyone. Earns a cut on bills.
	AppReferrerID *string `gorm:"type:uuid;index" json:"app_referrer_id,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
