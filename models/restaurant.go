package models

// RestaurantStatus indicates the publishing status of a restaurant listing
type RestaurantStatus string

const (
	RestaurantStatusDraft     RestaurantStatus = "draft"
	RestaurantStatusPublished RestaurantStatus = "published"
	RestaurantStatusArchived  RestaurantStatus = "archived"
)

// Restaurant is a listed venue. Hours are three independent weekly schedules:
// public opening hours, dine-in redemption hours and takeaway redemption
// hours (the latter two often mirror the first but may diverge).
type Restaurant struct {
	ID       string           `gorm:"primaryKey;type:uuid;not null" json:"id"`
	Name     string           `gorm:"not null" json:"name"`
	Slug     string           `gorm:"uniqueIndex;not null" json:"slug"`
	Status   RestaurantStatus `gorm:"not null;default:'draft'" json:"status"`
	Timezone string           `gorm:"size:64" json:"timezone"` // IANA name, e.g. "Europe/London"
	Currency string           `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Address  string           `gorm:"type:text" json:"address"`
	Phone    string           `gorm:"size:32" json:"phone"`
	Website  string           `gorm:"type:text" json:"website"`
	ImageURL string           `gorm:"type:text" json:"image_url"`

	OpeningHours  WeekSchedule `gorm:"type:jsonb;serializer:json" json:"opening_hours"`
	DineInHours   WeekSchedule `gorm:"type:jsonb;serializer:json" json:"dine_in_hours"`
	TakeawayHours WeekSchedule `gorm:"type:jsonb;serializer:json" json:"takeaway_hours"`

	// Ledger side: the restaurant's points pool is drawn down by the
	// deduction share of every processed bill.
	PointsBalance float64 `gorm:"not null;default:0" json:"points_balance"`

	// Cap on how much of a bill may be settled in points, percent of total.
	MaxRedeemPct float64 `gorm:"not null;default:50" json:"max_redeem_pct"`

	// The user who recruited this restaurant onto the platform, if any.
	RecruiterID *string `gorm:"type:uuid;index" json:"recruiter_id,omitempty"`

	Timestamps
}
