package models

// AllocationRole names a stakeholder share of a processed bill.
type AllocationRole string

const (
	RoleCustomer            AllocationRole = "customer"
	RoleReferrer            AllocationRole = "referrer"
	RoleRestaurantRecruiter AllocationRole = "restaurant_recruiter"
	RoleAppReferrer         AllocationRole = "app_referrer"
	RoleRestaurantDeduction AllocationRole = "restaurant_deduction"
)

// AllAllocationRoles is the fixed set a calculation must resolve. A missing
// percentage for any of these is a configuration error, never a silent zero.
var AllAllocationRoles = []AllocationRole{
	RoleCustomer,
	RoleReferrer,
	RoleRestaurantRecruiter,
	RoleAppReferrer,
	RoleRestaurantDeduction,
}

// PointsAllocationRule maps a role to its percentage of the bill total.
// Rules are maintained by admins; the core only ever reads the active set.
// No column default on Active: a default would make GORM omit an explicit
// false on insert, silently storing a retired rule as active.
type PointsAllocationRule struct {
	ID         string         `gorm:"primaryKey;type:uuid;not null" json:"id"`
	Role       AllocationRole `gorm:"not null;index" json:"role"`
	Percentage float64        `gorm:"not null" json:"percentage"`
	Active     bool           `gorm:"not null;index" json:"active"`

	Timestamps
}
