package services

import (
	"errors"
	"fmt"

	"referdby-backend/models"

	"gorm.io/gorm"
)

var (
	ErrMissingAllocationRule      = errors.New("missing points allocation percentage")
	ErrConflictingAllocationRules = errors.New("conflicting active allocation rules")
)

// AllocationService turns a bill total into the per-stakeholder points
// distribution using the active PointsAllocationRule set.
type AllocationService struct {
	DB       *gorm.DB
	Currency *CurrencyService
}

func NewAllocationService(db *gorm.DB, currency *CurrencyService) *AllocationService {
	return &AllocationService{DB: db, Currency: currency}
}

// PointsSplit is one computed distribution. All figures are rounded to 2
// decimals at calculation time. BillCurrency is the currency the bill was
// originally written in, carried through so displays never conflate it with
// the (possibly converted) currency the figures are denominated in.
type PointsSplit struct {
	CustomerPoints            float64 `json:"customer_points"`
	ReferrerPoints            float64 `json:"referrer_points"`
	RestaurantRecruiterPoints float64 `json:"restaurant_recruiter_points"`
	AppReferrerPoints         float64 `json:"app_referrer_points"`
	RestaurantDeduction       float64 `json:"restaurant_deduction"`

	BillAmount   float64 `json:"bill_amount"`
	BillCurrency string  `json:"bill_currency,omitempty"`

	ConvertedAmount float64 `json:"converted_amount,omitempty"`
	HomeCurrency    string  `json:"home_currency,omitempty"`
	RateStale       bool    `json:"rate_stale,omitempty"`
}

// activePercentages loads the active rule set in a single query so every
// figure of one calculation comes from one consistent snapshot. A role with
// no active rule — or more than one, where last-write-wins would pick an
// arbitrary percentage — is a hard configuration failure, never a guess.
func (s *AllocationService) activePercentages() (map[models.AllocationRole]float64, error) {
	var rules []models.PointsAllocationRule
	if err := s.DB.Where("active = ?", true).Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("allocation rule lookup failed: %w", err)
	}
	pct := make(map[models.AllocationRole]float64, len(rules))
	for _, r := range rules {
		if _, seen := pct[r.Role]; seen {
			return nil, fmt.Errorf("%w: %s", ErrConflictingAllocationRules, r.Role)
		}
		pct[r.Role] = r.Percentage
	}
	for _, role := range models.AllAllocationRoles {
		if _, ok := pct[role]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingAllocationRule, role)
		}
	}
	return pct, nil
}

// CalculatePoints distributes a bill total across the stakeholder roles.
func (s *AllocationService) CalculatePoints(billAmount float64) (*PointsSplit, error) {
	pct, err := s.activePercentages()
	if err != nil {
		return nil, err
	}
	return &PointsSplit{
		CustomerPoints:            Round2(billAmount * pct[models.RoleCustomer] / 100),
		ReferrerPoints:            Round2(billAmount * pct[models.RoleReferrer] / 100),
		RestaurantRecruiterPoints: Round2(billAmount * pct[models.RoleRestaurantRecruiter] / 100),
		AppReferrerPoints:         Round2(billAmount * pct[models.RoleAppReferrer] / 100),
		RestaurantDeduction:       Round2(billAmount * pct[models.RoleRestaurantDeduction] / 100),
		BillAmount:                billAmount,
	}, nil
}

// CalculatePointsInCurrency converts the bill into the customer's home
// currency first, then applies the same percentage math to the converted
// figure. The original bill currency rides along in the result.
func (s *AllocationService) CalculatePointsInCurrency(billAmount float64, billCurrency, homeCurrency string, allowStaleRate bool) (*PointsSplit, error) {
	conv, err := s.Currency.Convert(billAmount, billCurrency, homeCurrency, allowStaleRate)
	if err != nil {
		return nil, err
	}
	split, err := s.CalculatePoints(conv.ConvertedAmount)
	if err != nil {
		return nil, err
	}
	split.BillAmount = billAmount
	split.BillCurrency = conv.FromCurrency
	split.ConvertedAmount = conv.ConvertedAmount
	split.HomeCurrency = conv.ToCurrency
	split.RateStale = conv.Stale
	return split, nil
}
