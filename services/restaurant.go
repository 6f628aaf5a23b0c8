package services

import (
	"errors"
	"fmt"
	"time"

	"referdby-backend/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// RestaurantService manages venue listings: publishing, hours and the
// redemption-availability check the customer app polls before offering the
// redeem button.
type RestaurantService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewRestaurantService(db *gorm.DB) *RestaurantService {
	return &RestaurantService{DB: db, Now: time.Now}
}

// CreateRestaurant registers a draft listing. The public slug is derived
// from the name; recruiterID records who brought the venue in.
func (s *RestaurantService) CreateRestaurant(name, timezone, currencyCode string, recruiterID *string) (*models.Restaurant, error) {
	r := &models.Restaurant{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        slug.Make(name) + "-" + uuid.NewString()[:8],
		Status:      models.RestaurantStatusDraft,
		Timezone:    timezone,
		Currency:    currencyCode,
		RecruiterID: recruiterID,
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}
	if err := s.DB.Create(r).Error; err != nil {
		return nil, fmt.Errorf("failed to create restaurant: %w", err)
	}
	return r, nil
}

// Publish flips a draft listing live. Refuses without a timezone: every
// availability check would fail closed and the listing would look
// permanently shut.
func (s *RestaurantService) Publish(restaurantID string) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := s.DB.First(&r, "id = ?", restaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}
	if r.Timezone == "" {
		return nil, fmt.Errorf("cannot publish %s: timezone not set", r.Name)
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return nil, fmt.Errorf("cannot publish %s: bad timezone %q", r.Name, r.Timezone)
	}
	r.Status = models.RestaurantStatusPublished
	if err := s.DB.Save(&r).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateHours replaces one of the three weekly schedules. Saved through the
// model so the schedule goes through the json serializer; a bare column
// update would hand the raw slice to the driver.
func (s *RestaurantService) UpdateHours(restaurantID string, kind ScheduleKind, entries models.WeekSchedule) error {
	var r models.Restaurant
	if err := s.DB.First(&r, "id = ?", restaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRestaurantNotFound
		}
		return err
	}
	switch kind {
	case ScheduleOpen:
		r.OpeningHours = entries
	case ScheduleDineIn:
		r.DineInHours = entries
	case ScheduleTakeaway:
		r.TakeawayHours = entries
	default:
		return fmt.Errorf("unknown schedule kind %q", kind)
	}
	return s.DB.Save(&r).Error
}

// Availability is what the customer app shows next to the redeem button.
type Availability struct {
	Open           bool `json:"open"`
	DineInRedeem   bool `json:"dine_in_redeem"`
	TakeawayRedeem bool `json:"takeaway_redeem"`
}

// CheckAvailability evaluates all three schedules at once. Unpublished
// restaurants are fully unavailable.
func (s *RestaurantService) CheckAvailability(restaurantID string) (*Availability, error) {
	var r models.Restaurant
	if err := s.DB.First(&r, "id = ?", restaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRestaurantNotFound
		}
		return nil, err
	}
	if r.Status != models.RestaurantStatusPublished {
		return &Availability{}, nil
	}
	now := s.Now()
	return &Availability{
		Open:           RestaurantOpenAt(&r, ScheduleOpen, now),
		DineInRedeem:   RestaurantOpenAt(&r, ScheduleDineIn, now),
		TakeawayRedeem: RestaurantOpenAt(&r, ScheduleTakeaway, now),
	}, nil
}
