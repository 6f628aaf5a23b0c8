package services

import (
	"strings"
	"time"

	"referdby-backend/models"
)

// ScheduleKind selects which of a restaurant's weekly schedules to evaluate.
type ScheduleKind string

const (
	ScheduleOpen     ScheduleKind = "open"
	ScheduleDineIn   ScheduleKind = "dineIn"
	ScheduleTakeaway ScheduleKind = "takeaway"
)

// IsOpenAt reports whether the instant falls inside an open window of the
// weekly schedule, evaluated on the restaurant's local wall clock.
//
// Policy: fail closed. A missing timezone, an unknown timezone, an empty
// schedule or a missing day entry all mean "not open" — for opening-hours
// display as well as redemption gating, so the two checks can never disagree.
func IsOpenAt(entries models.WeekSchedule, timezone string, at time.Time) bool {
	if len(entries) == 0 || timezone == "" {
		return false
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return false
	}
	local := at.In(loc)
	day := local.Weekday().String()
	clock := local.Format("15:04")

	for _, e := range entries {
		if !strings.EqualFold(e.Day, day) {
			continue
		}
		if !e.IsOpen || e.OpenTime == "" || e.CloseTime == "" {
			return false
		}
		// Fixed-width zero-padded HH:mm, so string order is clock order.
		return e.OpenTime <= clock && clock <= e.CloseTime
	}
	return false
}

// ScheduleFor picks the requested weekly schedule off a restaurant.
func ScheduleFor(r *models.Restaurant, kind ScheduleKind) models.WeekSchedule {
	switch kind {
	case ScheduleDineIn:
		return r.DineInHours
	case ScheduleTakeaway:
		return r.TakeawayHours
	default:
		return r.OpeningHours
	}
}

// RestaurantOpenAt evaluates one of the restaurant's schedules at the given
// instant in the restaurant's own timezone.
func RestaurantOpenAt(r *models.Restaurant, kind ScheduleKind, at time.Time) bool {
	return IsOpenAt(ScheduleFor(r, kind), r.Timezone, at)
}
