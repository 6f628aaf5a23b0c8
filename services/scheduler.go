package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartExpirySweeper runs the lazy-expiry tidy-up on a schedule: overdue
// referrals flip to expired and stale presented QRs deactivate. Correctness
// never depends on the sweep — every claim and scan checks expiry itself —
// it just keeps listings honest.
func StartExpirySweeper(referrals *ReferralService, activities *ActivityService) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if n, err := referrals.ExpireOverdue(); err != nil {
				log.Printf("[Sweeper] referral expiry failed: %v", err)
			} else if n > 0 {
				log.Printf("✅ Expired %d overdue referrals", n)
			}

			if n, err := activities.DeactivateOverdue(); err != nil {
				log.Printf("[Sweeper] activity expiry failed: %v", err)
			} else if n > 0 {
				log.Printf("✅ Deactivated %d stale activities", n)
			}
		}),
	)
}
