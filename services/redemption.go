package services

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"time"

	"referdby-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrRestaurantNotFound = errors.New("restaurant not found")
	errAlreadyProcessed   = errors.New("activity already processed")
	errBalanceConflict    = errors.New("balance check failed at commit")
)

// ReceiptUploader persists a bill image and returns its durable public URL.
// Satisfied by the R2 client in production and a stub in tests.
type ReceiptUploader interface {
	Upload(fileHeader *multipart.FileHeader, key string) (string, error)
}

// RedemptionService is the bill-processing unit of work: eligibility and
// numeric re-checks, receipt upload, then one transaction that moves every
// balance and the activity row together. The transaction is the only place a
// partial failure could corrupt the ledger, so nothing in it is best-effort
// except stakeholder credits to accounts that do not exist.
type RedemptionService struct {
	DB          *gorm.DB
	Eligibility *EligibilityService
	Allocation  *AllocationService
	Uploads     ReceiptUploader
	Now         func() time.Time
}

func NewRedemptionService(db *gorm.DB, eligibility *EligibilityService, allocation *AllocationService, uploads ReceiptUploader) *RedemptionService {
	return &RedemptionService{
		DB:          db,
		Eligibility: eligibility,
		Allocation:  allocation,
		Uploads:     uploads,
		Now:         time.Now,
	}
}

// ProcessInput carries everything staff submit when settling a bill.
type ProcessInput struct {
	ActivityID     string
	RestaurantID   string
	UserID         string
	ProcessedByID  string
	PointsToRedeem float64
	BillAmount     float64
	BillCurrency   string // empty means the restaurant's own currency
	Receipt        *multipart.FileHeader
	IsOutOfHours   bool
	IsTakeaway     bool
	AllowStaleRate bool
}

// ProcessResult distinguishes business-rule rejections (Success=false plus a
// user-facing Message) from infra failures, which come back as errors.
type ProcessResult struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Split   *PointsSplit       `json:"split,omitempty"`
	Warning *RedemptionWarning `json:"warning,omitempty"`
}

func reject(msg string) *ProcessResult {
	return &ProcessResult{Success: false, Message: msg}
}

// ProcessRedemption settles a points redemption: the customer pays part of
// the bill in points and the visit still earns the usual distribution.
// Sequence — each failing step aborts all later ones:
//  1. eligibility re-check (the UI gated it already; re-check anyway)
//  2. numeric invariants: points > 0, bill > 0, points <= balance, points <= cap
//  3. receipt upload, yielding a durable URL
//  4. one transaction: conditional balance decrement re-verified at commit,
//     stakeholder credits, restaurant deduction, activity moved to its
//     terminal redeem_processed state. Re-running with the same activity id
//     finds the activity already terminal and pays nothing twice.
func (s *RedemptionService) ProcessRedemption(in ProcessInput) (*ProcessResult, error) {
	elig, err := s.Eligibility.CheckEligibility(in.UserID, in.RestaurantID)
	if err != nil {
		return nil, err
	}
	if !elig.Eligible {
		return reject(elig.Message), nil
	}

	if in.PointsToRedeem <= 0 {
		return reject("Points to redeem must be greater than zero"), nil
	}
	if in.BillAmount <= 0 {
		return reject("Bill amount must be greater than zero"), nil
	}

	profile, restaurant, err := s.loadParties(in.UserID, in.RestaurantID)
	if err != nil {
		return nil, err
	}
	if w := ValidateRedemption(in.BillAmount, in.PointsToRedeem, restaurant.MaxRedeemPct, profile.PointsBalance); w != nil {
		return &ProcessResult{Success: false, Message: w.Message, Warning: w}, nil
	}

	split, err := s.splitFor(in, profile, restaurant)
	if err != nil {
		return nil, err
	}

	if in.Receipt == nil {
		return reject("A photo of the bill is required"), nil
	}
	receiptURL, err := s.Uploads.Upload(in.Receipt, "receipts/"+in.ActivityID+"-"+uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("receipt upload failed: %w", err)
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var act models.Activity
		if err := tx.First(&act, "id = ?", in.ActivityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActivityNotFound
			}
			return err
		}

		var fresh models.Profile
		if err := tx.First(&fresh, "id = ?", in.UserID).Error; err != nil {
			return err
		}
		initialBalance := fresh.PointsBalance

		// Balance check re-verified at commit: the WHERE clause loses
		// against a concurrent redemption that spent the points first.
		res := tx.Model(&models.Profile{}).
			Where("id = ? AND points_balance >= ?", in.UserID, in.PointsToRedeem).
			Update("points_balance",
				gorm.Expr("points_balance - ? + ?", in.PointsToRedeem, split.CustomerPoints))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errBalanceConflict
		}

		if err := s.creditStakeholders(tx, &act, profile, restaurant, split); err != nil {
			return err
		}

		if err := tx.Model(&models.Restaurant{}).
			Where("id = ?", in.RestaurantID).
			Update("points_balance", gorm.Expr("points_balance - ?", split.RestaurantDeduction)).Error; err != nil {
			return err
		}

		desc := "Points redeemed against bill"
		if in.IsTakeaway {
			desc = "Points redeemed against takeaway order"
		}
		res = tx.Model(&models.Activity{}).
			Where("id = ? AND type IN ?", in.ActivityID,
				[]models.ActivityType{models.ActivityRedeemPresented, models.ActivityRedeemScanned}).
			Updates(map[string]interface{}{
				"type":                        models.ActivityRedeemProcessed,
				"description":                 desc,
				"amount_spent":                Round2(in.BillAmount),
				"points_redeemed":             in.PointsToRedeem,
				"customer_points":             split.CustomerPoints,
				"referrer_points":             split.ReferrerPoints,
				"restaurant_recruiter_points": split.RestaurantRecruiterPoints,
				"app_referrer_points":         split.AppReferrerPoints,
				"restaurant_deduction":        split.RestaurantDeduction,
				"initial_points_balance":      initialBalance,
				"receipt_photo_url":           receiptURL,
				"processed_outside_hours":     in.IsOutOfHours,
				"is_takeaway":                 in.IsTakeaway,
				"processed_by_id":             in.ProcessedByID,
				"is_active":                   false,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadyProcessed
		}
		return nil
	})
	switch {
	case errors.Is(err, errAlreadyProcessed):
		return reject("This bill has already been processed"), nil
	case errors.Is(err, errBalanceConflict):
		return reject("Points balance changed — please refresh and try again"), nil
	case errors.Is(err, ErrActivityNotFound):
		return reject("Redemption not found — ask the customer to present it again"), nil
	case err != nil:
		return nil, err
	}

	log.Printf("✅ Redemption processed: activity=%s user=%s points=%.2f bill=%.2f",
		in.ActivityID, in.UserID, in.PointsToRedeem, in.BillAmount)
	return &ProcessResult{Success: true, Split: split}, nil
}

// ProcessReferralBill settles a referral visit: no points are spent, the bill
// just earns the distribution and closes the referral chain (activity to
// referral_processed, referral to used). Idempotent the same way.
func (s *RedemptionService) ProcessReferralBill(in ProcessInput) (*ProcessResult, error) {
	if in.BillAmount <= 0 {
		return reject("Bill amount must be greater than zero"), nil
	}

	profile, restaurant, err := s.loadParties(in.UserID, in.RestaurantID)
	if err != nil {
		return nil, err
	}
	split, err := s.splitFor(in, profile, restaurant)
	if err != nil {
		return nil, err
	}

	receiptURL := ""
	if in.Receipt != nil {
		receiptURL, err = s.Uploads.Upload(in.Receipt, "receipts/"+in.ActivityID+"-"+uuid.NewString())
		if err != nil {
			return nil, fmt.Errorf("receipt upload failed: %w", err)
		}
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var act models.Activity
		if err := tx.First(&act, "id = ?", in.ActivityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrActivityNotFound
			}
			return err
		}

		if err := tx.Model(&models.Profile{}).
			Where("id = ?", in.UserID).
			Update("points_balance", gorm.Expr("points_balance + ?", split.CustomerPoints)).Error; err != nil {
			return err
		}

		if err := s.creditStakeholders(tx, &act, profile, restaurant, split); err != nil {
			return err
		}

		if err := tx.Model(&models.Restaurant{}).
			Where("id = ?", in.RestaurantID).
			Update("points_balance", gorm.Expr("points_balance - ?", split.RestaurantDeduction)).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Activity{}).
			Where("id = ? AND type = ?", in.ActivityID, models.ActivityReferralScanned).
			Updates(map[string]interface{}{
				"type":                        models.ActivityReferralProcessed,
				"description":                 "Referral visit bill processed",
				"amount_spent":                Round2(in.BillAmount),
				"customer_points":             split.CustomerPoints,
				"referrer_points":             split.ReferrerPoints,
				"restaurant_recruiter_points": split.RestaurantRecruiterPoints,
				"app_referrer_points":         split.AppReferrerPoints,
				"restaurant_deduction":        split.RestaurantDeduction,
				"receipt_photo_url":           receiptURL,
				"processed_outside_hours":     in.IsOutOfHours,
				"processed_by_id":             in.ProcessedByID,
				"is_active":                   false,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAlreadyProcessed
		}

		if act.ReferralID != nil {
			res := tx.Model(&models.Referral{}).
				Where("id = ? AND status = ?", *act.ReferralID, models.ReferralStatusPresented).
				Update("status", models.ReferralStatusUsed)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				log.Printf("⚠️  Referral %s was not in presented state when its bill closed", *act.ReferralID)
			}
		}
		return nil
	})
	switch {
	case errors.Is(err, errAlreadyProcessed):
		return reject("This referral bill has already been processed"), nil
	case errors.Is(err, ErrActivityNotFound):
		return reject("Referral activity not found"), nil
	case err != nil:
		return nil, err
	}

	log.Printf("✅ Referral bill processed: activity=%s user=%s bill=%.2f",
		in.ActivityID, in.UserID, in.BillAmount)
	return &ProcessResult{Success: true, Split: split}, nil
}

func (s *RedemptionService) loadParties(userID, restaurantID string) (*models.Profile, *models.Restaurant, error) {
	var profile models.Profile
	if err := s.DB.First(&profile, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProfileNotFound
		}
		return nil, nil, err
	}
	var restaurant models.Restaurant
	if err := s.DB.First(&restaurant, "id = ?", restaurantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrRestaurantNotFound
		}
		return nil, nil, err
	}
	return &profile, &restaurant, nil
}

// splitFor computes the distribution, converting the bill into the
// customer's home currency first when it was written in a different one.
func (s *RedemptionService) splitFor(in ProcessInput, profile *models.Profile, restaurant *models.Restaurant) (*PointsSplit, error) {
	billCurrency := in.BillCurrency
	if billCurrency == "" {
		billCurrency = restaurant.Currency
	}
	if billCurrency != profile.Currency {
		return s.Allocation.CalculatePointsInCurrency(in.BillAmount, billCurrency, profile.Currency, in.AllowStaleRate)
	}
	return s.Allocation.CalculatePoints(in.BillAmount)
}

// creditStakeholders pays the referrer, the restaurant recruiter and the app
// referrer their shares. Missing parties (no linked referral, recruiter not
// set, account deleted) simply earn nothing — that is expected, unlike a
// missing allocation rule. A failed write is returned so the caller's
// transaction rolls back: no bill may commit with partial crediting.
func (s *RedemptionService) creditStakeholders(tx *gorm.DB, act *models.Activity, profile *models.Profile, restaurant *models.Restaurant, split *PointsSplit) error {
	credit := func(id string, amount float64, who string) error {
		if amount <= 0 {
			return nil
		}
		res := tx.Model(&models.Profile{}).
			Where("id = ?", id).
			Update("points_balance", gorm.Expr("points_balance + ?", amount))
		if res.Error != nil {
			return fmt.Errorf("failed to credit %s %s: %w", who, id, res.Error)
		}
		if res.RowsAffected == 0 {
			log.Printf("⚠️  No profile for %s %s — %.2f points unpaid", who, id, amount)
		}
		return nil
	}

	if act.ReferralID != nil {
		var ref models.Referral
		err := tx.First(&ref, "id = ?", *act.ReferralID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// referral gone, nothing owed
		case err != nil:
			return err
		case ref.CreatorID != profile.ID:
			if err := credit(ref.CreatorID, split.ReferrerPoints, "referrer"); err != nil {
				return err
			}
		}
	}
	if restaurant.RecruiterID != nil {
		if err := credit(*restaurant.RecruiterID, split.RestaurantRecruiterPoints, "restaurant recruiter"); err != nil {
			return err
		}
	}
	if profile.AppReferrerID != nil {
		if err := credit(*profile.AppReferrerID, split.AppReferrerPoints, "app referrer"); err != nil {
			return err
		}
	}
	return nil
}
