// handlers/redemption_routes.go
package handlers

import (
	"referdby-backend/middleware"
	"referdby-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRedemptionRoutes(app *fiber.App, redemptions *services.RedemptionService, eligibility *services.EligibilityService, allocation *services.AllocationService, activities *services.ActivityService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Cooldown check the customer app runs before showing the redeem flow.
	secured.Get("/redemptions/eligibility/:restaurantId", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		elig, err := eligibility.CheckEligibility(userID, c.Params("restaurantId"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Eligibility check failed"})
		}
		return c.JSON(elig)
	})

	// Customer generates a redemption QR.
	secured.Post("/redemptions/present", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			RestaurantID string `json:"restaurant_id"`
			IsTakeaway   bool   `json:"is_takeaway"`
		}
		if err := c.BodyParser(&req); err != nil || req.RestaurantID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "restaurant_id is required"})
		}

		elig, err := eligibility.CheckEligibility(userID, req.RestaurantID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Eligibility check failed"})
		}
		if !elig.Eligible {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": elig.Message})
		}

		act, err := activities.PresentRedemption(userID, req.RestaurantID, req.IsTakeaway)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create redemption"})
		}
		return c.Status(fiber.StatusCreated).JSON(act)
	})

	// Dry-run distribution preview for a bill amount.
	secured.Get("/redemptions/quote", func(c *fiber.Ctx) error {
		bill := services.ParseAmount(c.Query("bill"))
		if bill <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bill must be a positive amount"})
		}

		billCurrency := c.Query("currency")
		homeCurrency := c.Query("home_currency")
		if billCurrency != "" && homeCurrency != "" && billCurrency != homeCurrency {
			split, err := allocation.CalculatePointsInCurrency(bill, billCurrency, homeCurrency, c.QueryBool("allow_stale"))
			if err != nil {
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
			}
			return c.JSON(split)
		}

		split, err := allocation.CalculatePoints(bill)
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(split)
	})

	// Staff settles the bill: multipart form with the receipt photo.
	secured.Post("/redemptions/:activityId/process", middleware.RequireRole("staff"), func(c *fiber.Ctx) error {
		staffID := c.Locals("user_id").(string)

		receipt, _ := c.FormFile("receipt")
		in := services.ProcessInput{
			ActivityID:     c.Params("activityId"),
			RestaurantID:   c.FormValue("restaurant_id"),
			UserID:         c.FormValue("user_id"),
			ProcessedByID:  staffID,
			PointsToRedeem: services.ParseAmount(c.FormValue("points")),
			BillAmount:     services.ParseAmount(c.FormValue("bill_amount")),
			BillCurrency:   c.FormValue("bill_currency"),
			Receipt:        receipt,
			IsOutOfHours:   c.FormValue("out_of_hours") == "true",
			IsTakeaway:     c.FormValue("is_takeaway") == "true",
			AllowStaleRate: c.FormValue("allow_stale_rate") == "true",
		}
		if in.RestaurantID == "" || in.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "restaurant_id and user_id are required"})
		}

		result, err := redemptions.ProcessRedemption(in)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process redemption", "cause": err.Error()})
		}
		if !result.Success {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
		}
		return c.JSON(result)
	})

	// Staff settles a referral visit bill (no points spent).
	secured.Post("/referral-bills/:activityId/process", middleware.RequireRole("staff"), func(c *fiber.Ctx) error {
		staffID := c.Locals("user_id").(string)

		receipt, _ := c.FormFile("receipt")
		in := services.ProcessInput{
			ActivityID:     c.Params("activityId"),
			RestaurantID:   c.FormValue("restaurant_id"),
			UserID:         c.FormValue("user_id"),
			ProcessedByID:  staffID,
			BillAmount:     services.ParseAmount(c.FormValue("bill_amount")),
			BillCurrency:   c.FormValue("bill_currency"),
			Receipt:        receipt,
			IsOutOfHours:   c.FormValue("out_of_hours") == "true",
			AllowStaleRate: c.FormValue("allow_stale_rate") == "true",
		}
		if in.RestaurantID == "" || in.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "restaurant_id and user_id are required"})
		}

		result, err := redemptions.ProcessReferralBill(in)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process referral bill", "cause": err.Error()})
		}
		if !result.Success {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
		}
		return c.JSON(result)
	})
}
