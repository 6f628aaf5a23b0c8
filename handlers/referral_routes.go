// handlers/referral_routes.go
package handlers

import (
	"errors"

	"referdby-backend/middleware"
	"referdby-backend/models"
	"referdby-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReferralRoutes(app *fiber.App, referrals *services.ReferralService, activities *services.ActivityService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	// Create a referral to a listed or external restaurant.
	secured.Post("/referrals", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			RestaurantID           *string `json:"restaurant_id"`
			ExternalRestaurantName *string `json:"external_restaurant_name"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		ref, err := referrals.CreateReferral(userID, req.RestaurantID, req.ExternalRestaurantName)
		if err != nil {
			if errors.Is(err, services.ErrMissingRestaurant) || errors.Is(err, services.ErrAmbiguousReferral) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create referral"})
		}
		return c.Status(fiber.StatusCreated).JSON(ref)
	})

	// List the caller's referrals (created and claimed).
	secured.Get("/referrals", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var refs []models.Referral
		if err := referrals.DB.
			Where("creator_id = ? OR scanned_by_id = ?", userID, userID).
			Order("created_at DESC").
			Find(&refs).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch referrals"})
		}
		return c.JSON(refs)
	})

	// Claim someone else's referral (scan of a shared QR).
	secured.Post("/referrals/:id/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		claimed, err := referrals.ClaimReferral(c.Params("id"), userID)
		switch {
		case errors.Is(err, services.ErrReferralNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrSelfReferral),
			errors.Is(err, services.ErrReferralExpired),
			errors.Is(err, services.ErrReferralNotActive):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrAlreadyClaimed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to claim referral"})
		}
		return c.Status(fiber.StatusCreated).JSON(claimed)
	})

	// Delete the caller's own referral.
	secured.Delete("/referrals/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		if err := referrals.DeleteReferral(c.Params("id"), userID); err != nil {
			if errors.Is(err, services.ErrReferralNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete referral"})
		}
		return c.JSON(fiber.Map{"message": "Referral deleted"})
	})

	// Present a claimed referral at the restaurant (opens the activity).
	secured.Post("/referrals/:id/present", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			RestaurantID string `json:"restaurant_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.RestaurantID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "restaurant_id is required"})
		}

		referralID := c.Params("id")
		act, err := activities.PresentReferral(userID, req.RestaurantID, &referralID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to present referral"})
		}
		return c.Status(fiber.StatusCreated).JSON(act)
	})

	// Staff scans a presented activity QR.
	secured.Post("/activities/:id/scan", middleware.RequireRole("staff"), func(c *fiber.Ctx) error {
		scannerID := c.Locals("user_id").(string)

		act, err := activities.ScanActivity(c.Params("id"), scannerID)
		switch {
		case errors.Is(err, services.ErrActivityNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrActivityExpired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrAlreadyPresented):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to scan activity"})
		}
		return c.JSON(act)
	})
}
