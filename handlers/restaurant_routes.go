// handlers/restaurant_routes.go
package handlers

import (
	"errors"

	"referdby-backend/middleware"
	"referdby-backend/models"
	"referdby-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRestaurantRoutes(app *fiber.App, restaurants *services.RestaurantService, currency *services.CurrencyService) {
	// Public listing of published restaurants.
	app.Get("/restaurants", func(c *fiber.Ctx) error {
		var list []models.Restaurant
		if err := restaurants.DB.
			Where("status = ?", models.RestaurantStatusPublished).
			Order("name ASC").
			Find(&list).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch restaurants"})
		}
		return c.JSON(list)
	})

	// Availability the customer app polls before offering redemption.
	app.Get("/restaurants/:id/availability", func(c *fiber.Ctx) error {
		avail, err := restaurants.CheckAvailability(c.Params("id"))
		if err != nil {
			if errors.Is(err, services.ErrRestaurantNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Availability check failed"})
		}
		return c.JSON(avail)
	})

	secured := app.Group("/", middleware.UserContextMiddleware())

	// Register a draft restaurant; the caller becomes its recruiter.
	secured.Post("/restaurants", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Name     string `json:"name"`
			Timezone string `json:"timezone"`
			Currency string `json:"currency"`
		}
		if err := c.BodyParser(&req); err != nil || req.Name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
		}

		r, err := restaurants.CreateRestaurant(req.Name, req.Timezone, req.Currency, &userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create restaurant"})
		}
		return c.Status(fiber.StatusCreated).JSON(r)
	})

	// Publish a draft listing.
	secured.Post("/restaurants/:id/publish", middleware.RequireRole("staff"), func(c *fiber.Ctx) error {
		r, err := restaurants.Publish(c.Params("id"))
		if err != nil {
			if errors.Is(err, services.ErrRestaurantNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "Restaurant published", "restaurant": r})
	})

	// Replace one of the three weekly schedules.
	secured.Put("/restaurants/:id/hours/:kind", middleware.RequireRole("staff"), func(c *fiber.Ctx) error {
		var entries models.WeekSchedule
		if err := c.BodyParser(&entries); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid schedule body"})
		}

		err := restaurants.UpdateHours(c.Params("id"), services.ScheduleKind(c.Params("kind")), entries)
		if err != nil {
			if errors.Is(err, services.ErrRestaurantNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "Hours updated"})
	})

	// Currency conversion preview (bill currency -> home currency).
	secured.Get("/currency/convert", func(c *fiber.Ctx) error {
		amount := services.ParseAmount(c.Query("amount"))
		if amount <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be positive"})
		}

		conv, err := currency.Convert(amount, c.Query("from"), c.Query("to"), c.QueryBool("allow_stale"))
		if err != nil {
			switch {
			case errors.Is(err, services.ErrBadCurrencyCode):
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			case errors.Is(err, services.ErrRateStale), errors.Is(err, services.ErrRateUnavailable):
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Conversion failed"})
			}
		}
		return c.JSON(conv)
	})
}
