// handlers/token_routes.go
package handlers

import (
	"errors"

	"referdby-backend/middleware"
	"referdby-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupTokenRoutes(app *fiber.App, tokens *services.DiceTokenService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	tokenError := func(c *fiber.Ctx, err error) error {
		switch {
		case errors.Is(err, services.ErrTokenNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrTokenExpired):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, services.ErrTokenConflict):
			// Someone else already moved the token — the client should
			// refresh its view, not retry the same transition.
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Token already processed or claimed"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Token operation failed"})
		}
	}

	// Restaurant issues a roll token.
	secured.Post("/tokens", middleware.RequireRole("staff"), func(c *fiber.Ctx) error {
		var req struct {
			RestaurantID string `json:"restaurant_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.RestaurantID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "restaurant_id is required"})
		}

		tok, err := tokens.CreateToken(req.RestaurantID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create token"})
		}
		return c.Status(fiber.StatusCreated).JSON(tok)
	})

	// Customer scans the token.
	secured.Post("/tokens/:id/scan", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		tok, err := tokens.UserScan(c.Params("id"), userID)
		if err != nil {
			return tokenError(c, err)
		}
		return c.JSON(tok)
	})

	// Staff scans the customer's token at the counter.
	secured.Post("/tokens/:id/present", middleware.RequireRole("staff"), func(c *fiber.Ctx) error {
		staffID := c.Locals("user_id").(string)

		tok, err := tokens.PresentAtRestaurant(c.Params("id"), staffID)
		if err != nil {
			return tokenError(c, err)
		}
		return c.JSON(tok)
	})

	// Staff settles the roll.
	secured.Post("/tokens/:id/process", middleware.RequireRole("staff"), func(c *fiber.Ctx) error {
		staffID := c.Locals("user_id").(string)

		tok, err := tokens.ProcessRoll(c.Params("id"), staffID)
		if err != nil {
			return tokenError(c, err)
		}
		return c.JSON(tok)
	})
}
