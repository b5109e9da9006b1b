package handlers

import (
	"strings"

	"referral-program/services"

	"github.com/gofiber/fiber/v2"
)

type MarkRedeemedRequest struct {
	ReferralCode string `json:"referralCode"`
}

type MarkRedeemedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// SetupAdminRoutes registers the point-of-sale endpoints. Guards are applied
// to the whole group so an auth middleware can be slotted in without
// touching the handlers; today the group ships unguarded.
func SetupAdminRoutes(app *fiber.App, svc *services.ReferralService, guards ...fiber.Handler) {
	admin := app.Group("/api/admin")
	for _, g := range guards {
		admin.Use(g)
	}
	admin.Post("/redeem", markAsRedeemed(svc))
}

func markAsRedeemed(svc *services.ReferralService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req MarkRedeemedRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(MarkRedeemedResponse{
				Success: false,
				Message: "Invalid request body.",
			})
		}

		if strings.TrimSpace(req.ReferralCode) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(MarkRedeemedResponse{
				Success: false,
				Message: "Referral code is required.",
			})
		}

		ok, err := svc.MarkAsRedeemed(c.Context(), req.ReferralCode)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(MarkRedeemedResponse{
				Success: false,
				Message: "An error occurred while marking the referral as redeemed.",
			})
		}
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(MarkRedeemedResponse{
				Success: false,
				Message: "Referral code not found or already redeemed.",
			})
		}

		return c.JSON(MarkRedeemedResponse{
			Success: true,
			Message: "Referral code marked as redeemed successfully.",
		})
	}
}
