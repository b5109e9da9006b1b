package handlers

import (
	"errors"
	"strings"
	"time"

	"referral-program/services"
	"referral-program/store"

	"github.com/gofiber/fiber/v2"
)

// Wire contract shared with the web client; field names are case-sensitive.

type CreateReferralRequest struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phoneNumber"`
}

type CreateReferralResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	ReferralCode string `json:"referralCode,omitempty"`
}

type ReferralDetailsResponse struct {
	ReferrerName string     `json:"referrerName"`
	PhoneNumber  string     `json:"phoneNumber"`
	ReferralCode string     `json:"referralCode"`
	IsRedeemed   bool       `json:"isRedeemed"`
	CreatedAt    time.Time  `json:"createdAt"`
	RedeemedAt   *time.Time `json:"redeemedAt"`
}

func SetupReferralRoutes(app *fiber.App, svc *services.ReferralService) {
	api := app.Group("/api")
	api.Post("/referral", createReferral(svc))
	api.Get("/referral/:code", getReferralByCode(svc))
}

func createReferral(svc *services.ReferralService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req CreateReferralRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(CreateReferralResponse{
				Success: false,
				Message: "Invalid request body.",
			})
		}

		if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.PhoneNumber) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(CreateReferralResponse{
				Success: false,
				Message: "Name and phone number are required.",
			})
		}

		ok, code, message := svc.CreateReferral(c.Context(),
			strings.TrimSpace(req.Name),
			strings.TrimSpace(req.PhoneNumber))

		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(CreateReferralResponse{
				Success: false,
				Message: message,
			})
		}

		return c.JSON(CreateReferralResponse{
			Success:      true,
			Message:      message,
			ReferralCode: code,
		})
	}
}

func getReferralByCode(svc *services.ReferralService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		referral, err := svc.GetReferralByCode(c.Context(), c.Params("code"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"message": "Referral code not found.",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "An error occurred while fetching the referral.",
			})
		}

		return c.JSON(ReferralDetailsResponse{
			ReferrerName: referral.ReferrerName,
			PhoneNumber:  referral.PhoneNumber,
			ReferralCode: referral.ReferralCode,
			IsRedeemed:   referral.IsRedeemed,
			CreatedAt:    referral.CreatedAt,
			RedeemedAt:   referral.RedeemedAt,
		})
	}
}
