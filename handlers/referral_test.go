package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"referral-program/services"
	"referral-program/store"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type stubRand struct{ v int }

func (s stubRand) Intn(int) int { return s.v }

type silentSender struct{ fail bool }

func (s silentSender) Send(context.Context, string, string, string) bool { return !s.fail }

func setupApp(t *testing.T) (*fiber.App, *services.AsyncNotifier) {
	t.Helper()
	st := store.NewMemoryStore()
	notifier := services.NewAsyncNotifier(st, silentSender{})
	svc := services.NewReferralService(st, notifier).WithRand(stubRand{v: 3821})

	app := fiber.New()
	SetupReferralRoutes(app, svc)
	SetupAdminRoutes(app, svc)
	return app, notifier
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestCreateReferralEndpoint(t *testing.T) {
	app, notifier := setupApp(t)

	resp, body := doJSON(t, app, "POST", "/api/referral",
		CreateReferralRequest{Name: "Martin", PhoneNumber: "0412345678"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	require.Equal(t, "MARTIN-4821", body["referralCode"])
	require.Equal(t, "Referral created successfully.", body["message"])

	notifier.Wait()
}

func TestCreateReferralEndpointBlankFields(t *testing.T) {
	app, _ := setupApp(t)

	for _, req := range []CreateReferralRequest{
		{Name: "", PhoneNumber: "0412345678"},
		{Name: "Martin", PhoneNumber: "   "},
		{},
	} {
		resp, body := doJSON(t, app, "POST", "/api/referral", req)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Equal(t, false, body["success"])
		require.Equal(t, "Name and phone number are required.", body["message"])
	}
}

func TestCreateReferralEndpointDuplicatePhone(t *testing.T) {
	app, notifier := setupApp(t)

	resp, _ := doJSON(t, app, "POST", "/api/referral",
		CreateReferralRequest{Name: "Martin", PhoneNumber: "0412345678"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, "POST", "/api/referral",
		CreateReferralRequest{Name: "Someone Else", PhoneNumber: "0412 345 678"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, false, body["success"])
	require.Equal(t, "This phone number has already been used for a referral.", body["message"])

	notifier.Wait()
}

func TestGetReferralEndpoint(t *testing.T) {
	app, notifier := setupApp(t)

	_, created := doJSON(t, app, "POST", "/api/referral",
		CreateReferralRequest{Name: "Martin", PhoneNumber: "0412345678"})
	code := created["referralCode"].(string)

	// Lookup is case-insensitive.
	resp, body := doJSON(t, app, "GET", "/api/referral/martin-4821", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Martin", body["referrerName"])
	require.Equal(t, "0412345678", body["phoneNumber"])
	require.Equal(t, code, body["referralCode"])
	require.Equal(t, false, body["isRedeemed"])

	resp, body = doJSON(t, app, "GET", "/api/referral/INVALID-CODE", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Referral code not found.", body["message"])

	notifier.Wait()
}

func TestRedeemEndpoint(t *testing.T) {
	app, notifier := setupApp(t)

	doJSON(t, app, "POST", "/api/referral",
		CreateReferralRequest{Name: "Martin", PhoneNumber: "0412345678"})

	resp, body := doJSON(t, app, "POST", "/api/admin/redeem",
		MarkRedeemedRequest{ReferralCode: "martin-4821"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Referral code marked as redeemed successfully.", body["message"])

	// Lookup reflects the transition.
	resp, body = doJSON(t, app, "GET", "/api/referral/MARTIN-4821", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["isRedeemed"])
	require.NotNil(t, body["redeemedAt"])

	// Redeeming twice is rejected.
	resp, body = doJSON(t, app, "POST", "/api/admin/redeem",
		MarkRedeemedRequest{ReferralCode: "MARTIN-4821"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Referral code not found or already redeemed.", body["message"])

	notifier.Wait()
}

func TestRedeemEndpointValidation(t *testing.T) {
	app, _ := setupApp(t)

	resp, body := doJSON(t, app, "POST", "/api/admin/redeem", MarkRedeemedRequest{ReferralCode: "  "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Referral code is required.", body["message"])

	resp, body = doJSON(t, app, "POST", "/api/admin/redeem", MarkRedeemedRequest{ReferralCode: "NOPE-0000"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Referral code not found or already redeemed.", body["message"])
}

func TestAdminGuardIsApplied(t *testing.T) {
	st := store.NewMemoryStore()
	svc := services.NewReferralService(st, nil)

	app := fiber.New()
	SetupAdminRoutes(app, svc, func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "Unauthorized.",
		})
	})

	resp, body := doJSON(t, app, "POST", "/api/admin/redeem", MarkRedeemedRequest{ReferralCode: "X-1"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Unauthorized.", body["message"])
}
