package services

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"referral-program/models"

	"github.com/stretchr/testify/require"
)

func TestBuildCsvSnapshot(t *testing.T) {
	redeemedAt := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	refs := []models.Referral{
		{
			ID:           1,
			ReferrerName: "Martin",
			PhoneNumber:  "0412345678",
			ReferralCode: "MARTIN-4821",
			CreatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:           2,
			ReferrerName: "Béatrice",
			PhoneNumber:  "0499999999",
			ReferralCode: "BEATRI-1000",
			IsRedeemed:   true,
			CreatedAt:    time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC),
			RedeemedAt:   &redeemedAt,
		},
	}

	data, err := buildCsv(refs)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t,
		[]string{"id", "referrer_name", "phone_number", "referral_code", "is_redeemed", "created_at", "redeemed_at"},
		rows[0])
	require.Equal(t,
		[]string{"1", "Martin", "0412345678", "MARTIN-4821", "false", "2025-06-01T12:00:00Z", ""},
		rows[1])
	require.Equal(t,
		[]string{"2", "Béatrice", "0499999999", "BEATRI-1000", "true", "2025-06-01T13:00:00Z", "2025-06-02T09:30:00Z"},
		rows[2])
}

func TestBuildCsvEmpty(t *testing.T) {
	data, err := buildCsv(nil)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}
