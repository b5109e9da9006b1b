package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"referral-program/models"
	"referral-program/store"
	"referral-program/utils"

	"github.com/go-co-op/gocron/v2"
	"github.com/gosimple/slug"
)

// ReferralExporter snapshots the referral table to CSV and pushes it to R2.
// Operational backup for the shop owner, runs nightly.
type ReferralExporter struct {
	Store        store.ReferralStore
	BusinessName string
}

func NewReferralExporter(st store.ReferralStore, businessName string) *ReferralExporter {
	return &ReferralExporter{Store: st, BusinessName: businessName}
}

// StartSchedule registers the nightly export job (02:00 server time).
func (e *ReferralExporter) StartSchedule() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(2, 0, 0))),
		gocron.NewTask(func() {
			if err := e.Export(context.Background()); err != nil {
				log.Printf("[Exporter] %v", err)
			}
		}),
	)
}

// Export writes the full referral table as CSV and uploads it under
// <business-slug>/referrals-YYYY-MM-DD.csv.
func (e *ReferralExporter) Export(ctx context.Context) error {
	refs, err := e.Store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("export snapshot failed: %w", err)
	}

	data, err := buildCsv(refs)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("%s/referrals-%s.csv",
		slug.Make(e.BusinessName),
		time.Now().UTC().Format("2006-01-02"))

	if err := utils.UploadToR2(ctx, key, data, "text/csv"); err != nil {
		return fmt.Errorf("export upload failed: %w", err)
	}

	log.Printf("[Exporter] Uploaded %d referral(s) to %s", len(refs), key)
	return nil
}

func buildCsv(refs []models.Referral) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write([]string{"id", "referrer_name", "phone_number", "referral_code", "is_redeemed", "created_at", "redeemed_at"})
	for _, r := range refs {
		redeemedAt := ""
		if r.RedeemedAt != nil {
			redeemedAt = r.RedeemedAt.UTC().Format(time.RFC3339)
		}
		_ = w.Write([]string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.ReferrerName,
			r.PhoneNumber,
			r.ReferralCode,
			strconv.FormatBool(r.IsRedeemed),
			r.CreatedAt.UTC().Format(time.RFC3339),
			redeemedAt,
		})
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export encode failed: %w", err)
	}
	return buf.Bytes(), nil
}
