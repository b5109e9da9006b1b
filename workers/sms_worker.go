package workers

import (
	"context"
	"log"
	"time"

	"referral-program/models"
	"referral-program/services"
	"referral-program/store"
)

const defaultMaxAttempts = 3

// SmsRetryWorker sweeps referrals whose SMS never went out (pending rows
// left behind by a crash, failed deliveries) and re-sends them, up to a
// bounded attempt count. Records that stay failed after the cap are left in
// the table for manual follow-up.
type SmsRetryWorker struct {
	Store       store.ReferralStore
	Sender      services.SmsSender
	MaxAttempts int
	BatchSize   int

	gaveUp map[uint]bool // referrals already reported as terminal
}

func NewSmsRetryWorker(st store.ReferralStore, sender services.SmsSender) *SmsRetryWorker {
	return &SmsRetryWorker{
		Store:       st,
		Sender:      sender,
		MaxAttempts: defaultMaxAttempts,
		BatchSize:   50,
		gaveUp:      make(map[uint]bool),
	}
}

// Run polls on the given interval until the context is cancelled.
func (w *SmsRetryWorker) Run(ctx context.Context, interval time.Duration) {
	log.Println("Starting SMS retry worker...")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("SMS retry worker stopped.")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over pending and failed deliveries.
func (w *SmsRetryWorker) Sweep(ctx context.Context) {
	for _, status := range []string{models.SmsStatusPending, models.SmsStatusFailed} {
		refs, err := w.Store.ListBySmsStatus(ctx, status, w.BatchSize)
		if err != nil {
			log.Printf("[SmsWorker] DB error listing %s deliveries: %v", status, err)
			continue
		}
		for _, r := range refs {
			w.retry(ctx, r)
		}
	}
}

func (w *SmsRetryWorker) retry(ctx context.Context, r models.Referral) {
	if r.SmsAttempts >= w.MaxAttempts {
		if !w.gaveUp[r.ID] {
			w.gaveUp[r.ID] = true
			log.Printf("[SmsWorker] Giving up on referral %s after %d attempt(s), needs manual follow-up", r.ReferralCode, r.SmsAttempts)
		}
		return
	}

	status := models.SmsStatusSent
	if !w.Sender.Send(ctx, r.PhoneNumber, r.ReferrerName, r.ReferralCode) {
		status = models.SmsStatusFailed
	}

	if err := w.Store.UpdateSmsStatus(ctx, r.ID, status, r.SmsAttempts+1); err != nil {
		log.Printf("[SmsWorker] Failed to record SMS status for referral %s: %v", r.ReferralCode, err)
		return
	}

	if status == models.SmsStatusSent {
		log.Printf("[SmsWorker] Delivered referral code %s on attempt %d", r.ReferralCode, r.SmsAttempts+1)
	} else {
		log.Printf("[SmsWorker] Delivery attempt %d failed for referral %s", r.SmsAttempts+1, r.ReferralCode)
	}
}
