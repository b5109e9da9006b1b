package services

import (
	"context"
	"log"
	"sync"
	"time"

	"referral-program/models"
	"referral-program/store"
)

// AsyncNotifier sends the referral SMS on a background goroutine and records
// the delivery outcome on the referral row. Creation never waits on it.
type AsyncNotifier struct {
	store   store.ReferralStore
	sender  SmsSender
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncNotifier(st store.ReferralStore, sender SmsSender) *AsyncNotifier {
	return &AsyncNotifier{
		store:   st,
		sender:  sender,
		timeout: 30 * time.Second,
	}
}

func (n *AsyncNotifier) NotifyCreated(r models.Referral) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(r)
	}()
}

func (n *AsyncNotifier) deliver(r models.Referral) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	status := models.SmsStatusSent
	if !n.sender.Send(ctx, r.PhoneNumber, r.ReferrerName, r.ReferralCode) {
		status = models.SmsStatusFailed
		log.Printf("SMS delivery failed for referral %s, left for retry", r.ReferralCode)
	}

	if err := n.store.UpdateSmsStatus(ctx, r.ID, status, r.SmsAttempts+1); err != nil {
		log.Printf("failed to record SMS status for referral %s: %v", r.ReferralCode, err)
	}
}

// Wait blocks until all in-flight deliveries finish. Called on shutdown and
// by tests.
func (n *AsyncNotifier) Wait() {
	n.wg.Wait()
}
