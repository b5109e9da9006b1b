package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"
	"unicode"

	"referral-program/models"
	"referral-program/store"

	"github.com/gosimple/unidecode"
)

// Wire-level messages, kept stable because the frontend displays them verbatim.
const (
	msgDuplicatePhone = "This phone number has already been used for a referral."
	msgCreateFailed   = "Failed to create referral. Please try again."
	msgCreated        = "Referral created successfully."
	msgFieldsRequired = "Name and phone number are required."
)

// IntnSource yields random ints in [0, n). *rand.Rand satisfies it; tests
// inject a deterministic sequence.
type IntnSource interface {
	Intn(n int) int
}

// Notifier delivers the referral code to the referrer out of band.
type Notifier interface {
	NotifyCreated(r models.Referral)
}

// ReferralService owns the referral lifecycle: create, lookup, redeem.
// It works against any ReferralStore implementation.
type ReferralService struct {
	store    store.ReferralStore
	notifier Notifier
	rng      IntnSource
	now      func() time.Time
}

func NewReferralService(st store.ReferralStore, notifier Notifier) *ReferralService {
	return &ReferralService{
		store:    st,
		notifier: notifier,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithRand replaces the random source. Tests use this to pin the code suffix.
func (s *ReferralService) WithRand(rng IntnSource) *ReferralService {
	s.rng = rng
	return s
}

// WithClock replaces the time source.
func (s *ReferralService) WithClock(now func() time.Time) *ReferralService {
	s.now = now
	return s
}

// CreateReferral validates, generates a code, persists the referral and
// hands it to the notifier. Notification is fire-and-forget: delivery
// failure never fails the creation (delivery state is tracked on the record
// and retried by the SMS worker).
func (s *ReferralService) CreateReferral(ctx context.Context, name, phoneNumber string) (ok bool, code string, message string) {
	name = strings.TrimSpace(name)
	phone := NormalizePhoneNumber(phoneNumber)
	if name == "" || phone == "" {
		return false, "", msgFieldsRequired
	}

	exists, err := s.store.PhoneExists(ctx, phone)
	if err != nil {
		log.Printf("phone existence check failed for %s: %v", phone, err)
		return false, "", msgCreateFailed
	}
	if exists {
		return false, "", msgDuplicatePhone
	}

	referral := models.Referral{
		ReferrerName: name,
		PhoneNumber:  phone,
		ReferralCode: s.generateCode(name),
		IsRedeemed:   false,
		CreatedAt:    s.now(),
		SmsStatus:    models.SmsStatusPending,
	}

	if err := s.store.Insert(ctx, &referral); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicatePhone):
			// Lost the race to a concurrent request for the same phone.
			return false, "", msgDuplicatePhone
		case errors.Is(err, store.ErrDuplicateCode):
			// Code collision; no retry loop, the caller simply tries again.
			log.Printf("referral code collision on %s", referral.ReferralCode)
			return false, "", msgCreateFailed
		default:
			log.Printf("failed to create referral for %s: %v", name, err)
			return false, "", msgCreateFailed
		}
	}

	log.Printf("Created referral %s for %s", referral.ReferralCode, name)

	if s.notifier != nil {
		s.notifier.NotifyCreated(referral)
	}

	return true, referral.ReferralCode, msgCreated
}

// GetReferralByCode looks a referral up by code, case-insensitively.
// Returns store.ErrNotFound on a miss.
func (s *ReferralService) GetReferralByCode(ctx context.Context, code string) (*models.Referral, error) {
	return s.store.FindByCode(ctx, NormalizeCode(code))
}

// MarkAsRedeemed transitions a referral to redeemed. Returns false when the
// code is unknown or the referral was already redeemed; repeated redemption
// attempts are rejected, not silently accepted.
func (s *ReferralService) MarkAsRedeemed(ctx context.Context, code string) (bool, error) {
	normalized := NormalizeCode(code)
	ok, err := s.store.MarkRedeemed(ctx, normalized, s.now())
	if err != nil {
		log.Printf("failed to mark referral %s as redeemed: %v", normalized, err)
		return false, err
	}
	if ok {
		log.Printf("Marked referral %s as redeemed", normalized)
	}
	return ok, nil
}

// PhoneNumberExists reports whether a referral exists for the phone number
// after normalization.
func (s *ReferralService) PhoneNumberExists(ctx context.Context, phoneNumber string) (bool, error) {
	return s.store.PhoneExists(ctx, NormalizePhoneNumber(phoneNumber))
}

// generateCode builds a code of the shape NAME-1234: the letters of the
// transliterated name, uppercased, at most six, then a random four-digit
// suffix. Global uniqueness is the store's job, not the generator's.
func (s *ReferralService) generateCode(name string) string {
	var letters []rune
	for _, r := range unidecode.Unidecode(name) {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
			if len(letters) == 6 {
				break
			}
		}
	}
	prefix := string(letters)
	if prefix == "" {
		prefix = "USER"
	}
	return fmt.Sprintf("%s-%d", prefix, s.rng.Intn(9000)+1000)
}

// NormalizePhoneNumber strips everything but digits.
func NormalizePhoneNumber(phoneNumber string) string {
	var digits []rune
	for _, r := range phoneNumber {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	return string(digits)
}

// NormalizeCode makes code lookup case-insensitive.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
