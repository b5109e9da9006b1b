package store

import (
	"context"
	"errors"

	"referral-program/models"

	"time"
)

var (
	ErrNotFound       = errors.New("referral not found")
	ErrDuplicatePhone = errors.New("phone number already used")
	ErrDuplicateCode  = errors.New("referral code already exists")
)

// ReferralStore is the persistence contract for referrals. Two
// implementations exist: GormStore (postgres in production, sqlite in tests)
// and MemoryStore (mock mode and unit tests).
type ReferralStore interface {
	// Insert persists a new referral. Returns ErrDuplicatePhone or
	// ErrDuplicateCode when a unique constraint fires.
	Insert(ctx context.Context, r *models.Referral) error

	// FindByCode looks up by referral code. Callers pass the code already
	// trimmed and uppercased. Returns ErrNotFound on a miss.
	FindByCode(ctx context.Context, code string) (*models.Referral, error)

	// PhoneExists reports whether a referral exists for the given
	// (normalized) phone number.
	PhoneExists(ctx context.Context, phone string) (bool, error)

	// MarkRedeemed flips is_redeemed false->true and stamps redeemed_at.
	// Returns false when the code is unknown or already redeemed. The
	// transition is atomic: two concurrent calls for the same code yield
	// exactly one true.
	MarkRedeemed(ctx context.Context, code string, at time.Time) (bool, error)

	// UpdateSmsStatus records the outcome of an SMS delivery attempt.
	UpdateSmsStatus(ctx context.Context, id uint, status string, attempts int) error

	// ListBySmsStatus returns up to limit referrals in the given delivery
	// state, oldest first.
	ListBySmsStatus(ctx context.Context, status string, limit int) ([]models.Referral, error)

	// ListAll returns every referral, oldest first. Used by the exporter.
	ListAll(ctx context.Context) ([]models.Referral, error)
}
