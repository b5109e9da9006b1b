package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"referral-program/models"
)

// MemoryStore keeps referrals in process memory behind a mutex. It backs
// mock mode and tests, and honors the same uniqueness and redemption
// semantics as GormStore.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint
	byCode map[string]*models.Referral // keyed by referral code (already uppercase)
	phones map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		byCode: make(map[string]*models.Referral),
		phones: make(map[string]bool),
	}
}

func (s *MemoryStore) Insert(_ context.Context, r *models.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phones[r.PhoneNumber] {
		return ErrDuplicatePhone
	}
	if _, ok := s.byCode[r.ReferralCode]; ok {
		return ErrDuplicateCode
	}

	r.ID = s.nextID
	s.nextID++

	stored := *r
	s.byCode[stored.ReferralCode] = &stored
	s.phones[stored.PhoneNumber] = true
	return nil
}

func (s *MemoryStore) FindByCode(_ context.Context, code string) (*models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) PhoneExists(_ context.Context, phone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phones[phone], nil
}

func (s *MemoryStore) MarkRedeemed(_ context.Context, code string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byCode[code]
	if !ok || r.IsRedeemed {
		return false, nil
	}
	r.IsRedeemed = true
	r.RedeemedAt = &at
	return true, nil
}

func (s *MemoryStore) UpdateSmsStatus(_ context.Context, id uint, status string, attempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.byCode {
		if r.ID == id {
			r.SmsStatus = status
			r.SmsAttempts = attempts
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) ListBySmsStatus(_ context.Context, status string, limit int) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var refs []models.Referral
	for _, r := range s.byCode {
		if r.SmsStatus == status {
			refs = append(refs, *r)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]models.Referral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	refs := make([]models.Referral, 0, len(s.byCode))
	for _, r := range s.byCode {
		refs = append(refs, *r)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}
