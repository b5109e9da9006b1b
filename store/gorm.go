package store

import (
	"context"
	"errors"
	"time"

	"referral-program/models"

	"gorm.io/gorm"
)

// GormStore persists referrals through GORM. Uniqueness of phone number and
// referral code is enforced by the database's unique indexes, so a
// concurrent duplicate insert fails here instead of being silently accepted.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Insert(ctx context.Context, r *models.Referral) error {
	if err := s.DB.WithContext(ctx).Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Two unique indexes could have fired; the phone check tells
			// them apart without parsing driver-specific error text.
			exists, checkErr := s.PhoneExists(ctx, r.PhoneNumber)
			if checkErr == nil && exists {
				return ErrDuplicatePhone
			}
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

func (s *GormStore) FindByCode(ctx context.Context, code string) (*models.Referral, error) {
	var r models.Referral
	if err := s.DB.WithContext(ctx).Where("referral_code = ?", code).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *GormStore) PhoneExists(ctx context.Context, phone string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Referral{}).
		Where("phone_number = ?", phone).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormStore) MarkRedeemed(ctx context.Context, code string, at time.Time) (bool, error) {
	// Single conditional UPDATE: the is_redeemed guard means two concurrent
	// redemptions of the same code cannot both see RowsAffected == 1.
	res := s.DB.WithContext(ctx).Model(&models.Referral{}).
		Where("referral_code = ? AND is_redeemed = ?", code, false).
		Updates(map[string]interface{}{
			"is_redeemed": true,
			"redeemed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) UpdateSmsStatus(ctx context.Context, id uint, status string, attempts int) error {
	return s.DB.WithContext(ctx).Model(&models.Referral{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"sms_status":   status,
			"sms_attempts": attempts,
		}).Error
}

func (s *GormStore) ListBySmsStatus(ctx context.Context, status string, limit int) ([]models.Referral, error) {
	var refs []models.Referral
	err := s.DB.WithContext(ctx).
		Where("sms_status = ?", status).
		Order("id asc").
		Limit(limit).
		Find(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *GormStore) ListAll(ctx context.Context) ([]models.Referral, error) {
	var refs []models.Referral
	if err := s.DB.WithContext(ctx).Order("id asc").Find(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}
