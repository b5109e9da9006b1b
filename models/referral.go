package models

import "time"

// SMS delivery states tracked on each referral.
const (
	SmsStatusPending = "pending"
	SmsStatusSent    = "sent"
	SmsStatusFailed  = "failed"
)

// Referral is one issued referral code. One referral per phone number, ever;
// redemption is a one-way transition.
type Referral struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferrerName string     `gorm:"not null;size:100" json:"referrerName"`
	PhoneNumber  string     `gorm:"uniqueIndex;not null;size:20" json:"phoneNumber"` // digits only
	ReferralCode string     `gorm:"uniqueIndex;not null;size:20" json:"referralCode"`
	IsRedeemed   bool       `gorm:"default:false" json:"isRedeemed"`
	CreatedAt    time.Time  `json:"createdAt"`
	RedeemedAt   *time.Time `json:"redeemedAt,omitempty"`

	// Delivery bookkeeping for the async SMS path.
	SmsStatus   string `gorm:"size:16;default:'pending'" json:"smsStatus"`
	SmsAttempts int    `gorm:"default:0" json:"smsAttempts"`
}
