package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferralConversion records a single-attempt referral reward evaluation.
// The (referrer, referee, order) triple is unique and the row is terminal
// once converted or failed.
type ReferralConversion struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReferrerID      uuid.UUID  `gorm:"column:referrer_id;type:uuid;not null;uniqueIndex:uq_referral_conversions_triple"`
	RefereeID       uuid.UUID  `gorm:"column:referee_id;type:uuid;not null;uniqueIndex:uq_referral_conversions_triple"`
	OrderID         uuid.UUID  `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uq_referral_conversions_triple"`
	OrderValuePaise int64      `gorm:"column:order_value_paise;not null"`
	RewardPaise     int64      `gorm:"column:reward_paise;not null"`
	Converted       bool       `gorm:"column:converted;not null;default:false"`
	ConvertedAt     *time.Time `gorm:"column:converted_at"`
	FailureReason   *string    `gorm:"column:failure_reason"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
