package models

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryPartner mirrors the partner roster owned by the identity provider,
// carrying only the fields assignment decisions need.
type DeliveryPartner struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string    `gorm:"column:name;not null"`
	Phone          string    `gorm:"column:phone;not null"`
	Active         bool      `gorm:"column:active;not null;default:true"`
	MaxActiveTasks int       `gorm:"column:max_active_tasks;not null;default:5"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
