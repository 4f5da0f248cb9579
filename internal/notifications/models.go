package notifications

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type DeliveryStatus string

const (
	StatusPending DeliveryStatus = "pending"
	StatusSent    DeliveryStatus = "sent"
	StatusFailed  DeliveryStatus = "failed"
)

// Notification is one delivered (or attempted) notification row.
type Notification struct {
	ID         uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	UserID     uuid.UUID      `json:"user_id" gorm:"not null;index"`
	Title      string         `json:"title" gorm:"not null"`
	Body       string         `json:"body" gorm:"not null"`
	TemplateID string         `json:"template_id" gorm:"index"`
	Status     DeliveryStatus `json:"status" gorm:"not null;default:pending"`
	Metadata   datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`
	SentAt     *time.Time     `json:"sent_at,omitempty"`
}

// UserContact maps a platform user to their delivery address.
type UserContact struct {
	UserID    uuid.UUID `json:"user_id" gorm:"primaryKey;type:uuid"`
	Email     string    `json:"email" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
