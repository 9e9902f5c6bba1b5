package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingProvider is a carrier a customer can pick at checkout.
type ShippingProvider struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	Active    bool      `gorm:"column:active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
