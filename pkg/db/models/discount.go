package models

import (
	"time"

	"github.com/google/uuid"
)

// Discount is an administratively managed percentage code with a cap.
type Discount struct {
	ID               uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code             string     `gorm:"column:code;not null;uniqueIndex"`
	Percentage       int        `gorm:"column:percentage;not null"`
	MaxDiscountCents int64      `gorm:"column:max_discount_cents;not null;default:0"`
	StartAt          *time.Time `gorm:"column:start_at"`
	EndAt            *time.Time `gorm:"column:end_at"`
	Active           bool       `gorm:"column:active;not null"`
	Description      *string    `gorm:"column:description"`
	CreatedAt        time.Time  `gorm:"column:created_at;autoCreateTime"`
}

// UsableAt reports whether the code is active and not past its end date.
func (d Discount) UsableAt(now time.Time) bool {
	if !d.Active {
		return false
	}
	return d.EndAt == nil || !d.EndAt.Before(now)
}

// UserDiscount is a user's single-use grant on a discount code.
type UserDiscount struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID  `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_user_discounts_user_discount"`
	DiscountID uuid.UUID  `gorm:"column:discount_id;type:uuid;not null;uniqueIndex:ux_user_discounts_user_discount"`
	Used       bool       `gorm:"column:used;not null;default:false"`
	UsedAt     *time.Time `gorm:"column:used_at"`
	Discount   *Discount  `gorm:"foreignKey:DiscountID"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
