package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// User represents a storefront account as seen by the order workflow.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	FullName  string         `gorm:"column:full_name;not null"`
	Role      enums.UserRole `gorm:"column:role;type:user_role;not null;default:'customer'"`
	Addresses []Address      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// IsAdmin reports whether the account carries administrative authority.
func (u User) IsAdmin() bool {
	return u.Role == enums.UserRoleAdmin
}
