package users

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email    string
	FullName string
	Role     enums.UserRole
}

// CreateAddressDTO is a new shipping address for an existing user.
type CreateAddressDTO struct {
	Recipient  string
	Phone      string
	Line1      string
	Line2      *string
	City       string
	Region     *string
	PostalCode *string
	Country    string
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}
	return &models.User{
		ID:       uuid.New(),
		Email:    strings.ToLower(strings.TrimSpace(c.Email)),
		FullName: strings.TrimSpace(c.FullName),
		Role:     role,
	}
}

func (c CreateAddressDTO) ToModel(userID uuid.UUID) *models.Address {
	return &models.Address{
		ID:         uuid.New(),
		UserID:     userID,
		Recipient:  c.Recipient,
		Phone:      c.Phone,
		Line1:      c.Line1,
		Line2:      c.Line2,
		City:       c.City,
		Region:     c.Region,
		PostalCode: c.PostalCode,
		Country:    c.Country,
	}
}
