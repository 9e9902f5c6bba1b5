package orders

import (
	"context"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders, lines and payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByIDAndEmail(ctx context.Context, orderID uuid.UUID, email string) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	ListExpirable(ctx context.Context, cutoff time.Time, methods []enums.PaymentMethod, after *pagination.Cursor, limit int) ([]pagination.Cursor, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	UpdatePayment(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	FindRecipient(ctx context.Context, userID uuid.UUID) (payloads.OrderRecipient, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
}

type shippingDirectory interface {
	FindActive(ctx context.Context, id uuid.UUID) (*models.ShippingProvider, error)
}

// ProductStore is the general-sale stock counter.
type ProductStore interface {
	Get(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error)
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

// QuotaStore resolves and mutates flash-sale quota records.
type QuotaStore interface {
	FindActiveItem(ctx context.Context, tx *gorm.DB, productID uuid.UUID, at time.Time) (*models.FlashSaleItem, error)
	ReserveQuota(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) error
	ReleaseQuota(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, qty int) error
}

// VoucherStore checks, consumes and restores single-use grants.
type VoucherStore interface {
	Check(ctx context.Context, tx *gorm.DB, userID, discountID uuid.UUID, now time.Time) (*models.UserDiscount, error)
	Consume(ctx context.Context, tx *gorm.DB, grantID uuid.UUID, now time.Time) error
	Restore(ctx context.Context, tx *gorm.DB, userID, discountID uuid.UUID) (bool, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}
