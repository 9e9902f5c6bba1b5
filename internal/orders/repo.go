package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order together with its lines and payment.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Lines {
		if order.Lines[i].ID == uuid.Nil {
			order.Lines[i].ID = uuid.New()
		}
		order.Lines[i].OrderID = order.ID
	}
	if order.Payment != nil {
		if order.Payment.ID == uuid.Nil {
			order.Payment.ID = uuid.New()
		}
		order.Payment.OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return r.findOrder(r.db.WithContext(ctx), orderID)
}

// FindOrderForUpdate row-locks the order so concurrent cancellations and
// callbacks on the same order serialize.
func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return r.findOrder(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: clause.CurrentTable}}), orderID)
}

func (r *repository) findOrder(query *gorm.DB, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payment").
		Where("orders.id = ?", orderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDAndEmail is the guest lookup: the order must belong to the account
// registered under email.
func (r *repository) FindByIDAndEmail(ctx context.Context, orderID uuid.UUID, email string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payment").
		Joins("JOIN users ON users.id = orders.user_id").
		Where("orders.id = ? AND LOWER(users.email) = ?", orderID, strings.ToLower(strings.TrimSpace(email))).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListForUser returns newest-first orders after cursor. Callers pass the page
// size plus one to detect a following page.
func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Payment").
		Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(placed_at < ?) OR (placed_at = ? AND id < ?)", cursor.CreatedAt.UTC(), cursor.CreatedAt.UTC(), cursor.ID)
	}

	var rows []models.Order
	err := query.
		Order("placed_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListExpirable returns the keys of unpaid orders on the given methods placed
// before cutoff, oldest first, strictly after the after key when set.
func (r *repository) ListExpirable(ctx context.Context, cutoff time.Time, methods []enums.PaymentMethod, after *pagination.Cursor, limit int) ([]pagination.Cursor, error) {
	if len(methods) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("id", "placed_at").
		Where("status = ?", enums.OrderStatusPendingPayment).
		Where("payment_method IN ?", methods).
		Where("placed_at < ?", cutoff.UTC())
	if after != nil {
		query = query.Where("(placed_at > ?) OR (placed_at = ? AND id > ?)", after.CreatedAt.UTC(), after.CreatedAt.UTC(), after.ID)
	}

	var rows []struct {
		ID       uuid.UUID
		PlacedAt time.Time
	}
	err := query.
		Order("placed_at ASC").
		Order("id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list expirable orders: %w", err)
	}
	keys := make([]pagination.Cursor, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, pagination.Cursor{CreatedAt: row.PlacedAt, ID: row.ID})
	}
	return keys, nil
}

func (r *repository) UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *repository) UpdatePayment(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}

// FindRecipient loads the notification addressee for an order owner.
func (r *repository) FindRecipient(ctx context.Context, userID uuid.UUID) (payloads.OrderRecipient, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Select("id", "email", "full_name").
		Where("id = ?", userID).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return payloads.OrderRecipient{}, ErrUserNotFound
	}
	if err != nil {
		return payloads.OrderRecipient{}, err
	}
	return payloads.OrderRecipient{UserID: user.ID, Email: user.Email, FullName: user.FullName}, nil
}
