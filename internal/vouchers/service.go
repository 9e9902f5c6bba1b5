package vouchers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/validate"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerLister interface {
	ListCustomerIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Service is the voucher administration surface.
type Service interface {
	CreateDiscount(ctx context.Context, input CreateDiscountInput) (*models.Discount, error)
	Grant(ctx context.Context, userID, discountID uuid.UUID) (bool, error)
	DistributeToAll(ctx context.Context, discountID uuid.UUID) (int64, error)
	GrantWelcome(ctx context.Context, userID uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]VoucherView, error)
}

type ServiceParams struct {
	Repository  *Repository
	DB          txRunner
	Customers   customerLister
	Logger      *logger.Logger
	WelcomeCode string
	Now         func() time.Time
}

type service struct {
	repo        *Repository
	tx          txRunner
	customers   customerLister
	logg        *logger.Logger
	welcomeCode string
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("voucher repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer lister required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(params.WelcomeCode) == "" {
		return nil, fmt.Errorf("welcome discount code required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:        params.Repository,
		tx:          params.DB,
		customers:   params.Customers,
		logg:        params.Logger,
		welcomeCode: params.WelcomeCode,
		now:         now,
	}, nil
}

type CreateDiscountInput struct {
	Code             string     `json:"code" validate:"required,max=64"`
	Percentage       int        `json:"percentage" validate:"min=1,max=100"`
	MaxDiscountCents int64      `json:"max_discount_cents" validate:"gte=0"`
	StartAt          *time.Time `json:"start_at"`
	EndAt            *time.Time `json:"end_at"`
	Active           bool       `json:"active"`
	Description      *string    `json:"description"`
}

// VoucherView is a user's grant as listed in their wallet.
type VoucherView struct {
	DiscountID       uuid.UUID  `json:"discount_id"`
	Code             string     `json:"code"`
	Percentage       int        `json:"percentage"`
	MaxDiscountCents int64      `json:"max_discount_cents"`
	EndAt            *time.Time `json:"end_at,omitempty"`
	Used             bool       `json:"used"`
	UsedAt           *time.Time `json:"used_at,omitempty"`
	Usable           bool       `json:"usable"`
}

func (s *service) CreateDiscount(ctx context.Context, input CreateDiscountInput) (*models.Discount, error) {
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.StartAt != nil && input.EndAt != nil && !input.EndAt.After(*input.StartAt) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_at must be after start_at")
	}
	discount := &models.Discount{
		Code:             input.Code,
		Percentage:       input.Percentage,
		MaxDiscountCents: input.MaxDiscountCents,
		StartAt:          utcPtr(input.StartAt),
		EndAt:            utcPtr(input.EndAt),
		Active:           input.Active,
		Description:      input.Description,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.repo.CreateDiscount(ctx, nil, discount); err != nil {
		return nil, mapError(err)
	}
	return discount, nil
}

// Grant gives userID one unused grant on discountID; false means one already existed.
func (s *service) Grant(ctx context.Context, userID, discountID uuid.UUID) (bool, error) {
	var created int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.FindDiscountByID(ctx, tx, discountID); err != nil {
			return err
		}
		n, err := s.repo.InsertGrants(ctx, tx, discountID, []uuid.UUID{userID})
		created = n
		return err
	})
	if err != nil {
		return false, mapError(err)
	}
	return created > 0, nil
}

// DistributeToAll grants an active discount to every customer that does not
// hold it yet and returns the number of new grants.
func (s *service) DistributeToAll(ctx context.Context, discountID uuid.UUID) (int64, error) {
	ids, err := s.customers.ListCustomerIDs(ctx)
	if err != nil {
		return 0, mapError(err)
	}
	var created int64
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		discount, err := s.repo.FindDiscountByID(ctx, tx, discountID)
		if err != nil {
			return err
		}
		if !discount.UsableAt(s.now()) {
			return ErrVoucherExpired
		}
		created, err = s.repo.InsertGrants(ctx, tx, discountID, ids)
		return err
	})
	if err != nil {
		return 0, mapError(err)
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"discount_id": discountID.String(), "grants_created": created})
	s.logg.Info(logCtx, "discount distributed")
	return created, nil
}

// GrantWelcome gives a new account the configured welcome discount.
func (s *service) GrantWelcome(ctx context.Context, userID uuid.UUID) (bool, error) {
	discount, err := s.repo.FindDiscountByCode(ctx, nil, s.welcomeCode)
	if err != nil {
		return false, mapError(err)
	}
	return s.Grant(ctx, userID, discount.ID)
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]VoucherView, error) {
	grants, err := s.repo.ListGrantsForUser(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}
	now := s.now()
	views := make([]VoucherView, 0, len(grants))
	for _, grant := range grants {
		if grant.Discount == nil {
			continue
		}
		views = append(views, VoucherView{
			DiscountID:       grant.DiscountID,
			Code:             grant.Discount.Code,
			Percentage:       grant.Discount.Percentage,
			MaxDiscountCents: grant.Discount.MaxDiscountCents,
			EndAt:            grant.Discount.EndAt,
			Used:             grant.Used,
			UsedAt:           grant.UsedAt,
			Usable:           !grant.Used && grant.Discount.UsableAt(now),
		})
	}
	return views, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func mapError(err error) error {
	if err == nil || pkgerrors.As(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, ErrDiscountNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "discount not found")
	case errors.Is(err, ErrInvalidVoucher):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "voucher is not available to this user")
	case errors.Is(err, ErrVoucherAlreadyUsed):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "voucher has already been used")
	case errors.Is(err, ErrVoucherExpired):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "voucher has expired")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "voucher storage failed")
}
