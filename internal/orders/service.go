package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
	"github.com/angelmondragon/storefront-backend/pkg/validate"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultPaymentSuccessCode = "00"
	defaultPaymentDeadline    = 15 * time.Minute
	systemActorRole           = "system"
)

// Service exposes order placement and the flows that reverse it.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, actor Actor) error
	HandlePaymentCallback(ctx context.Context, orderID uuid.UUID, responseCode string) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, input UpdateOrderInput) (*OrderSnapshot, error)
	ListExpirable(ctx context.Context, after *pagination.Cursor, limit int) ([]pagination.Cursor, error)
	ExpireOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderSnapshot, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
	FindByIDAndEmail(ctx context.Context, orderID uuid.UUID, email string) (*OrderSnapshot, error)
}

// ServiceParams wires the order service. Metrics and Limiter are optional.
type ServiceParams struct {
	Repository Repository
	DB         txRunner
	Users      userDirectory
	Shipping   shippingDirectory
	Products   ProductStore
	Quotas     QuotaStore
	Vouchers   VoucherStore
	Outbox     outboxEmitter
	Logger     *logger.Logger
	Metrics    *metrics.OrderMetrics
	Limiter    rateLimiter
	Config     config.OrdersConfig
	Now        func() time.Time
}

type service struct {
	repo        Repository
	tx          txRunner
	users       userDirectory
	shipping    shippingDirectory
	products    ProductStore
	quotas      QuotaStore
	vouchers    VoucherStore
	outbox      outboxEmitter
	logg        *logger.Logger
	metrics     *metrics.OrderMetrics
	limiter     rateLimiter
	cfg         config.OrdersConfig
	compensator *compensator
	now         func() time.Time
}

// NewService constructs the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user directory required")
	}
	if params.Shipping == nil {
		return nil, fmt.Errorf("shipping directory required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product store required")
	}
	if params.Quotas == nil {
		return nil, fmt.Errorf("flash sale quota store required")
	}
	if params.Vouchers == nil {
		return nil, fmt.Errorf("voucher store required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	cfg := params.Config
	if cfg.PaymentSuccessCode == "" {
		cfg.PaymentSuccessCode = defaultPaymentSuccessCode
	}
	if cfg.PaymentDeadline <= 0 {
		cfg.PaymentDeadline = defaultPaymentDeadline
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:     params.Repository,
		tx:       params.DB,
		users:    params.Users,
		shipping: params.Shipping,
		products: params.Products,
		quotas:   params.Quotas,
		vouchers: params.Vouchers,
		outbox:   params.Outbox,
		logg:     params.Logger,
		metrics:  params.Metrics,
		limiter:  params.Limiter,
		cfg:      cfg,
		compensator: &compensator{
			products: params.Products,
			quotas:   params.Quotas,
			vouchers: params.Vouchers,
			logg:     params.Logger,
		},
		now: now,
	}, nil
}

// PlaceOrder reserves quota, stock and voucher for every line and persists the
// order in one transaction. Any failure rolls back every reservation.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	result, err := s.placeOrder(ctx, input)
	if err != nil {
		err = mapError(err)
		s.metrics.IncRejected(string(pkgerrors.CodeOf(err)))
		return nil, err
	}
	s.metrics.IncPlaced(string(result.PaymentMethod))
	return result, nil
}

func (s *service) placeOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	input.Note = strings.TrimSpace(input.Note)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	ctx = s.logg.WithUserID(ctx, input.UserID.String())

	if err := s.allowPlacement(ctx, input.UserID); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, input.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	address, err := s.users.FindAddress(ctx, input.UserID, input.AddressID)
	if err != nil {
		return nil, fmt.Errorf("load address: %w", err)
	}
	if address == nil {
		return nil, ErrInvalidAddress
	}
	provider, err := s.shipping.FindActive(ctx, input.ShippingProviderID)
	if err != nil {
		return nil, fmt.Errorf("load shipping provider: %w", err)
	}
	if provider == nil {
		return nil, ErrInvalidShippingProvider
	}

	now := s.now().UTC()
	order := &models.Order{
		ID:                 uuid.New(),
		UserID:             input.UserID,
		AddressID:          address.ID,
		ShippingProviderID: provider.ID,
		ShipmentNumber:     shipmentNumber(provider.Name, now),
		TotalCents:         input.TotalCents,
		DiscountID:         input.DiscountID,
		PaymentMethod:      input.PaymentMethod,
		Status:             initialStatus(input.PaymentMethod),
		ExpectedDeliveryAt: input.ExpectedDeliveryAt,
		PlacedAt:           now,
		Lines:              make([]models.OrderLine, 0, len(input.Items)),
		Payment: &models.Payment{
			Method:      input.PaymentMethod,
			AmountCents: input.TotalCents,
			Status:      enums.PaymentStatusPendingPayment,
		},
	}
	if input.Note != "" {
		note := input.Note
		order.Note = &note
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		summaries := make([]payloads.OrderLineSummary, 0, len(input.Items))
		var subtotal int64
		for i, item := range input.Items {
			line, product, err := s.reserveLine(ctx, tx, i, item, now)
			if err != nil {
				return err
			}
			order.Lines = append(order.Lines, line)
			summaries = append(summaries, payloads.OrderLineSummary{
				ProductID:      product.ID,
				ProductName:    product.Name,
				Qty:            line.Qty,
				UnitPriceCents: line.UnitPriceCents,
				FlashSale:      line.FlashSaleItemID != nil,
			})
			subtotal += line.LineTotalCents()
		}

		var grant *models.UserDiscount
		if input.DiscountID != nil {
			checked, err := s.vouchers.Check(ctx, tx, input.UserID, *input.DiscountID, now)
			if err != nil {
				return err
			}
			grant = checked
		}
		s.warnOnTotalDrift(ctx, subtotal, grant, input.TotalCents)

		if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}
		discountCode := ""
		if grant != nil {
			if err := s.vouchers.Consume(ctx, tx, grant.ID, now); err != nil {
				return err
			}
			if grant.Discount != nil {
				discountCode = grant.Discount.Code
			}
		}

		event := payloads.OrderPlacedEvent{
			OrderID:        order.ID,
			ShipmentNumber: order.ShipmentNumber,
			Recipient:      payloads.OrderRecipient{UserID: user.ID, Email: user.Email, FullName: user.FullName},
			PaymentMethod:  order.PaymentMethod,
			Status:         order.Status,
			TotalCents:     order.TotalCents,
			DiscountCode:   discountCode,
			Lines:          summaries,
			PlacedAt:       now,
		}
		if order.PaymentMethod.IsOnline() {
			payBy := now.Add(s.cfg.PaymentDeadline)
			event.PayBy = &payBy
		}
		actor := &outbox.ActorRef{UserID: &user.ID, Role: string(user.Role)}
		return s.emit(ctx, tx, enums.EventOrderPlaced, order.ID, actor, event, now)
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"payment_method": string(order.PaymentMethod),
		"total_cents":    order.TotalCents,
		"lines":          len(order.Lines),
	})
	s.logg.Info(logCtx, "order placed")

	return &PlaceOrderResult{
		OrderID:        order.ID,
		ShipmentNumber: order.ShipmentNumber,
		TotalCents:     order.TotalCents,
		PaymentMethod:  order.PaymentMethod,
		Status:         order.Status,
	}, nil
}

// reserveLine takes the flash quota (when a sale is live) and then general
// stock for one requested line.
func (s *service) reserveLine(ctx context.Context, tx *gorm.DB, index int, item PlaceLineInput, now time.Time) (models.OrderLine, *models.Product, error) {
	line := models.OrderLine{
		ID:             uuid.New(),
		ProductID:      item.ProductID,
		VariantID:      item.VariantID,
		Qty:            item.Quantity,
		UnitPriceCents: item.UnitPriceCents,
	}
	product, err := s.products.Get(ctx, tx, item.ProductID)
	if err != nil {
		return line, nil, err
	}
	quota, err := s.quotas.FindActiveItem(ctx, tx, item.ProductID, now)
	if err != nil {
		return line, nil, err
	}
	if quota != nil {
		if err := s.quotas.ReserveQuota(ctx, tx, quota.ID, item.Quantity); err != nil {
			return line, nil, err
		}
		quotaID := quota.ID
		line.FlashSaleItemID = &quotaID
	}
	if err := s.products.Reserve(ctx, tx, item.ProductID, item.Quantity); err != nil {
		return line, nil, err
	}

	expected := expectedUnitPriceCents(*product, quota)
	if !withinTolerance(item.UnitPriceCents, expected, s.cfg.PriceTolerancePct) {
		field := fmt.Sprintf("items[%d].unit_price_cents", index)
		return line, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrPriceMismatch, "prices changed, refresh the cart").
			WithDetails(map[string]string{field: fmt.Sprintf("expected %d", expected)})
	}
	return line, product, nil
}

func (s *service) warnOnTotalDrift(ctx context.Context, subtotal int64, grant *models.UserDiscount, declared int64) {
	var discount *models.Discount
	if grant != nil {
		discount = grant.Discount
	}
	expected := discountedTotalCents(subtotal, discount)
	if withinTolerance(declared, expected, s.cfg.PriceTolerancePct) {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"declared_total_cents": declared,
		"computed_total_cents": expected,
	})
	s.logg.Warn(logCtx, "declared order total differs from computed total")
}

func (s *service) allowPlacement(ctx context.Context, userID uuid.UUID) error {
	if s.limiter == nil || s.cfg.PlacementLimit <= 0 {
		return nil
	}
	allowed, count, err := s.limiter.FixedWindowAllow(ctx, redis.PlacementScope(userID.String()), s.cfg.PlacementLimit, s.cfg.PlacementLimitWindow)
	if err != nil {
		s.logg.Error(ctx, "placement rate limiter unavailable", err)
		return nil
	}
	if !allowed {
		logCtx := s.logg.WithField(ctx, "attempts", count)
		s.logg.Warn(logCtx, "order placement rate limited")
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many orders placed, try again shortly")
	}
	return nil
}

// CancelOrder cancels an order on behalf of its owner or an admin and returns
// its stock, quota and voucher. A repeat cancel is rejected as a state
// conflict and releases nothing.
func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, actor Actor) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	cancelled := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanCancel(actor, *order) {
			return ErrForbidden
		}
		if !Cancellable(order.Status) {
			return ErrInvalidStatusTransition
		}
		now := s.now().UTC()
		done, err := s.cancelInTx(ctx, tx, repo, order, now)
		if err != nil || !done {
			return err
		}
		cancelled = true

		recipient, err := repo.FindRecipient(ctx, order.UserID)
		if err != nil {
			return err
		}
		by := string(enums.UserRoleCustomer)
		if actor.IsAdmin() {
			by = string(enums.UserRoleAdmin)
		}
		event := payloads.OrderCancelledEvent{
			OrderID:        order.ID,
			ShipmentNumber: order.ShipmentNumber,
			Recipient:      recipient,
			Reason:         "cancelled by " + by,
			CancelledBy:    by,
			CancelledAt:    now,
		}
		return s.emit(ctx, tx, enums.EventOrderCancelled, order.ID, actorRef(actor), event, now)
	})
	if err != nil {
		return mapError(err)
	}
	if cancelled {
		s.metrics.IncCompensated("cancelled")
		s.logg.Info(ctx, "order cancelled")
	}
	return nil
}

// HandlePaymentCallback applies a gateway result. Only malformed input is
// returned as an error; processing failures are logged so the gateway is
// always acknowledged. Callbacks for orders no longer awaiting payment are ignored.
func (s *service) HandlePaymentCallback(ctx context.Context, orderID uuid.UUID, responseCode string) error {
	responseCode = strings.TrimSpace(responseCode)
	if orderID == uuid.Nil || responseCode == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and response code are required")
	}
	ctx = s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{"response_code": responseCode})
	success := responseCode == s.cfg.PaymentSuccessCode

	applied := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPendingPayment {
			return nil
		}
		if order.Payment != nil && order.Payment.Status != enums.PaymentStatusPendingPayment {
			return nil
		}
		recipient, err := repo.FindRecipient(ctx, order.UserID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		system := &outbox.ActorRef{Role: systemActorRole}

		if success {
			if err := repo.UpdatePayment(ctx, order.ID, map[string]any{
				"status":  enums.PaymentStatusCompleted,
				"paid_at": now,
			}); err != nil {
				return err
			}
			if err := repo.UpdateOrder(ctx, order.ID, map[string]any{"status": enums.OrderStatusInProgress}); err != nil {
				return err
			}
			applied = true
			event := payloads.OrderPaidEvent{
				OrderID:        order.ID,
				ShipmentNumber: order.ShipmentNumber,
				Recipient:      recipient,
				AmountCents:    order.TotalCents,
				PaidAt:         now,
			}
			return s.emit(ctx, tx, enums.EventOrderPaid, order.ID, system, event, now)
		}

		done, err := s.cancelInTx(ctx, tx, repo, order, now)
		if err != nil || !done {
			return err
		}
		applied = true
		event := payloads.OrderPaymentFailedEvent{
			OrderID:        order.ID,
			ShipmentNumber: order.ShipmentNumber,
			Recipient:      recipient,
			ResponseCode:   responseCode,
			FailedAt:       now,
		}
		return s.emit(ctx, tx, enums.EventOrderPaymentFailed, order.ID, system, event, now)
	})
	if err != nil {
		s.logg.Error(ctx, "payment callback not applied", err)
		return nil
	}
	switch {
	case !applied:
		s.logg.Info(ctx, "payment callback ignored")
	case success:
		s.logg.Info(ctx, "order paid")
	default:
		s.metrics.IncCompensated("payment_failed")
		s.logg.Info(ctx, "order cancelled after failed payment")
	}
	return nil
}

// UpdateOrderStatus is the admin fulfilment update. Moving into cancelled
// compensates the order exactly once. Orders awaiting an online payment only
// leave pending_payment through the payment callback or cancellation.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, input UpdateOrderInput) (*OrderSnapshot, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]string{"status": string(*input.Status)})
	}
	ctx = s.logg.WithOrderID(ctx, orderID.String())

	var compensated bool
	var snapshot OrderSnapshot
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		from := order.Status
		to := from
		if input.Status != nil {
			to = *input.Status
		}
		if !CanTransition(from, to) {
			return ErrInvalidStatusTransition
		}
		if paidByGatewayOnly(from, to) {
			return ErrAwaitingPayment
		}

		updates := map[string]any{}
		if input.Note != nil {
			updates["note"] = strings.TrimSpace(*input.Note)
		}
		if input.ExpectedDeliveryAt != nil {
			updates["expected_delivery_at"] = input.ExpectedDeliveryAt.UTC()
		}

		changed := from != to
		if changed && to == enums.OrderStatusCancelled {
			done, err := s.cancelInTx(ctx, tx, repo, order, now)
			if err != nil {
				return err
			}
			compensated = done
		} else if changed {
			updates["status"] = to
			if to == enums.OrderStatusDelivered && !order.PaymentMethod.IsOnline() &&
				order.Payment != nil && order.Payment.Status == enums.PaymentStatusPendingPayment {
				if err := repo.UpdatePayment(ctx, order.ID, map[string]any{
					"status":  enums.PaymentStatusCompleted,
					"paid_at": now,
				}); err != nil {
					return err
				}
			}
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return err
		}

		if changed {
			recipient, err := repo.FindRecipient(ctx, order.UserID)
			if err != nil {
				return err
			}
			admin := &outbox.ActorRef{Role: string(enums.UserRoleAdmin)}
			if to == enums.OrderStatusCancelled {
				event := payloads.OrderCancelledEvent{
					OrderID:        order.ID,
					ShipmentNumber: order.ShipmentNumber,
					Recipient:      recipient,
					Reason:         "cancelled by admin",
					CancelledBy:    string(enums.UserRoleAdmin),
					CancelledAt:    now,
				}
				if err := s.emit(ctx, tx, enums.EventOrderCancelled, order.ID, admin, event, now); err != nil {
					return err
				}
			} else {
				expected := order.ExpectedDeliveryAt
				if input.ExpectedDeliveryAt != nil {
					at := input.ExpectedDeliveryAt.UTC()
					expected = &at
				}
				event := payloads.OrderStatusChangedEvent{
					OrderID:            order.ID,
					ShipmentNumber:     order.ShipmentNumber,
					Recipient:          recipient,
					From:               from,
					To:                 to,
					ExpectedDeliveryAt: expected,
					ChangedAt:          now,
				}
				if err := s.emit(ctx, tx, enums.EventOrderStatusChanged, order.ID, admin, event, now); err != nil {
					return err
				}
			}
		}

		updated, err := repo.FindOrder(ctx, order.ID)
		if err != nil {
			return err
		}
		snapshot = toSnapshot(*updated)
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	if compensated {
		s.metrics.IncCompensated("admin_cancelled")
	}
	return &snapshot, nil
}

// ListExpirable returns one page of unpaid online orders whose payment
// deadline has passed, oldest first. Pass the last key of a page as after to
// read the next one.
func (s *service) ListExpirable(ctx context.Context, after *pagination.Cursor, limit int) ([]pagination.Cursor, error) {
	cutoff := s.now().UTC().Add(-s.cfg.PaymentDeadline)
	keys, err := s.repo.ListExpirable(ctx, cutoff, enums.OnlinePaymentMethods, after, limit)
	if err != nil {
		return nil, mapError(err)
	}
	return keys, nil
}

// ExpireOrder cancels one unpaid online order past its deadline in its own
// transaction. It reports false when the order no longer qualifies.
func (s *service) ExpireOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	ctx = s.logg.WithOrderID(ctx, orderID.String())
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		if order.Status != enums.OrderStatusPendingPayment || !order.PaymentMethod.IsOnline() {
			return nil
		}
		if !order.PlacedAt.Before(now.Add(-s.cfg.PaymentDeadline)) {
			return nil
		}
		done, err := s.cancelInTx(ctx, tx, repo, order, now)
		if err != nil || !done {
			return err
		}
		recipient, err := repo.FindRecipient(ctx, order.UserID)
		if err != nil {
			return err
		}
		expired = true
		event := payloads.OrderExpiredEvent{
			OrderID:        order.ID,
			ShipmentNumber: order.ShipmentNumber,
			Recipient:      recipient,
			PlacedAt:       order.PlacedAt,
			ExpiredAt:      now,
		}
		return s.emit(ctx, tx, enums.EventOrderExpired, order.ID, &outbox.ActorRef{Role: systemActorRole}, event, now)
	})
	if err != nil {
		return false, mapError(err)
	}
	if expired {
		s.metrics.IncCompensated("expired")
		s.metrics.AddExpired(1)
		s.logg.Info(ctx, "unpaid order expired")
	}
	return expired, nil
}

// cancelInTx compensates the order, fails a still-pending payment and marks
// the order cancelled. It reports false when the order was already cancelled.
func (s *service) cancelInTx(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, now time.Time) (bool, error) {
	done, err := s.compensator.Compensate(ctx, tx, order)
	if err != nil || !done {
		return done, err
	}
	if order.Payment != nil && order.Payment.Status == enums.PaymentStatusPendingPayment {
		if err := repo.UpdatePayment(ctx, order.ID, map[string]any{"status": enums.PaymentStatusFailed}); err != nil {
			return false, err
		}
		order.Payment.Status = enums.PaymentStatusFailed
	}
	if err := repo.UpdateOrder(ctx, order.ID, map[string]any{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": now,
	}); err != nil {
		return false, err
	}
	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now
	return true, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*OrderSnapshot, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, mapError(err)
	}
	if !actor.IsAdmin() && actor.UserID != order.UserID {
		return nil, mapError(ErrForbidden)
	}
	snapshot := toSnapshot(*order)
	return &snapshot, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListForUser(ctx, userID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	list := &OrderList{Orders: make([]OrderSnapshot, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.PlacedAt, ID: last.ID})
		rows = rows[:limit]
	}
	for _, row := range rows {
		list.Orders = append(list.Orders, toSnapshot(row))
	}
	return list, nil
}

func (s *service) FindByIDAndEmail(ctx context.Context, orderID uuid.UUID, email string) (*OrderSnapshot, error) {
	if orderID == uuid.Nil || strings.TrimSpace(email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and email are required")
	}
	order, err := s.repo.FindByIDAndEmail(ctx, orderID, email)
	if err != nil {
		return nil, mapError(err)
	}
	snapshot := toSnapshot(*order)
	return &snapshot, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, orderID uuid.UUID, actor *outbox.ActorRef, data any, at time.Time) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Actor:         actor,
		Data:          data,
		OccurredAt:    at,
	})
}

func actorRef(actor Actor) *outbox.ActorRef {
	ref := &outbox.ActorRef{Role: string(actor.Role)}
	if actor.UserID != uuid.Nil {
		id := actor.UserID
		ref.UserID = &id
	}
	return ref
}
