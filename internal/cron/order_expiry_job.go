package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const defaultExpiryBatchSize = 200

// OrderExpiryJobParams configure the unpaid online order sweep.
type OrderExpiryJobParams struct {
	Logger    *logger.Logger
	Orders    orderExpirer
	BatchSize int
	Interval  time.Duration
}

// orderExpirer is satisfied by orders.Service. ExpireOrder runs its own
// transaction, so one failing order never rolls back another.
type orderExpirer interface {
	ListExpirable(ctx context.Context, after *pagination.Cursor, limit int) ([]pagination.Cursor, error)
	ExpireOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
}

// NewOrderExpiryJob builds the job that cancels online orders left unpaid past the deadline.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &orderExpiryJob{
		logg:     params.Logger,
		orders:   params.Orders,
		batch:    batch,
		interval: params.Interval,
	}, nil
}

type orderExpiryJob struct {
	logg     *logger.Logger
	orders   orderExpirer
	batch    int
	interval time.Duration
}

func (j *orderExpiryJob) Name() string { return "order-payment-expiry" }

func (j *orderExpiryJob) Interval() time.Duration { return j.interval }

// Run walks every expirable order page by page. The cursor moves past orders
// that fail to expire, so a stuck batch never hides newer candidates.
func (j *orderExpiryJob) Run(ctx context.Context) error {
	var (
		after      *pagination.Cursor
		errs       []error
		candidates int
		expired    int
		failed     int
	)

sweep:
	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, ctxErr)
			break
		}
		page, err := j.orders.ListExpirable(ctx, after, j.batch)
		if err != nil {
			errs = append(errs, fmt.Errorf("query expirable orders: %w", err))
			break
		}
		for _, key := range page {
			if ctxErr := ctx.Err(); ctxErr != nil {
				errs = append(errs, ctxErr)
				break sweep
			}
			candidates++
			ok, err := j.orders.ExpireOrder(ctx, key.ID)
			if err != nil {
				failed++
				j.logg.Error(j.logg.WithOrderID(ctx, key.ID.String()), "order expiry failed", err)
				errs = append(errs, fmt.Errorf("expire order %s: %w", key.ID, err))
				continue
			}
			if ok {
				expired++
			}
		}
		if len(page) < j.batch {
			break
		}
		last := page[len(page)-1]
		after = &last
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": candidates,
		"expired":    expired,
		"failed":     failed,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return multierr.Combine(errs...)
}
