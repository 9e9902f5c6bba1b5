package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	keys     []pagination.Cursor
	listErr  error
	failing  map[uuid.UUID]error
	skipped  map[uuid.UUID]bool
	expired  map[uuid.UUID]bool
	limit    int
	lists    int
	attempts []uuid.UUID
}

// orderKeys returns n keys placed a minute apart, oldest first.
func orderKeys(n int) []pagination.Cursor {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	keys := make([]pagination.Cursor, n)
	for i := range keys {
		keys[i] = pagination.Cursor{CreatedAt: base.Add(time.Duration(i) * time.Minute), ID: uuid.New()}
	}
	return keys
}

func (f *fakeExpirer) ListExpirable(_ context.Context, after *pagination.Cursor, limit int) ([]pagination.Cursor, error) {
	f.limit = limit
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var page []pagination.Cursor
	for _, key := range f.keys {
		if f.expired[key.ID] {
			continue
		}
		if after != nil && !key.CreatedAt.After(after.CreatedAt) {
			continue
		}
		if len(page) == limit {
			break
		}
		page = append(page, key)
	}
	return page, nil
}

func (f *fakeExpirer) ExpireOrder(_ context.Context, id uuid.UUID) (bool, error) {
	f.attempts = append(f.attempts, id)
	if err := f.failing[id]; err != nil {
		return false, err
	}
	if f.skipped[id] {
		return false, nil
	}
	if f.expired == nil {
		f.expired = map[uuid.UUID]bool{}
	}
	f.expired[id] = true
	return true, nil
}

func ids(keys []pagination.Cursor) []uuid.UUID {
	out := make([]uuid.UUID, len(keys))
	for i, key := range keys {
		out[i] = key.ID
	}
	return out
}

func newExpiryJob(t *testing.T, orders orderExpirer, batch int) Job {
	t.Helper()
	job, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Orders:    orders,
		BatchSize: batch,
	})
	require.NoError(t, err)
	return job
}

func TestOrderExpiryJobExpiresEveryCandidate(t *testing.T) {
	keys := orderKeys(2)
	orders := &fakeExpirer{keys: keys, skipped: map[uuid.UUID]bool{keys[1].ID: true}}
	job := newExpiryJob(t, orders, 0)

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, defaultExpiryBatchSize, orders.limit)
	require.Equal(t, ids(keys), orders.attempts)
	require.Equal(t, 1, orders.lists)
	require.Equal(t, "order-payment-expiry", job.Name())
}

func TestOrderExpiryJobIsolatesFailures(t *testing.T) {
	keys := orderKeys(3)
	boom := errors.New("release failed")
	orders := &fakeExpirer{
		keys:    keys,
		failing: map[uuid.UUID]error{keys[1].ID: boom},
	}
	job := newExpiryJob(t, orders, 50)

	err := job.Run(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 50, orders.limit)
	require.Equal(t, ids(keys), orders.attempts)
}

func TestOrderExpiryJobPagesPastStuckOrders(t *testing.T) {
	keys := orderKeys(7)
	boom := errors.New("quota row locked")
	orders := &fakeExpirer{
		keys:    keys,
		failing: map[uuid.UUID]error{keys[0].ID: boom, keys[1].ID: boom},
	}
	job := newExpiryJob(t, orders, 2)

	err := job.Run(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, ids(keys), orders.attempts)
	require.Equal(t, 4, orders.lists)
	for _, key := range keys[2:] {
		require.True(t, orders.expired[key.ID], "order %s left unexpired", key.ID)
	}

	// The next run retries the stuck orders without redoing the rest.
	orders.attempts = nil
	orders.failing = nil
	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, ids(keys[:2]), orders.attempts)
}

func TestOrderExpiryJobPropagatesListError(t *testing.T) {
	orders := &fakeExpirer{listErr: errors.New("db down")}
	job := newExpiryJob(t, orders, 10)

	require.Error(t, job.Run(context.Background()))
	require.Empty(t, orders.attempts)
	require.Equal(t, 1, orders.lists)
}

func TestOrderExpiryJobStopsOnCancelledContext(t *testing.T) {
	orders := &fakeExpirer{keys: orderKeys(2)}
	job := newExpiryJob(t, orders, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := job.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, orders.attempts)
	require.Zero(t, orders.lists)
}

func TestNewOrderExpiryJobRequiresDeps(t *testing.T) {
	_, err := NewOrderExpiryJob(OrderExpiryJobParams{Orders: &fakeExpirer{}})
	require.Error(t, err)
	_, err = NewOrderExpiryJob(OrderExpiryJobParams{Logger: logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})})
	require.Error(t, err)
}
