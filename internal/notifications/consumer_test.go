package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	keys map[string]bool
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if m.keys[key] {
		return "1", nil
	}
	return "", nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

type recordingSender struct {
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

type noopReceiver struct{}

func (noopReceiver) Receive(context.Context, func(context.Context, *pubsub.Message)) error {
	return nil
}

func newTestConsumer(t *testing.T, sender Sender) (*Consumer, *memoryStore) {
	t.Helper()
	store := &memoryStore{keys: map[string]bool{}}
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	renderer, err := NewRenderer(config.EmailConfig{FromAddress: "orders@shop.test", StoreName: "Laptop Shop"})
	require.NoError(t, err)
	consumer, err := NewConsumer(ConsumerParams{
		Subscription: noopReceiver{},
		Idempotency:  manager,
		Renderer:     renderer,
		Sender:       sender,
		Logger:       logger.New(logger.Options{ServiceName: "notifications-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return consumer, store
}

func envelopeFor(t *testing.T, eventID uuid.UUID, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		Data:       raw,
	})
	require.NoError(t, err)
	return env
}

func placedEvent() payloads.OrderPlacedEvent {
	payBy := time.Date(2026, 5, 1, 10, 15, 0, 0, time.UTC)
	return payloads.OrderPlacedEvent{
		OrderID:        uuid.New(),
		ShipmentNumber: "GHN-2026-05-01-AB12CD",
		Recipient: payloads.OrderRecipient{
			UserID:   uuid.New(),
			Email:    "buyer@example.com",
			FullName: "Ada Buyer",
		},
		PaymentMethod: enums.PaymentMethodVNPay,
		Status:        enums.OrderStatusPendingPayment,
		TotalCents:    175000,
		DiscountCode:  "SPRING10",
		Lines: []payloads.OrderLineSummary{
			{ProductID: uuid.New(), ProductName: "Ultrabook 14", Qty: 2, UnitPriceCents: 80000, FlashSale: true},
			{ProductID: uuid.New(), ProductName: "USB-C Dock", Qty: 1, UnitPriceCents: 15000},
		},
		PlacedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		PayBy:    &payBy,
	}
}

func TestConsumerSendsOrderPlacedEmailOnce(t *testing.T) {
	sender := &recordingSender{}
	consumer, _ := newTestConsumer(t, sender)
	eventID := uuid.New()
	attrs := map[string]string{"event_type": string(enums.EventOrderPlaced), "version": "1"}
	data := envelopeFor(t, eventID, placedEvent())
	ctx := context.Background()

	first := consumer.process(ctx, "m-1", attrs, data)
	second := consumer.process(ctx, "m-2", attrs, data)

	assert.False(t, first.nack)
	assert.False(t, second.nack)
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "buyer@example.com", msg.To)
	assert.Equal(t, "orders@shop.test", msg.From)
	assert.Equal(t, "[Laptop Shop] Order GHN-2026-05-01-AB12CD received", msg.Subject)
	assert.Contains(t, msg.Body, "Ultrabook 14 x2 @ 800.00 (flash sale) = 1600.00")
	assert.Contains(t, msg.Body, "USB-C Dock x1 @ 150.00 = 150.00")
	assert.Contains(t, msg.Body, "Discount applied: SPRING10")
	assert.Contains(t, msg.Body, "Total: 1750.00")
	assert.Contains(t, msg.Body, "Status: Awaiting online payment")
	assert.Contains(t, msg.Body, "before 2026-05-01 10:15 UTC")
}

func TestConsumerRetriesAfterSendFailure(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	consumer, store := newTestConsumer(t, sender)
	eventID := uuid.New()
	attrs := map[string]string{"event_type": string(enums.EventOrderPlaced)}
	data := envelopeFor(t, eventID, placedEvent())
	ctx := context.Background()

	result := consumer.process(ctx, "m-1", attrs, data)
	require.True(t, result.nack)
	assert.Empty(t, store.keys, "failed sends must not be marked processed")

	sender.err = nil
	result = consumer.process(ctx, "m-1", attrs, data)
	require.False(t, result.nack)
	require.Len(t, sender.sent, 1)
}

func TestConsumerAcksUnusableMessages(t *testing.T) {
	sender := &recordingSender{}
	consumer, store := newTestConsumer(t, sender)
	ctx := context.Background()

	cases := map[string]struct {
		attrs map[string]string
		data  []byte
	}{
		"unknown event type": {
			attrs: map[string]string{"event_type": "review_posted"},
			data:  envelopeFor(t, uuid.New(), placedEvent()),
		},
		"bad envelope": {
			attrs: map[string]string{"event_type": string(enums.EventOrderPaid)},
			data:  []byte("{"),
		},
		"bad event id": {
			attrs: map[string]string{"event_type": string(enums.EventOrderPaid)},
			data:  []byte(`{"version":1,"eventId":"nope","data":{}}`),
		},
		"unsupported version": {
			attrs: map[string]string{"event_type": string(enums.EventOrderPaid), "version": "9"},
			data:  envelopeFor(t, uuid.New(), payloads.OrderPaidEvent{}),
		},
		"missing recipient": {
			attrs: map[string]string{"event_type": string(enums.EventOrderPaid)},
			data:  envelopeFor(t, uuid.New(), payloads.OrderPaidEvent{OrderID: uuid.New()}),
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			result := consumer.process(ctx, name, tc.attrs, tc.data)
			assert.False(t, result.nack)
		})
	}
	assert.Empty(t, sender.sent)
	assert.Empty(t, store.keys)
}

func TestRendererCoversEveryOrderEvent(t *testing.T) {
	renderer, err := NewRenderer(config.EmailConfig{FromAddress: "orders@shop.test"})
	require.NoError(t, err)
	recipient := payloads.OrderRecipient{Email: "buyer@example.com", FullName: "Ada Buyer"}
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	eta := at.Add(72 * time.Hour)

	cases := []struct {
		eventType enums.OutboxEventType
		payload   any
		subject   string
		body      string
	}{
		{
			enums.EventOrderPaid,
			&payloads.OrderPaidEvent{ShipmentNumber: "S-1", Recipient: recipient, AmountCents: 99900, PaidAt: at},
			"[Storefront] Payment received for S-1",
			"payment of 999.00",
		},
		{
			enums.EventOrderPaymentFailed,
			&payloads.OrderPaymentFailedEvent{ShipmentNumber: "S-1", Recipient: recipient, ResponseCode: "24", FailedAt: at},
			"[Storefront] Payment failed for S-1",
			"declined (code 24)",
		},
		{
			enums.EventOrderCancelled,
			&payloads.OrderCancelledEvent{ShipmentNumber: "S-1", Recipient: recipient, Reason: "changed my mind", CancelledAt: at},
			"[Storefront] Order S-1 cancelled",
			"Reason: changed my mind",
		},
		{
			enums.EventOrderExpired,
			&payloads.OrderExpiredEvent{ShipmentNumber: "S-1", Recipient: recipient, PlacedAt: at, ExpiredAt: at.Add(16 * time.Minute)},
			"[Storefront] Order S-1 cancelled, payment not received",
			"cancelled automatically on 2026-05-01 10:16 UTC",
		},
		{
			enums.EventOrderStatusChanged,
			&payloads.OrderStatusChangedEvent{
				ShipmentNumber:     "S-1",
				Recipient:          recipient,
				From:               enums.OrderStatusInProgress,
				To:                 enums.OrderStatusShipped,
				ExpectedDeliveryAt: &eta,
				ChangedAt:          at,
			},
			"[Storefront] Order S-1: Out for delivery",
			"Expected delivery: 2026-05-04 10:00 UTC",
		},
	}
	for _, tc := range cases {
		t.Run(string(tc.eventType), func(t *testing.T) {
			msg, err := renderer.Render(tc.eventType, tc.payload)
			require.NoError(t, err)
			assert.Equal(t, tc.subject, msg.Subject)
			assert.Equal(t, "buyer@example.com", msg.To)
			assert.True(t, strings.Contains(msg.Body, tc.body), msg.Body)
			assert.Contains(t, msg.Body, "Hi Ada Buyer")
		})
	}

	_, err = renderer.Render(enums.EventOrderPaid, "not a payload")
	require.Error(t, err)
}

func TestNewConsumerRequiresDeps(t *testing.T) {
	_, err := NewConsumer(ConsumerParams{})
	require.Error(t, err)
}
