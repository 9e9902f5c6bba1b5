package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/google/uuid"
)

const orderEmailConsumer = "order-emails"

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type decoder interface {
	Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (interface{}, error)
}

type renderer interface {
	Render(eventType enums.OutboxEventType, payload any) (Message, error)
}

// ConsumerParams wires the order e-mail consumer.
type ConsumerParams struct {
	Subscription receiver
	Idempotency  *idempotency.Manager
	Decoders     decoder
	Renderer     renderer
	Sender       Sender
	Logger       *logger.Logger
}

// Consumer turns published order events into customer e-mails. Delivery is
// best-effort: a failed send is retried through Pub/Sub redelivery and never
// touches the order.
type Consumer struct {
	subscription receiver
	idempotency  *idempotency.Manager
	decoders     decoder
	renderer     renderer
	sender       Sender
	logg         *logger.Logger
}

// NewConsumer builds an order e-mail consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Renderer == nil {
		return nil, fmt.Errorf("renderer required")
	}
	if params.Sender == nil {
		return nil, fmt.Errorf("sender required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	decoders := params.Decoders
	if decoders == nil {
		decoders = NewDecoders()
	}
	return &Consumer{
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		decoders:     decoders,
		renderer:     params.Renderer,
		sender:       params.Sender,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes, msg.Data).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

var acked = processResult{ack: true}
var nacked = processResult{nack: true}

func (c *Consumer) process(ctx context.Context, messageID string, attrs map[string]string, data []byte) processResult {
	eventType := enums.OutboxEventType(attrs["event_type"])
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})
	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unknown event type")
		return acked
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return acked
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return acked
	}
	version := envelope.Version
	if raw := attrs["version"]; raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			version = parsed
		}
	}
	if version <= 0 {
		version = payloadVersion
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id": eventID.String(),
		"version":  version,
	})
	if orderID := attrs["aggregate_id"]; orderID != "" {
		logCtx = c.logg.WithOrderID(logCtx, orderID)
	}

	payload, err := c.decoders.Decode(eventType, version, envelope.Data)
	if err != nil {
		// a payload this worker cannot read will not improve on redelivery
		c.logg.Error(logCtx, "failed to decode payload", err)
		return acked
	}
	msg, err := c.renderer.Render(eventType, payload)
	if err != nil {
		c.logg.Error(logCtx, "failed to render email", err)
		return acked
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderEmailConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return nacked
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return acked
	}

	if err := c.sender.Send(logCtx, msg); err != nil {
		c.logg.Error(logCtx, "email send failed", err)
		if delErr := c.idempotency.Delete(ctx, orderEmailConsumer, eventID); delErr != nil {
			c.logg.Error(logCtx, "failed to clear idempotency key", delErr)
		}
		return nacked
	}
	return acked
}
