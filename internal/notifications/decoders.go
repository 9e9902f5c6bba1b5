package notifications

import (
	"encoding/json"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const payloadVersion = 1

// NewDecoders registers v1 decoders for every order event the worker mails about.
func NewDecoders() *registry.DecoderRegistry {
	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderPlaced, payloadVersion, decodeInto(func() any { return &payloads.OrderPlacedEvent{} }))
	decoders.Register(enums.EventOrderPaid, payloadVersion, decodeInto(func() any { return &payloads.OrderPaidEvent{} }))
	decoders.Register(enums.EventOrderPaymentFailed, payloadVersion, decodeInto(func() any { return &payloads.OrderPaymentFailedEvent{} }))
	decoders.Register(enums.EventOrderCancelled, payloadVersion, decodeInto(func() any { return &payloads.OrderCancelledEvent{} }))
	decoders.Register(enums.EventOrderExpired, payloadVersion, decodeInto(func() any { return &payloads.OrderExpiredEvent{} }))
	decoders.Register(enums.EventOrderStatusChanged, payloadVersion, decodeInto(func() any { return &payloads.OrderStatusChangedEvent{} }))
	return decoders
}

func decodeInto(factory func() any) func(json.RawMessage) (interface{}, error) {
	return func(raw json.RawMessage) (interface{}, error) {
		target := factory()
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, err
		}
		return target, nil
	}
}
