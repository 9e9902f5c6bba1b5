package notifications

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/shopspring/decimal"
)

type emailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var templateFuncs = template.FuncMap{
	"money": formatCents,
	"date": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04 MST")
	},
	"label": func(s enums.OrderStatus) string { return s.Label() },
	"lineTotal": func(line payloads.OrderLineSummary) string {
		return formatCents(line.UnitPriceCents * int64(line.Qty))
	},
}

var emailSources = map[enums.OutboxEventType][2]string{
	enums.EventOrderPlaced: {
		`[{{.Store}}] Order {{.Event.ShipmentNumber}} received`,
		`Hi {{.Event.Recipient.FullName}},

Thanks for your order {{.Event.ShipmentNumber}} placed on {{date .Event.PlacedAt}}.
{{range .Event.Lines}}
- {{.ProductName}} x{{.Qty}} @ {{money .UnitPriceCents}}{{if .FlashSale}} (flash sale){{end}} = {{lineTotal .}}{{end}}
{{if .Event.DiscountCode}}
Discount applied: {{.Event.DiscountCode}}{{end}}
Total: {{money .Event.TotalCents}}
Payment: {{.Event.PaymentMethod}}
Status: {{label .Event.Status}}
{{if .Event.PayBy}}
Please complete the payment before {{date .Event.PayBy}} or the order will be cancelled.{{end}}
`,
	},
	enums.EventOrderPaid: {
		`[{{.Store}}] Payment received for {{.Event.ShipmentNumber}}`,
		`Hi {{.Event.Recipient.FullName}},

We received your payment of {{money .Event.AmountCents}} on {{date .Event.PaidAt}}.
Your order {{.Event.ShipmentNumber}} is now being prepared.
`,
	},
	enums.EventOrderPaymentFailed: {
		`[{{.Store}}] Payment failed for {{.Event.ShipmentNumber}}`,
		`Hi {{.Event.Recipient.FullName}},

The payment for order {{.Event.ShipmentNumber}} was declined (code {{.Event.ResponseCode}}).
The order has been cancelled and no charge was made.
`,
	},
	enums.EventOrderCancelled: {
		`[{{.Store}}] Order {{.Event.ShipmentNumber}} cancelled`,
		`Hi {{.Event.Recipient.FullName}},

Your order {{.Event.ShipmentNumber}} was cancelled on {{date .Event.CancelledAt}}.
Reason: {{.Event.Reason}}
`,
	},
	enums.EventOrderExpired: {
		`[{{.Store}}] Order {{.Event.ShipmentNumber}} cancelled, payment not received`,
		`Hi {{.Event.Recipient.FullName}},

We did not receive the payment for order {{.Event.ShipmentNumber}} placed on {{date .Event.PlacedAt}}.
The order was cancelled automatically on {{date .Event.ExpiredAt}}.
`,
	},
	enums.EventOrderStatusChanged: {
		`[{{.Store}}] Order {{.Event.ShipmentNumber}}: {{label .Event.To}}`,
		`Hi {{.Event.Recipient.FullName}},

Your order {{.Event.ShipmentNumber}} moved from "{{label .Event.From}}" to "{{label .Event.To}}".
{{if .Event.ExpectedDeliveryAt}}
Expected delivery: {{date .Event.ExpectedDeliveryAt}}{{end}}
`,
	},
}

// Renderer turns decoded order events into e-mails.
type Renderer struct {
	from      string
	store     string
	templates map[enums.OutboxEventType]emailTemplate
}

// NewRenderer parses the e-mail templates.
func NewRenderer(cfg config.EmailConfig) (*Renderer, error) {
	if strings.TrimSpace(cfg.FromAddress) == "" {
		return nil, fmt.Errorf("from address required")
	}
	templates := make(map[enums.OutboxEventType]emailTemplate, len(emailSources))
	for eventType, src := range emailSources {
		subject, err := template.New(string(eventType) + ".subject").Funcs(templateFuncs).Parse(src[0])
		if err != nil {
			return nil, fmt.Errorf("parse %s subject: %w", eventType, err)
		}
		body, err := template.New(string(eventType) + ".body").Funcs(templateFuncs).Parse(src[1])
		if err != nil {
			return nil, fmt.Errorf("parse %s body: %w", eventType, err)
		}
		templates[eventType] = emailTemplate{subject: subject, body: body}
	}
	store := cfg.StoreName
	if store == "" {
		store = "Storefront"
	}
	return &Renderer{from: cfg.FromAddress, store: store, templates: templates}, nil
}

// Render builds the message for a decoded payload.
func (r *Renderer) Render(eventType enums.OutboxEventType, payload any) (Message, error) {
	tmpl, ok := r.templates[eventType]
	if !ok {
		return Message{}, fmt.Errorf("no template for %s", eventType)
	}
	recipient, ok := recipientOf(payload)
	if !ok {
		return Message{}, fmt.Errorf("unexpected payload %T for %s", payload, eventType)
	}
	if strings.TrimSpace(recipient.Email) == "" {
		return Message{}, fmt.Errorf("recipient email missing for %s", eventType)
	}

	data := struct {
		Store string
		Event any
	}{Store: r.store, Event: payload}

	var subject, body bytes.Buffer
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", eventType, err)
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render %s body: %w", eventType, err)
	}
	return Message{
		From:    r.from,
		To:      recipient.Email,
		Subject: strings.TrimSpace(subject.String()),
		Body:    body.String(),
	}, nil
}

func recipientOf(payload any) (payloads.OrderRecipient, bool) {
	switch p := payload.(type) {
	case *payloads.OrderPlacedEvent:
		return p.Recipient, true
	case *payloads.OrderPaidEvent:
		return p.Recipient, true
	case *payloads.OrderPaymentFailedEvent:
		return p.Recipient, true
	case *payloads.OrderCancelledEvent:
		return p.Recipient, true
	case *payloads.OrderExpiredEvent:
		return p.Recipient, true
	case *payloads.OrderStatusChangedEvent:
		return p.Recipient, true
	default:
		return payloads.OrderRecipient{}, false
	}
}

func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
