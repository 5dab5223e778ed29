package payment

import (
	"context"
	"errors"
	"time"
)

// ErrBadSignature is returned when a webhook payload fails verification.
// Callers must reject the request without touching business state.
var ErrBadSignature = errors.New("invalid webhook signature")

// Event types the gateway delivers. Anything else is acknowledged and
// ignored.
const (
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

// Metadata keys echoed back by the gateway on every event.
const (
	MetadataOrderKey = "order_key"
	MetadataOrderID  = "order_id"
)

// LineItem is one priced row of a hosted checkout session. UnitAmount is
// in minor currency units.
type LineItem struct {
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Quantity   int    `json:"quantity"`
	Image      string `json:"image,omitempty"`
}

// SessionParams describes the hosted session to create. Metadata is opaque
// to the gateway and echoed back verbatim on webhook events.
type SessionParams struct {
	LineItems      []LineItem
	ShippingAmount int64
	SuccessURL     string
	CancelURL      string
	CustomerEmail  string
	Metadata       map[string]string
}

// CheckoutSession is the gateway's hosted transaction context.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Event is a verified, parsed webhook notification.
type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	TransactionID string            `json:"transaction_id"`
	Status        string            `json:"status"`
	PaidAt        time.Time         `json:"paid_at"`
	PayerEmail    string            `json:"payer_email"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	ReceiptURL    string            `json:"receipt_url,omitempty"`
	Metadata      map[string]string `json:"metadata"`
}

// OrderKey returns the storage identifier embedded at session creation.
func (e *Event) OrderKey() string {
	return e.Data.Metadata[MetadataOrderKey]
}

// OrderID returns the human-readable order identifier.
func (e *Event) OrderID() string {
	return e.Data.Metadata[MetadataOrderID]
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params SessionParams) (*CheckoutSession, error)
	// VerifyWebhook authenticates the exact raw request body against the
	// signature header and returns the parsed event. It must be handed the
	// original bytes: re-serialized JSON breaks the signature.
	VerifyWebhook(rawBody []byte, signature string) (*Event, error)
}
