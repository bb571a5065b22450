package payment

import (
	"context"
	"errors"
)

// Event types acted upon by the webhook.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
)

var (
	// ErrInvalidSignature means the webhook payload could not be authenticated.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrNotConfigured means the gateway credentials are missing.
	ErrNotConfigured = errors.New("payment gateway is not configured")
)

// Gateway is the slice of a card processor the marketplace depends on.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, params IntentParams) (*Intent, error)
	// ParseWebhook authenticates a raw webhook body against its signature
	// header and decodes it.
	ParseWebhook(payload []byte, signature string) (*Event, error)
}

type IntentParams struct {
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
}

type Intent struct {
	ID           string
	ClientSecret string
	AmountMinor  int64
	Currency     string
}

// Event is a verified webhook delivery. PaymentIntent is set only for
// payment intent events.
type Event struct {
	ID            string
	Type          string
	PaymentIntent *PaymentIntent
}

type PaymentIntent struct {
	ID          string
	AmountMinor int64
	Currency    string
	Metadata    map[string]string
}

// GatewayError wraps a failure reported by the processor, keeping the
// processor's human-readable message.
type GatewayError struct {
	Msg string
	Err error
}

func (e *GatewayError) Error() string { return e.Msg }

func (e *GatewayError) Unwrap() error { return e.Err }
