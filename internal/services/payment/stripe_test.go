package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/impactbridge/marketplace/internal/config"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_test_secret"

const succeededPayload = `{
  "id": "evt_test_1",
  "object": "event",
  "api_version": "2023-10-16",
  "type": "payment_intent.succeeded",
  "data": {
    "object": {
      "id": "pi_test_1",
      "object": "payment_intent",
      "amount": 4200,
      "currency": "gbp",
      "metadata": {"projectId": "3", "donorEmail": "donor@example.com"}
    }
  }
}`

func sign(t *testing.T, payload, secret string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestStripeParseWebhook(t *testing.T) {
	g := NewStripeGateway(&config.StripeConfig{WebhookSecret: testWebhookSecret})

	evt, err := g.ParseWebhook([]byte(succeededPayload), sign(t, succeededPayload, testWebhookSecret))
	if err != nil {
		t.Fatalf("ParseWebhook() error = %v", err)
	}
	if evt.ID != "evt_test_1" || evt.Type != EventPaymentSucceeded {
		t.Errorf("event = %s/%s", evt.ID, evt.Type)
	}
	if evt.PaymentIntent == nil {
		t.Fatal("expected payment intent to be decoded")
	}
	pi := evt.PaymentIntent
	if pi.ID != "pi_test_1" || pi.AmountMinor != 4200 || pi.Currency != "gbp" {
		t.Errorf("payment intent = %+v", pi)
	}
	if pi.Metadata["projectId"] != "3" || pi.Metadata["donorEmail"] != "donor@example.com" {
		t.Errorf("metadata = %v", pi.Metadata)
	}
}

func TestStripeParseWebhookWrongSecret(t *testing.T) {
	g := NewStripeGateway(&config.StripeConfig{WebhookSecret: testWebhookSecret})

	_, err := g.ParseWebhook([]byte(succeededPayload), sign(t, succeededPayload, "whsec_other"))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("error = %v, expected ErrInvalidSignature", err)
	}
}

func TestStripeParseWebhookTampered(t *testing.T) {
	g := NewStripeGateway(&config.StripeConfig{WebhookSecret: testWebhookSecret})
	header := sign(t, succeededPayload, testWebhookSecret)

	tampered := []byte(succeededPayload[:len(succeededPayload)-2] + " }")
	if _, err := g.ParseWebhook(tampered, header); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("error = %v, expected ErrInvalidSignature", err)
	}
}

func TestStripeNotConfigured(t *testing.T) {
	g := NewStripeGateway(&config.StripeConfig{})

	if _, err := g.ParseWebhook([]byte("{}"), "t=1,v1=abc"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("ParseWebhook() error = %v, expected ErrNotConfigured", err)
	}

	_, err := g.CreatePaymentIntent(context.Background(), IntentParams{AmountMinor: 100, Currency: "gbp"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("CreatePaymentIntent() error = %v, expected ErrNotConfigured", err)
	}
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Errorf("expected GatewayError, got %T", err)
	}
}
