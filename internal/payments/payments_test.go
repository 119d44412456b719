package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v74"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(t *testing.T, payload []byte, secret string, at time.Time) string {
	t.Helper()

	ts := fmt.Sprintf("%d", at.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)

	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhook_ValidSignature(t *testing.T) {
	g := NewGateway("sk_test_x", testWebhookSecret)

	payload := []byte(`{
		"id": "evt_test_1",
		"api_version": "2022-11-15",
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_test_1",
				"payment_status": "paid",
				"status": "complete",
				"amount_total": 15000,
				"customer_email": "team@example.com",
				"created": 1735689600,
				"metadata": {
					"leagueType": "business",
					"registrationData": "{\"teamName\":\"Eagles\"}"
				}
			}
		}
	}`)

	ev, err := g.VerifyWebhook(payload, signPayload(t, payload, testWebhookSecret, time.Now()))
	if err != nil {
		t.Fatalf("VerifyWebhook: %v", err)
	}

	if ev.ID != "evt_test_1" {
		t.Fatalf("event id = %q, want evt_test_1", ev.ID)
	}
	if ev.Type != "checkout.session.completed" {
		t.Fatalf("event type = %q", ev.Type)
	}
	if ev.Session == nil {
		t.Fatal("expected session payload for checkout.session event")
	}
	if ev.Session.ID != "cs_test_1" || ev.Session.PaymentStatus != "paid" {
		t.Fatalf("session = %+v", ev.Session)
	}
	if ev.Session.Metadata["leagueType"] != "business" {
		t.Fatalf("metadata = %v", ev.Session.Metadata)
	}
	if ev.Session.AmountTotal != 15000 {
		t.Fatalf("amount = %d, want 15000", ev.Session.AmountTotal)
	}
}

func TestVerifyWebhook_InvalidSignature(t *testing.T) {
	g := NewGateway("sk_test_x", testWebhookSecret)

	payload := []byte(`{"id":"evt_test_2","type":"checkout.session.completed","data":{"object":{}}}`)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"garbage header", "t=1,v1=deadbeef"},
		{"wrong secret", signPayload(t, payload, "whsec_other", time.Now())},
		{"stale timestamp", signPayload(t, payload, testWebhookSecret, time.Now().Add(-time.Hour))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.VerifyWebhook(payload, tt.header)
			if !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("err = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestVerifyWebhook_NonSessionEventHasNoSession(t *testing.T) {
	g := NewGateway("sk_test_x", testWebhookSecret)

	payload := []byte(`{"id":"evt_test_3","api_version":"2022-11-15","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`)

	ev, err := g.VerifyWebhook(payload, signPayload(t, payload, testWebhookSecret, time.Now()))
	if err != nil {
		t.Fatalf("VerifyWebhook: %v", err)
	}
	if ev.Session != nil {
		t.Fatalf("expected nil session for %s, got %+v", ev.Type, ev.Session)
	}
}

func TestMapError(t *testing.T) {
	missing := &stripe.Error{Code: stripe.ErrorCodeResourceMissing}
	if got := mapError(missing); !errors.Is(got, ErrSessionNotFound) {
		t.Fatalf("mapError(resource_missing) = %v, want ErrSessionNotFound", got)
	}

	rateLimited := &stripe.Error{Code: stripe.ErrorCodeRateLimit}
	if got := mapError(rateLimited); errors.Is(got, ErrSessionNotFound) {
		t.Fatalf("mapError(rate_limit) must not map to ErrSessionNotFound")
	}

	plain := errors.New("network down")
	if got := mapError(plain); got != plain {
		t.Fatalf("mapError must pass through non-stripe errors, got %v", got)
	}
}
