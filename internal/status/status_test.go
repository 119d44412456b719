package status

import (
	"testing"

	"github.com/birdieway/golf-league/internal/model"
)

func TestMapTable(t *testing.T) {
	tests := []struct {
		raw           string
		status        model.RegistrationStatus
		paymentStatus model.PaymentStatus
	}{
		{"paid", model.RegistrationConfirmed, model.PaymentPaid},
		{"complete", model.RegistrationConfirmed, model.PaymentPaid},
		{"succeeded", model.RegistrationConfirmed, model.PaymentPaid},
		{"unpaid", model.RegistrationPending, model.PaymentPending},
		{"requires_payment_method", model.RegistrationPending, model.PaymentPending},
		{"requires_confirmation", model.RegistrationPending, model.PaymentPending},
		{"requires_action", model.RegistrationPending, model.PaymentPending},
		{"processing", model.RegistrationPending, model.PaymentPending},
		{"expired", model.RegistrationCancelled, model.PaymentCancelled},
		{"canceled", model.RegistrationCancelled, model.PaymentCancelled},
		{"failed", model.RegistrationCancelled, model.PaymentFailed},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			status, paymentStatus := Map(tt.raw)
			if status != tt.status || paymentStatus != tt.paymentStatus {
				t.Fatalf("Map(%q) = {%s, %s}, want {%s, %s}",
					tt.raw, status, paymentStatus, tt.status, tt.paymentStatus)
			}
		})
	}
}

func TestMapUnknownDefaultsToPending(t *testing.T) {
	for _, raw := range []string{"", "no_payment_required", "PAID", "weird-status", "\x00"} {
		status, paymentStatus := Map(raw)
		if status != model.RegistrationPending || paymentStatus != model.PaymentPending {
			t.Fatalf("Map(%q) = {%s, %s}, want {pending, pending}", raw, status, paymentStatus)
		}
	}
}

func TestMapIsTotal(t *testing.T) {
	valid := map[model.RegistrationStatus]bool{
		model.RegistrationPending:   true,
		model.RegistrationConfirmed: true,
		model.RegistrationCancelled: true,
	}
	validPayment := map[model.PaymentStatus]bool{
		model.PaymentPending:   true,
		model.PaymentPaid:      true,
		model.PaymentFailed:    true,
		model.PaymentCancelled: true,
	}

	inputs := []string{
		"paid", "complete", "succeeded", "unpaid", "requires_payment_method",
		"requires_confirmation", "requires_action", "processing", "expired",
		"canceled", "failed", "", "garbage", "открыта", "123",
	}

	for _, raw := range inputs {
		status, paymentStatus := Map(raw)
		if !valid[status] {
			t.Fatalf("Map(%q) returned unknown registration status %q", raw, status)
		}
		if !validPayment[paymentStatus] {
			t.Fatalf("Map(%q) returned unknown payment status %q", raw, paymentStatus)
		}
	}
}
