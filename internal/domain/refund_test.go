package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func pendingRefund(t *testing.T) Refund {
	t.Helper()
	refund, err := NewRefund("rf-1", "order-1", "pay-1", "ship-1", "buyer-1",
		decimal.NewFromInt(25), "USD", "damaged item", testTime())
	if err != nil {
		t.Fatalf("new refund: %v", err)
	}
	return refund
}

func TestNewRefundAssignsIdempotencyKey(t *testing.T) {
	t.Parallel()
	refund := pendingRefund(t)
	if !strings.HasPrefix(refund.IdempotencyKey, "REFUND-order-1-") {
		t.Fatalf("unexpected idempotency key %s", refund.IdempotencyKey)
	}
	other := pendingRefund(t)
	if refund.IdempotencyKey == other.IdempotencyKey {
		t.Fatalf("keys must be unique per creation")
	}
}

func TestRefundWorkflowTransitions(t *testing.T) {
	t.Parallel()
	refund := pendingRefund(t)
	now := testTime()

	if err := refund.Complete("txn-1", now); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("complete from pending should fail, got %v", err)
	}
	if err := refund.StartProcessing(now); err != nil {
		t.Fatalf("start processing: %v", err)
	}
	if err := refund.Complete("", now); !errors.Is(err, ErrProviderReference) {
		t.Fatalf("complete without transaction id should fail, got %v", err)
	}
	if err := refund.Complete("txn-1", now); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if refund.Status != RefundStatusCompleted || refund.CompletedAt == nil {
		t.Fatalf("expected completed refund, got %s", refund.Status)
	}
}

func TestRefundRetryBudget(t *testing.T) {
	t.Parallel()
	refund := pendingRefund(t)
	now := testTime()

	for attempt := 0; attempt < DefaultRefundMaxRetries; attempt++ {
		if err := refund.StartProcessing(now); err != nil {
			t.Fatalf("attempt %d start: %v", attempt, err)
		}
		if err := refund.Fail("provider declined", now); err != nil {
			t.Fatalf("attempt %d fail: %v", attempt, err)
		}
		if attempt < DefaultRefundMaxRetries-1 {
			if !refund.CanRetry() {
				t.Fatalf("attempt %d should leave retry budget", attempt)
			}
			if err := refund.ResetForRetry(now); err != nil {
				t.Fatalf("attempt %d reset: %v", attempt, err)
			}
		}
	}
	if refund.CanRetry() {
		t.Fatalf("budget should be exhausted after %d failures", DefaultRefundMaxRetries)
	}
	if err := refund.ResetForRetry(now); !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected retries exhausted, got %v", err)
	}
}

func TestRefundReject(t *testing.T) {
	t.Parallel()
	refund := pendingRefund(t)
	now := testTime()

	if err := refund.Reject("fraud suspicion", now); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if refund.Status != RefundStatusRejected {
		t.Fatalf("expected rejected, got %s", refund.Status)
	}
	if err := refund.Reject("again", now); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("reject twice should fail, got %v", err)
	}
}

func TestMapGatewayStatusKeywords(t *testing.T) {
	t.Parallel()
	cases := map[string]GatewayStatus{
		"SUCCESS":    GatewayStatusPaid,
		"completed":  GatewayStatusPaid,
		" Paid ":     GatewayStatusPaid,
		"PENDING":    GatewayStatusPending,
		"processing": GatewayStatusPending,
		"FAILED":     GatewayStatusFailed,
		"declined":   GatewayStatusFailed,
		"CANCELLED":  GatewayStatusFailed,
		"REFUNDED":   GatewayStatusRefunded,
		"chargeback": GatewayStatusRefunded,
		"weird":      GatewayStatusUnknown,
		"":           GatewayStatusUnknown,
	}
	for input, want := range cases {
		if got := MapGatewayStatus(input); got != want {
			t.Fatalf("MapGatewayStatus(%q) = %s, want %s", input, got, want)
		}
	}
}
