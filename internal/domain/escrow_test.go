package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func testTime() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func heldPayment(t *testing.T) EscrowPayment {
	t.Helper()
	payment, err := NewEscrowPayment("pay-1", "order-1", "buyer-1", decimal.NewFromInt(100), "USD", testTime())
	if err != nil {
		t.Fatalf("new escrow payment: %v", err)
	}
	return payment
}

func TestNewEscrowPaymentValidation(t *testing.T) {
	t.Parallel()
	now := testTime()

	if _, err := NewEscrowPayment("", "order-1", "buyer-1", decimal.NewFromInt(100), "USD", now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty payment id, got %v", err)
	}
	if _, err := NewEscrowPayment("pay-1", "order-1", "buyer-1", decimal.Zero, "USD", now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero total, got %v", err)
	}
	if _, err := NewEscrowPayment("pay-1", "order-1", "buyer-1", decimal.NewFromInt(100), "us", now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for bad currency, got %v", err)
	}

	payment, err := NewEscrowPayment("pay-1", "order-1", "buyer-1", decimal.NewFromInt(100), "usd", now)
	if err != nil {
		t.Fatalf("new escrow payment: %v", err)
	}
	if payment.Currency != "USD" {
		t.Fatalf("expected normalized currency USD, got %s", payment.Currency)
	}
	if payment.Status != EscrowStatusHeld {
		t.Fatalf("expected held status, got %s", payment.Status)
	}
}

func TestAddAllocationComputesSellerPayout(t *testing.T) {
	t.Parallel()
	payment := heldPayment(t)

	alloc, err := payment.AddAllocation("alloc-1", "store-1", "ship-1",
		decimal.NewFromInt(90), decimal.NewFromInt(10),
		decimal.NewFromInt(9), decimal.NewFromInt(10), testTime())
	if err != nil {
		t.Fatalf("add allocation: %v", err)
	}
	if got := alloc.SellerPayout.String(); got != "91" {
		t.Fatalf("expected seller payout 91, got %s", got)
	}
	if got := alloc.GrossAmount().String(); got != "100" {
		t.Fatalf("expected gross 100, got %s", got)
	}
}

func TestAddAllocationRejectsOverAllocation(t *testing.T) {
	t.Parallel()
	payment := heldPayment(t)

	if _, err := payment.AddAllocation("alloc-1", "store-1", "ship-1",
		decimal.NewFromInt(60), decimal.Zero,
		decimal.NewFromInt(6), decimal.NewFromInt(10), testTime()); err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	_, err := payment.AddAllocation("alloc-2", "store-2", "ship-2",
		decimal.NewFromInt(50), decimal.Zero,
		decimal.NewFromInt(5), decimal.NewFromInt(10), testTime())
	if !errors.Is(err, ErrReconciliation) {
		t.Fatalf("expected reconciliation error, got %v", err)
	}
}

func TestAddAllocationRejectsDuplicateShipment(t *testing.T) {
	t.Parallel()
	payment := heldPayment(t)

	if _, err := payment.AddAllocation("alloc-1", "store-1", "ship-1",
		decimal.NewFromInt(40), decimal.Zero,
		decimal.NewFromInt(4), decimal.NewFromInt(10), testTime()); err != nil {
		t.Fatalf("first allocation: %v", err)
	}
	_, err := payment.AddAllocation("alloc-2", "store-1", "ship-1",
		decimal.NewFromInt(40), decimal.Zero,
		decimal.NewFromInt(4), decimal.NewFromInt(10), testTime())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for duplicate shipment, got %v", err)
	}
}

func TestReleaseAllocationUpdatesPaymentStatus(t *testing.T) {
	t.Parallel()
	payment := heldPayment(t)
	now := testTime()

	if _, err := payment.AddAllocation("alloc-1", "store-1", "ship-1",
		decimal.NewFromInt(60), decimal.Zero,
		decimal.NewFromInt(6), decimal.NewFromInt(10), now); err != nil {
		t.Fatalf("allocation 1: %v", err)
	}
	if _, err := payment.AddAllocation("alloc-2", "store-2", "ship-2",
		decimal.NewFromInt(40), decimal.Zero,
		decimal.NewFromInt(4), decimal.NewFromInt(10), now); err != nil {
		t.Fatalf("allocation 2: %v", err)
	}

	alloc, err := payment.ReleaseAllocation("ship-1", "ref-1", now)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if alloc.Status != AllocationStatusReleased {
		t.Fatalf("expected released allocation, got %s", alloc.Status)
	}
	if payment.Status != EscrowStatusPartiallyReleased {
		t.Fatalf("expected partially released payment, got %s", payment.Status)
	}
	if got := payment.ReleasedAmount.String(); got != "60" {
		t.Fatalf("expected released amount 60, got %s", got)
	}

	if _, err := payment.ReleaseAllocation("ship-1", "ref-1", now); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected state conflict on double release, got %v", err)
	}

	if _, err := payment.ReleaseAllocation("ship-2", "ref-2", now); err != nil {
		t.Fatalf("release second: %v", err)
	}
	if payment.Status != EscrowStatusReleased {
		t.Fatalf("expected released payment, got %s", payment.Status)
	}
	if err := payment.CheckInvariant(); err != nil {
		t.Fatalf("invariant: %v", err)
	}
}

func TestApplyPartialRefundProportionalCommission(t *testing.T) {
	t.Parallel()
	payment := heldPayment(t)
	now := testTime()

	if _, err := payment.AddAllocation("alloc-1", "store-1", "ship-1",
		decimal.NewFromInt(90), decimal.NewFromInt(10),
		decimal.NewFromInt(9), decimal.NewFromInt(10), now); err != nil {
		t.Fatalf("allocation: %v", err)
	}

	if err := payment.ApplyPartialRefund("ship-1", decimal.NewFromInt(45), "rf-1", now); err != nil {
		t.Fatalf("partial refund: %v", err)
	}
	alloc, _ := payment.AllocationByShipment("ship-1")
	if got := alloc.RefundedSellerAmount.String(); got != "45" {
		t.Fatalf("expected refunded seller amount 45, got %s", got)
	}
	if got := alloc.RefundedCommissionAmount.String(); got != "4.5" {
		t.Fatalf("expected refunded commission 4.5, got %s", got)
	}
	// 45 seller remaining, minus 4.5 remaining commission, plus 10 shipping.
	if got := alloc.RemainingSellerPayout().String(); got != "50.5" {
		t.Fatalf("expected remaining seller payout 50.5, got %s", got)
	}
	if alloc.Status != AllocationStatusHeld {
		t.Fatalf("partially refunded allocation should stay held, got %s", alloc.Status)
	}

	if err := payment.ApplyPartialRefund("ship-1", decimal.NewFromInt(56), "rf-2", now); !errors.Is(err, ErrReconciliation) {
		t.Fatalf("expected reconciliation error for over-refund, got %v", err)
	}

	if err := payment.ApplyPartialRefund("ship-1", decimal.NewFromInt(55), "rf-3", now); err != nil {
		t.Fatalf("final refund: %v", err)
	}
	alloc, _ = payment.AllocationByShipment("ship-1")
	if alloc.Status != AllocationStatusRefunded {
		t.Fatalf("expected fully refunded allocation, got %s", alloc.Status)
	}
	if payment.Status != EscrowStatusRefunded {
		t.Fatalf("expected refunded payment, got %s", payment.Status)
	}
}

func TestRefundAllRequiresHeldAllocation(t *testing.T) {
	t.Parallel()
	payment := heldPayment(t)
	now := testTime()

	if err := payment.RefundAll("rf-1", now); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected state conflict with no held allocations, got %v", err)
	}

	if _, err := payment.AddAllocation("alloc-1", "store-1", "ship-1",
		decimal.NewFromInt(100), decimal.Zero,
		decimal.NewFromInt(10), decimal.NewFromInt(10), now); err != nil {
		t.Fatalf("allocation: %v", err)
	}
	if err := payment.RefundAll("rf-1", now); err != nil {
		t.Fatalf("refund all: %v", err)
	}
	if got := payment.RefundedAmount.String(); got != "100" {
		t.Fatalf("expected refunded amount 100, got %s", got)
	}
}

func TestMarkEligibleForPayout(t *testing.T) {
	t.Parallel()
	payment := heldPayment(t)
	now := testTime()

	if _, err := payment.AddAllocation("alloc-1", "store-1", "ship-1",
		decimal.NewFromInt(100), decimal.Zero,
		decimal.NewFromInt(10), decimal.NewFromInt(10), now); err != nil {
		t.Fatalf("allocation: %v", err)
	}
	alloc, err := payment.MarkEligibleForPayout("ship-1", now)
	if err != nil {
		t.Fatalf("mark eligible: %v", err)
	}
	if !alloc.IsEligibleForPayout {
		t.Fatalf("expected allocation flagged eligible")
	}
	if _, err := payment.MarkEligibleForPayout("ship-missing", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown shipment, got %v", err)
	}
}

func TestCheckInvariantCatchesOverRelease(t *testing.T) {
	t.Parallel()
	payment := heldPayment(t)
	payment.ReleasedAmount = decimal.NewFromInt(80)
	payment.RefundedAmount = decimal.NewFromInt(30)
	if err := payment.CheckInvariant(); !errors.Is(err, ErrReconciliation) {
		t.Fatalf("expected reconciliation error, got %v", err)
	}
}
