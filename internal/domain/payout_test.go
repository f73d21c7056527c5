package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func eligibleAllocation(t *testing.T) *EscrowAllocation {
	t.Helper()
	payment := heldPayment(t)
	if _, err := payment.AddAllocation("alloc-1", "store-1", "ship-1",
		decimal.NewFromInt(90), decimal.NewFromInt(10),
		decimal.NewFromInt(9), decimal.NewFromInt(10), testTime()); err != nil {
		t.Fatalf("allocation: %v", err)
	}
	alloc, err := payment.MarkEligibleForPayout("ship-1", testTime())
	if err != nil {
		t.Fatalf("mark eligible: %v", err)
	}
	return alloc
}

func scheduledPayout(t *testing.T) SellerPayout {
	t.Helper()
	payout, err := NewSellerPayout("payout-1", "store-1", "USD", testTime().Truncate(24*time.Hour), 3, testTime())
	if err != nil {
		t.Fatalf("new payout: %v", err)
	}
	return payout
}

func TestPayoutNumberIsStable(t *testing.T) {
	t.Parallel()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	got := PayoutNumber("store-1", "USD", date)
	if got != "PAYOUT-store-1-USD-20260310" {
		t.Fatalf("unexpected payout number %s", got)
	}
}

func TestAddItemSnapshotsRemainingPayout(t *testing.T) {
	t.Parallel()
	payout := scheduledPayout(t)
	alloc := eligibleAllocation(t)

	item, err := payout.AddItem("item-1", alloc, testTime())
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if got := item.Amount.String(); got != "91" {
		t.Fatalf("expected snapshot amount 91, got %s", got)
	}
	if item.PaymentID != alloc.PaymentID {
		t.Fatalf("item should carry the payment id")
	}
	if got := payout.TotalAmount.String(); got != "91" {
		t.Fatalf("expected total 91, got %s", got)
	}

	if _, err := payout.AddItem("item-2", alloc, testTime()); !errors.Is(err, ErrAllocationClaimed) {
		t.Fatalf("expected allocation claimed on duplicate, got %v", err)
	}
}

func TestAddItemRejectsIneligibleAllocations(t *testing.T) {
	t.Parallel()
	payout := scheduledPayout(t)

	alloc := eligibleAllocation(t)
	alloc.IsEligibleForPayout = false
	if _, err := payout.AddItem("item-1", alloc, testTime()); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected state conflict for ineligible allocation, got %v", err)
	}

	alloc = eligibleAllocation(t)
	alloc.Currency = "EUR"
	if _, err := payout.AddItem("item-1", alloc, testTime()); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected currency mismatch, got %v", err)
	}

	alloc = eligibleAllocation(t)
	alloc.StoreID = "store-other"
	if _, err := payout.AddItem("item-1", alloc, testTime()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for wrong store, got %v", err)
	}
}

func TestPayoutRetryBackoff(t *testing.T) {
	t.Parallel()
	payout := scheduledPayout(t)
	alloc := eligibleAllocation(t)
	now := testTime()
	if _, err := payout.AddItem("item-1", alloc, now); err != nil {
		t.Fatalf("add item: %v", err)
	}

	if err := payout.StartProcessing(now); err != nil {
		t.Fatalf("start processing: %v", err)
	}
	if err := payout.MarkFailed("err-1", "insufficient funds", now); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if payout.NextRetryAt == nil || !payout.NextRetryAt.Equal(now.Add(4*time.Hour)) {
		t.Fatalf("expected first retry in 4h, got %v", payout.NextRetryAt)
	}
	if payout.IsDueForRetry(now) {
		t.Fatalf("should not be due before the backoff elapses")
	}

	later := now.Add(4 * time.Hour)
	if !payout.IsDueForRetry(later) {
		t.Fatalf("should be due once the backoff elapses")
	}
	if err := payout.StartProcessing(later); err != nil {
		t.Fatalf("retry start: %v", err)
	}
	if err := payout.MarkFailed("err-2", "insufficient funds", later); err != nil {
		t.Fatalf("second failure: %v", err)
	}
	if payout.NextRetryAt == nil || !payout.NextRetryAt.Equal(later.Add(16*time.Hour)) {
		t.Fatalf("expected second retry in 16h, got %v", payout.NextRetryAt)
	}

	final := later.Add(16 * time.Hour)
	if err := payout.StartProcessing(final); err != nil {
		t.Fatalf("third start: %v", err)
	}
	if err := payout.MarkFailed("err-3", "insufficient funds", final); err != nil {
		t.Fatalf("third failure: %v", err)
	}
	if payout.NextRetryAt != nil {
		t.Fatalf("expected no further retries, got %v", payout.NextRetryAt)
	}
	if payout.CanRetry() {
		t.Fatalf("retry budget should be exhausted")
	}
}

func TestMarkPaidRequiresReference(t *testing.T) {
	t.Parallel()
	payout := scheduledPayout(t)
	alloc := eligibleAllocation(t)
	now := testTime()
	if _, err := payout.AddItem("item-1", alloc, now); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := payout.StartProcessing(now); err != nil {
		t.Fatalf("start processing: %v", err)
	}
	if err := payout.MarkPaid("", now); !errors.Is(err, ErrProviderReference) {
		t.Fatalf("expected provider reference error, got %v", err)
	}
	if err := payout.MarkPaid("transfer-1", now); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if payout.Status != PayoutStatusPaid {
		t.Fatalf("expected paid, got %s", payout.Status)
	}
}

func TestStartProcessingRequiresItems(t *testing.T) {
	t.Parallel()
	payout := scheduledPayout(t)
	if err := payout.StartProcessing(testTime()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for empty batch, got %v", err)
	}
}
