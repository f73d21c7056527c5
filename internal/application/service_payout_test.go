package application_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/vendora/marketplace-ledger/internal/domain"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

// eligiblePayment creates the standard two-store payment and marks both
// shipments delivered so their allocations are claimable.
func (f *fixture) eligiblePayment(t *testing.T, orderID, key string) domain.EscrowPayment {
	t.Helper()
	ctx := context.Background()
	payment := f.createPayment(t, orderID, key)
	for _, shipmentID := range []string{"ship-1", "ship-2"} {
		if _, err := f.svc.MarkAllocationEligible(ctx, orderID, shipmentID); err != nil {
			t.Fatalf("mark %s eligible: %v", shipmentID, err)
		}
	}
	return payment
}

func TestBuildPayoutBatchesGroupsByStoreAndCurrency(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.eligiblePayment(t, "order-1", "key-1")
	batches, err := f.svc.BuildPayoutBatches(ctx, adminActor(""))
	if err != nil {
		t.Fatalf("build payout batches: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}

	first, second := batches[0], batches[1]
	if first.StoreID != "store-1" || second.StoreID != "store-2" {
		t.Fatalf("batches out of order: %s, %s", first.StoreID, second.StoreID)
	}
	if got := first.TotalAmount.String(); got != "64" {
		t.Fatalf("store-1 batch total = %s, want 64", got)
	}
	if got := second.TotalAmount.String(); got != "27.5" {
		t.Fatalf("store-2 batch total = %s, want 27.5", got)
	}
	if first.Status != domain.PayoutStatusScheduled {
		t.Fatalf("expected scheduled batch, got %s", first.Status)
	}
	if !strings.HasPrefix(first.PayoutNumber, "PAYOUT-store-1-USD-") {
		t.Fatalf("unexpected payout number %q", first.PayoutNumber)
	}
	if len(first.Items) != 1 || len(second.Items) != 1 {
		t.Fatalf("expected one item per batch, got %d and %d", len(first.Items), len(second.Items))
	}
}

func TestBuildPayoutBatchesClaimsAllocationsOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.eligiblePayment(t, "order-1", "key-1")
	if _, err := f.svc.BuildPayoutBatches(ctx, adminActor("")); err != nil {
		t.Fatalf("first build: %v", err)
	}
	again, err := f.svc.BuildPayoutBatches(ctx, adminActor(""))
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second build re-claimed %d batches", len(again))
	}
}

func TestDispatchPayoutPaysAndReleasesEscrow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	payment := f.eligiblePayment(t, "order-1", "key-1")
	batches, err := f.svc.BuildPayoutBatches(ctx, adminActor(""))
	if err != nil {
		t.Fatalf("build payout batches: %v", err)
	}

	paid, err := f.svc.DispatchPayout(ctx, adminActor(""), batches[0].PayoutID)
	if err != nil {
		t.Fatalf("dispatch payout: %v", err)
	}
	if paid.Status != domain.PayoutStatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}
	if !strings.HasPrefix(paid.ProviderReference, "transfer-") {
		t.Fatalf("unexpected provider reference %q", paid.ProviderReference)
	}
	if f.transfers.Calls() != 1 {
		t.Fatalf("provider called %d times, want 1", f.transfers.Calls())
	}

	after, err := f.svc.GetEscrowPayment(ctx, payment.PaymentID)
	if err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	alloc := allocationByShipment(t, after, "ship-1")
	if alloc.Status != domain.AllocationStatusReleased {
		t.Fatalf("allocation status = %s, want released", alloc.Status)
	}
	if after.Status != domain.EscrowStatusPartiallyReleased {
		t.Fatalf("payment status = %s, want partially_released", after.Status)
	}
}

func TestDispatchPayoutFailureSchedulesRetry(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.eligiblePayment(t, "order-1", "key-1")
	batches, err := f.svc.BuildPayoutBatches(ctx, adminActor(""))
	if err != nil {
		t.Fatalf("build payout batches: %v", err)
	}

	f.transfers.Fail = true
	f.transfers.FailMsg = "insufficient provider balance"
	failed, err := f.svc.DispatchPayout(ctx, adminActor(""), batches[0].PayoutID)
	if err != nil {
		t.Fatalf("dispatch returned error instead of failed payout: %v", err)
	}
	if failed.Status != domain.PayoutStatusFailed {
		t.Fatalf("expected failed, got %s", failed.Status)
	}
	if failed.RetryCount != 1 {
		t.Fatalf("retry count = %d, want 1", failed.RetryCount)
	}
	if failed.NextRetryAt == nil {
		t.Fatal("expected a scheduled retry time")
	}
	if failed.FailureReason != "insufficient provider balance" {
		t.Fatalf("failure reason = %q", failed.FailureReason)
	}

	// First retry waits four hours, so an immediate sweep picks up nothing.
	retried, err := f.svc.SweepPayoutRetries(ctx)
	if err != nil {
		t.Fatalf("sweep payout retries: %v", err)
	}
	if retried != 0 {
		t.Fatalf("sweep retried %d payouts before backoff elapsed", retried)
	}
}

func TestSweepPayoutRetriesRedispatchesDueBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.eligiblePayment(t, "order-1", "key-1")
	batches, err := f.svc.BuildPayoutBatches(ctx, adminActor(""))
	if err != nil {
		t.Fatalf("build payout batches: %v", err)
	}

	f.transfers.Fail = true
	if _, err := f.svc.DispatchPayout(ctx, adminActor(""), batches[0].PayoutID); err != nil {
		t.Fatalf("failing dispatch: %v", err)
	}

	// Backdate the retry so the sweep sees the batch as due.
	f.backdateRetry(t, batches[0].PayoutID)

	f.transfers.Fail = false
	dispatched, err := f.svc.SweepPayoutRetries(ctx)
	if err != nil {
		t.Fatalf("sweep payout retries: %v", err)
	}
	if dispatched != 1 {
		t.Fatalf("sweep dispatched %d payouts, want 1", dispatched)
	}

	paid, err := f.svc.GetPayout(ctx, adminActor(""), batches[0].PayoutID)
	if err != nil {
		t.Fatalf("reload payout: %v", err)
	}
	if paid.Status != domain.PayoutStatusPaid {
		t.Fatalf("expected paid after sweep, got %s", paid.Status)
	}

	sent := f.transfers.Batches()
	if len(sent) != 2 {
		t.Fatalf("provider saw %d batches, want 2", len(sent))
	}
	if sent[0].PayoutNumber != sent[1].PayoutNumber {
		t.Fatalf("payout number changed across retries: %q vs %q", sent[0].PayoutNumber, sent[1].PayoutNumber)
	}
}

func (f *fixture) backdateRetry(t *testing.T, payoutID string) {
	t.Helper()
	ctx := context.Background()
	payout, err := f.svc.GetPayout(ctx, adminActor(""), payoutID)
	if err != nil {
		t.Fatalf("reload payout: %v", err)
	}
	due := time.Now().UTC().Add(-time.Minute)
	payout.NextRetryAt = &due
	if err := f.repos.Payouts.Update(ctx, payout); err != nil {
		t.Fatalf("backdate retry: %v", err)
	}
}

func TestExhaustedPayoutReleasesClaims(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.eligiblePayment(t, "order-1", "key-1")
	batches, err := f.svc.BuildPayoutBatches(ctx, adminActor(""))
	if err != nil {
		t.Fatalf("build payout batches: %v", err)
	}

	f.transfers.Fail = true
	for attempt := 1; attempt <= domain.DefaultPayoutMaxRetries; attempt++ {
		if _, err := f.svc.DispatchPayout(ctx, adminActor(""), batches[0].PayoutID); err != nil {
			t.Fatalf("failing dispatch %d: %v", attempt, err)
		}
		if attempt < domain.DefaultPayoutMaxRetries {
			f.backdateRetry(t, batches[0].PayoutID)
		}
	}

	dead, err := f.svc.GetPayout(ctx, adminActor(""), batches[0].PayoutID)
	if err != nil {
		t.Fatalf("reload payout: %v", err)
	}
	if dead.CanRetry() {
		t.Fatal("payout still retryable after exhausting the budget")
	}

	// The dead batch no longer owns its allocations, so a new build
	// picks them up. The store-2 batch was never dispatched and keeps
	// its claim.
	f.transfers.Fail = false
	rebuilt, err := f.svc.BuildPayoutBatches(ctx, adminActor(""))
	if err != nil {
		t.Fatalf("rebuild payout batches: %v", err)
	}
	if len(rebuilt) != 1 {
		t.Fatalf("rebuild produced %d batches, want 1", len(rebuilt))
	}
	if rebuilt[0].StoreID != "store-1" {
		t.Fatalf("rebuilt batch for %s, want store-1", rebuilt[0].StoreID)
	}
	if rebuilt[0].PayoutID == dead.PayoutID {
		t.Fatal("rebuild reused the dead payout")
	}
	if got := rebuilt[0].TotalAmount.String(); got != "64" {
		t.Fatalf("rebuilt batch total = %s, want 64", got)
	}
}

func TestListPayoutsFiltersByStore(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.eligiblePayment(t, "order-1", "key-1")
	if _, err := f.svc.BuildPayoutBatches(ctx, adminActor("")); err != nil {
		t.Fatalf("build payout batches: %v", err)
	}

	out, err := f.svc.ListPayouts(ctx, adminActor(""), ports.PayoutQuery{StoreID: "store-1"})
	if err != nil {
		t.Fatalf("list payouts: %v", err)
	}
	if len(out.Items) != 1 {
		t.Fatalf("expected 1 payout for store-1, got %d", len(out.Items))
	}
	if out.Items[0].StoreID != "store-1" {
		t.Fatalf("wrong store in result: %s", out.Items[0].StoreID)
	}
	if out.Pagination.Total != 1 {
		t.Fatalf("pagination total = %d, want 1", out.Pagination.Total)
	}

	all, err := f.svc.ListPayouts(ctx, adminActor(""), ports.PayoutQuery{})
	if err != nil {
		t.Fatalf("list all payouts: %v", err)
	}
	if all.Pagination.Total != 2 {
		t.Fatalf("total payouts = %d, want 2", all.Pagination.Total)
	}
	if all.Pagination.Limit != 20 {
		t.Fatalf("default limit = %d, want 20", all.Pagination.Limit)
	}
}
