package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vendora/marketplace-ledger/internal/application"
	"github.com/vendora/marketplace-ledger/internal/domain"
)

func currentPeriod() (int, int) {
	now := time.Now().UTC()
	return now.Year(), int(now.Month())
}

func (f *fixture) generateSettlement(t *testing.T, storeID string) domain.Settlement {
	t.Helper()
	year, month := currentPeriod()
	settlement, err := f.svc.GenerateSettlement(context.Background(), adminActor(""), application.SettlementPeriodInput{
		StoreID: storeID,
		Year:    year,
		Month:   month,
	})
	if err != nil {
		t.Fatalf("generate settlement: %v", err)
	}
	return settlement
}

func TestGenerateSettlementBuildsDraftFromAllocations(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.createPayment(t, "order-1", "key-1")
	settlement := f.generateSettlement(t, "store-1")

	if settlement.Status != domain.SettlementStatusDraft {
		t.Fatalf("expected draft, got %s", settlement.Status)
	}
	if settlement.Version != 1 {
		t.Fatalf("version = %d, want 1", settlement.Version)
	}
	if len(settlement.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(settlement.Items))
	}
	if got := settlement.GrossSales.String(); got != "60" {
		t.Fatalf("gross sales = %s, want 60", got)
	}
	if got := settlement.TotalCommission.String(); got != "6" {
		t.Fatalf("total commission = %s, want 6", got)
	}
	if got := settlement.NetPayable.String(); got != "64" {
		t.Fatalf("net payable = %s, want 64", got)
	}
	if !strings.HasPrefix(settlement.SettlementNumber, "STL-store-1-") {
		t.Fatalf("unexpected settlement number %q", settlement.SettlementNumber)
	}
}

func TestGenerateSettlementRejectsExistingPeriod(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.createPayment(t, "order-1", "key-1")
	f.generateSettlement(t, "store-1")

	year, month := currentPeriod()
	_, err := f.svc.GenerateSettlement(ctx, adminActor(""), application.SettlementPeriodInput{
		StoreID: "store-1",
		Year:    year,
		Month:   month,
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegenerateSettlementBumpsVersion(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	payment := f.createPayment(t, "order-1", "key-1")
	first := f.generateSettlement(t, "store-1")

	// A refund lands after version 1 was cut.
	if _, err := f.svc.ApplyPartialRefund(ctx, adminActor(""), application.PartialRefundInput{
		PaymentID:  payment.PaymentID,
		ShipmentID: "ship-1",
		Amount:     dec("30"),
		Reference:  "ref-1",
	}); err != nil {
		t.Fatalf("partial refund: %v", err)
	}

	year, month := currentPeriod()
	_, err := f.svc.RegenerateSettlement(ctx, adminActor(""), application.RegenerateSettlementInput{
		StoreID:         "store-1",
		Year:            year,
		Month:           month,
		ExpectedVersion: 7,
	})
	if !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	second, err := f.svc.RegenerateSettlement(ctx, adminActor(""), application.RegenerateSettlementInput{
		StoreID:         "store-1",
		Year:            year,
		Month:           month,
		ExpectedVersion: first.Version,
	})
	if err != nil {
		t.Fatalf("regenerate settlement: %v", err)
	}
	if second.Version != first.Version+1 {
		t.Fatalf("version = %d, want %d", second.Version, first.Version+1)
	}
	// Gross 60 plus shipping 10, minus remaining commission 3 and the
	// 30 refund.
	if got := second.NetPayable.String(); got != "37" {
		t.Fatalf("net payable = %s, want 37", got)
	}
	if got := second.TotalRefunds.String(); got != "30" {
		t.Fatalf("total refunds = %s, want 30", got)
	}

	head, err := f.svc.GetSettlementHead(ctx, adminActor(""), "store-1", year, month)
	if err != nil {
		t.Fatalf("get head: %v", err)
	}
	if head.SettlementID != second.SettlementID {
		t.Fatalf("head is %s, want %s", head.SettlementID, second.SettlementID)
	}
}

func TestAddSettlementAdjustmentRecomputesTotals(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.createPayment(t, "order-1", "key-1")
	settlement := f.generateSettlement(t, "store-1")

	year, month := currentPeriod()
	adjusted, err := f.svc.AddSettlementAdjustment(ctx, adminActor(""), application.AddAdjustmentInput{
		SettlementID: settlement.SettlementID,
		Amount:       dec("-5"),
		Reason:       "chargeback correction",
		SourceYear:   year,
		SourceMonth:  month,
	})
	if err != nil {
		t.Fatalf("add adjustment: %v", err)
	}
	if got := adjusted.TotalAdjustments.String(); got != "-5" {
		t.Fatalf("total adjustments = %s, want -5", got)
	}
	if got := adjusted.NetPayable.String(); got != "59" {
		t.Fatalf("net payable = %s, want 59", got)
	}
}

func TestSettlementLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.createPayment(t, "order-1", "key-1")
	settlement := f.generateSettlement(t, "store-1")

	// Approval is only reachable through finalize.
	if _, err := f.svc.ApproveSettlement(ctx, adminActor(""), settlement.SettlementID, "finance-lead"); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict approving a draft, got %v", err)
	}

	finalized, err := f.svc.FinalizeSettlement(ctx, adminActor(""), settlement.SettlementID)
	if err != nil {
		t.Fatalf("finalize settlement: %v", err)
	}
	if finalized.Status != domain.SettlementStatusFinalized {
		t.Fatalf("expected finalized, got %s", finalized.Status)
	}

	year, month := currentPeriod()
	if _, err := f.svc.AddSettlementAdjustment(ctx, adminActor(""), application.AddAdjustmentInput{
		SettlementID: settlement.SettlementID,
		Amount:       dec("1"),
		Reason:       "late fee",
		SourceYear:   year,
		SourceMonth:  month,
	}); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict adjusting a finalized settlement, got %v", err)
	}

	approved, err := f.svc.ApproveSettlement(ctx, adminActor(""), settlement.SettlementID, "finance-lead")
	if err != nil {
		t.Fatalf("approve settlement: %v", err)
	}
	if approved.ApprovedBy != "finance-lead" {
		t.Fatalf("approved by = %q", approved.ApprovedBy)
	}

	exported, err := f.svc.ExportSettlement(ctx, adminActor(""), settlement.SettlementID)
	if err != nil {
		t.Fatalf("export settlement: %v", err)
	}
	if exported.Status != domain.SettlementStatusExported {
		t.Fatalf("expected exported, got %s", exported.Status)
	}

	// Re-export is a no-op, not an error.
	again, err := f.svc.ExportSettlement(ctx, adminActor(""), settlement.SettlementID)
	if err != nil {
		t.Fatalf("re-export settlement: %v", err)
	}
	if !again.ExportedAt.Equal(*exported.ExportedAt) {
		t.Fatalf("re-export moved exported_at: %v vs %v", again.ExportedAt, exported.ExportedAt)
	}
}

func TestGenerateSettlementRequiresAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	year, month := currentPeriod()
	_, err := f.svc.GenerateSettlement(context.Background(), userActor(""), application.SettlementPeriodInput{
		StoreID: "store-1",
		Year:    year,
		Month:   month,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
