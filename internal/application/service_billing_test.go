package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vendora/marketplace-ledger/internal/domain"
)

func (f *fixture) finalizedSettlement(t *testing.T, storeID string) domain.Settlement {
	t.Helper()
	settlement := f.generateSettlement(t, storeID)
	finalized, err := f.svc.FinalizeSettlement(context.Background(), adminActor(""), settlement.SettlementID)
	if err != nil {
		t.Fatalf("finalize settlement: %v", err)
	}
	return finalized
}

func TestIssueCommissionInvoiceOncePerSettlement(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.createPayment(t, "order-1", "key-1")
	settlement := f.finalizedSettlement(t, "store-1")

	invoice, err := f.svc.IssueCommissionInvoice(ctx, adminActor(""), settlement.SettlementID)
	if err != nil {
		t.Fatalf("issue invoice: %v", err)
	}
	if invoice.DocType != domain.BillingDocInvoice {
		t.Fatalf("doc type = %s", invoice.DocType)
	}
	if got := invoice.NetAmount.String(); got != "6" {
		t.Fatalf("invoice net amount = %s, want 6", got)
	}
	if invoice.InvoiceNumber != "INV-"+settlement.SettlementNumber {
		t.Fatalf("invoice number = %q", invoice.InvoiceNumber)
	}

	if _, err := f.svc.IssueCommissionInvoice(ctx, adminActor(""), settlement.SettlementID); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict on second invoice, got %v", err)
	}
}

func TestIssueCommissionInvoiceRejectsDraft(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.createPayment(t, "order-1", "key-1")
	draft := f.generateSettlement(t, "store-2")

	if _, err := f.svc.IssueCommissionInvoice(ctx, adminActor(""), draft.SettlementID); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict for draft settlement, got %v", err)
	}
}

func TestIssueCreditNoteSequencesAndCaps(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.createPayment(t, "order-1", "key-1")
	settlement := f.finalizedSettlement(t, "store-1")

	// Credit notes require the commission to have been invoiced first.
	if _, err := f.svc.IssueCreditNote(ctx, adminActor(""), settlement.SettlementID, dec("1"), "goodwill"); !errors.Is(err, domain.ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict before invoicing, got %v", err)
	}

	if _, err := f.svc.IssueCommissionInvoice(ctx, adminActor(""), settlement.SettlementID); err != nil {
		t.Fatalf("issue invoice: %v", err)
	}

	first, err := f.svc.IssueCreditNote(ctx, adminActor(""), settlement.SettlementID, dec("4"), "rate correction")
	if err != nil {
		t.Fatalf("first credit note: %v", err)
	}
	if first.DocType != domain.BillingDocCreditNote {
		t.Fatalf("doc type = %s", first.DocType)
	}
	if got := first.NetAmount.String(); got != "-4" {
		t.Fatalf("credit note net amount = %s, want -4", got)
	}
	if !strings.HasSuffix(first.InvoiceNumber, "-1") {
		t.Fatalf("first credit note number %q, want -1 suffix", first.InvoiceNumber)
	}

	// 4 already credited against 6 of commission; 3 more would overshoot.
	if _, err := f.svc.IssueCreditNote(ctx, adminActor(""), settlement.SettlementID, dec("3"), "rate correction"); !errors.Is(err, domain.ErrReconciliation) {
		t.Fatalf("expected ErrReconciliation, got %v", err)
	}

	second, err := f.svc.IssueCreditNote(ctx, adminActor(""), settlement.SettlementID, dec("2"), "goodwill")
	if err != nil {
		t.Fatalf("second credit note: %v", err)
	}
	if !strings.HasSuffix(second.InvoiceNumber, "-2") {
		t.Fatalf("second credit note number %q, want -2 suffix", second.InvoiceNumber)
	}

	docs, err := f.svc.ListSettlementInvoices(ctx, adminActor(""), settlement.SettlementID)
	if err != nil {
		t.Fatalf("list settlement invoices: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 billing documents, got %d", len(docs))
	}
}

func TestIssueCreditNoteRequiresAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.createPayment(t, "order-1", "key-1")
	settlement := f.finalizedSettlement(t, "store-1")

	if _, err := f.svc.IssueCreditNote(ctx, userActor(""), settlement.SettlementID, dec("1"), "goodwill"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}
