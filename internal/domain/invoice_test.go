package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func finalizedSettlement(t *testing.T) Settlement {
	t.Helper()
	settlement := draftSettlement(t)
	if err := settlement.AddItem(SettlementItem{
		ItemID:           "item-1",
		AllocationID:     "alloc-1",
		GrossAmount:      decimal.NewFromInt(200),
		CommissionAmount: decimal.NewFromInt(20),
	}, testTime()); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if err := settlement.Finalize(testTime()); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return settlement
}

func TestNewCommissionInvoice(t *testing.T) {
	t.Parallel()
	settlement := finalizedSettlement(t)

	invoice, err := NewCommissionInvoice("inv-1", &settlement, "line-1", testTime())
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	if invoice.InvoiceNumber != "INV-"+settlement.SettlementNumber {
		t.Fatalf("unexpected invoice number %s", invoice.InvoiceNumber)
	}
	if got := invoice.NetAmount.String(); got != "20" {
		t.Fatalf("expected net amount 20, got %s", got)
	}
	if invoice.DocType != BillingDocInvoice || invoice.Status != BillingDocStatusIssued {
		t.Fatalf("unexpected doc type %s status %s", invoice.DocType, invoice.Status)
	}
}

func TestNewCommissionInvoiceRejectsDraft(t *testing.T) {
	t.Parallel()
	settlement := draftSettlement(t)
	if _, err := NewCommissionInvoice("inv-1", &settlement, "line-1", testTime()); !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected state conflict for draft settlement, got %v", err)
	}
}

func TestNewCreditNote(t *testing.T) {
	t.Parallel()
	settlement := finalizedSettlement(t)

	note, err := NewCreditNote("cn-1", &settlement, "line-1", decimal.NewFromInt(5), "february over-charge corrected", 2, testTime())
	if err != nil {
		t.Fatalf("new credit note: %v", err)
	}
	if note.InvoiceNumber != "CN-"+settlement.SettlementNumber+"-2" {
		t.Fatalf("unexpected credit note number %s", note.InvoiceNumber)
	}
	if got := note.NetAmount.String(); got != "-5" {
		t.Fatalf("expected net amount -5, got %s", got)
	}

	if _, err := NewCreditNote("cn-2", &settlement, "line-1", decimal.NewFromInt(21), "too much", 3, testTime()); !errors.Is(err, ErrReconciliation) {
		t.Fatalf("credit above total commission should fail, got %v", err)
	}
	if _, err := NewCreditNote("cn-3", &settlement, "line-1", decimal.NewFromInt(5), "", 1, testTime()); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("credit note without reason should fail, got %v", err)
	}
}
