package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
)

// IssueCommissionInvoice issues the commission charge document for a
// finalized settlement. One invoice per settlement; a second issue
// attempt is a conflict.
func (s *Service) IssueCommissionInvoice(ctx context.Context, actor Actor, settlementID string) (domain.CommissionInvoice, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.CommissionInvoice{}, err
	}
	if actor.Role != "admin" && actor.Role != "system" {
		return domain.CommissionInvoice{}, domain.ErrForbidden
	}
	settlement, err := s.settlements.GetByID(ctx, settlementID)
	if err != nil {
		return domain.CommissionInvoice{}, err
	}
	existing, err := s.invoices.ListBySettlement(ctx, settlementID)
	if err != nil {
		return domain.CommissionInvoice{}, err
	}
	for _, doc := range existing {
		if doc.DocType == domain.BillingDocInvoice && doc.Status == domain.BillingDocStatusIssued {
			return domain.CommissionInvoice{}, domain.ErrConflict
		}
	}
	now := s.nowFn()
	invoice, err := domain.NewCommissionInvoice(uuid.NewString(), &settlement, uuid.NewString(), now)
	if err != nil {
		return domain.CommissionInvoice{}, err
	}
	if err := s.invoices.Create(ctx, invoice); err != nil {
		return domain.CommissionInvoice{}, err
	}
	if err := s.enqueueInvoiceIssued(ctx, invoice, actor.RequestID, now); err != nil {
		return domain.CommissionInvoice{}, err
	}
	return invoice, nil
}

// IssueCreditNote gives commission back to the seller against an already
// invoiced settlement period. The credit note sequence continues per
// settlement, and accumulated credits never exceed the invoiced
// commission.
func (s *Service) IssueCreditNote(ctx context.Context, actor Actor, settlementID string, amount decimal.Decimal, reason string) (domain.CommissionInvoice, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.CommissionInvoice{}, err
	}
	if actor.Role != "admin" && actor.Role != "system" {
		return domain.CommissionInvoice{}, domain.ErrForbidden
	}
	settlement, err := s.settlements.GetByID(ctx, settlementID)
	if err != nil {
		return domain.CommissionInvoice{}, err
	}
	existing, err := s.invoices.ListBySettlement(ctx, settlementID)
	if err != nil {
		return domain.CommissionInvoice{}, err
	}
	invoiced := false
	sequence := 1
	credited := decimal.Zero
	for _, doc := range existing {
		if doc.Status != domain.BillingDocStatusIssued {
			continue
		}
		switch doc.DocType {
		case domain.BillingDocInvoice:
			invoiced = true
		case domain.BillingDocCreditNote:
			sequence++
			credited = credited.Add(doc.NetAmount.Neg())
		}
	}
	if !invoiced {
		return domain.CommissionInvoice{}, &domain.StateConflictError{
			Entity:   "settlement",
			Current:  "not invoiced",
			Required: "commission invoice issued",
		}
	}
	if credited.Add(amount).Sub(settlement.TotalCommission).Cmp(domain.CentTolerance) > 0 {
		return domain.CommissionInvoice{}, domain.ErrReconciliation
	}
	now := s.nowFn()
	note, err := domain.NewCreditNote(uuid.NewString(), &settlement, uuid.NewString(), amount, reason, sequence, now)
	if err != nil {
		return domain.CommissionInvoice{}, err
	}
	if err := s.invoices.Create(ctx, note); err != nil {
		return domain.CommissionInvoice{}, err
	}
	if err := s.enqueueInvoiceIssued(ctx, note, actor.RequestID, now); err != nil {
		return domain.CommissionInvoice{}, err
	}
	return note, nil
}

func (s *Service) GetInvoice(ctx context.Context, actor Actor, invoiceID string) (domain.CommissionInvoice, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.CommissionInvoice{}, err
	}
	return s.invoices.GetByID(ctx, invoiceID)
}

func (s *Service) ListSettlementInvoices(ctx context.Context, actor Actor, settlementID string) ([]domain.CommissionInvoice, error) {
	if err := s.requireActor(actor); err != nil {
		return nil, err
	}
	return s.invoices.ListBySettlement(ctx, settlementID)
}

func (s *Service) enqueueInvoiceIssued(ctx context.Context, invoice domain.CommissionInvoice, traceID string, now time.Time) error {
	return s.enqueueDomainEvent(ctx, domain.EventInvoiceIssued, invoice.InvoiceID, contracts.InvoiceIssuedPayload{
		InvoiceID:     invoice.InvoiceID,
		InvoiceNumber: invoice.InvoiceNumber,
		DocType:       string(invoice.DocType),
		SettlementID:  invoice.SettlementID,
		StoreID:       invoice.StoreID,
		NetAmount:     invoice.NetAmount.StringFixed(2),
		IssuedAt:      now.Format(time.RFC3339),
	}, traceID)
}
