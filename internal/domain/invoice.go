package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BillingDocType string

const (
	BillingDocInvoice    BillingDocType = "commission_invoice"
	BillingDocCreditNote BillingDocType = "credit_note"
)

type BillingDocStatus string

const (
	BillingDocStatusIssued BillingDocStatus = "issued"
	BillingDocStatusVoid   BillingDocStatus = "void"
)

// CommissionInvoice is the legal billing document charging a seller the
// platform commission for a finalized settlement period. A credit note is
// the same document with negative effect, issued against a previously
// invoiced period.
type CommissionInvoice struct {
	InvoiceID        string                  `json:"invoice_id"`
	InvoiceNumber    string                  `json:"invoice_number"`
	DocType          BillingDocType          `json:"doc_type"`
	SettlementID     string                  `json:"settlement_id"`
	SettlementNumber string                  `json:"settlement_number"`
	StoreID          string                  `json:"store_id"`
	PeriodYear       int                     `json:"period_year"`
	PeriodMonth      int                     `json:"period_month"`
	Currency         string                  `json:"currency"`
	NetAmount        decimal.Decimal         `json:"net_amount"`
	Lines            []CommissionInvoiceLine `json:"lines"`
	Status           BillingDocStatus        `json:"status"`
	IssuedAt         time.Time               `json:"issued_at"`
	VoidedAt         *time.Time              `json:"voided_at,omitempty"`
}

type CommissionInvoiceLine struct {
	LineID      string          `json:"line_id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// NewCommissionInvoice derives the commission charge document from a
// settlement that has left Draft. The commission line carries the
// period's recomputed TotalCommission.
func NewCommissionInvoice(invoiceID string, s *Settlement, lineID string, now time.Time) (CommissionInvoice, error) {
	if strings.TrimSpace(invoiceID) == "" || s == nil {
		return CommissionInvoice{}, ErrInvalidInput
	}
	if s.Status == SettlementStatusDraft {
		return CommissionInvoice{}, stateConflict("settlement", string(s.Status), string(SettlementStatusFinalized))
	}
	if !s.TotalCommission.IsPositive() {
		return CommissionInvoice{}, ErrInvalidInput
	}
	return CommissionInvoice{
		InvoiceID:        invoiceID,
		InvoiceNumber:    fmt.Sprintf("INV-%s", s.SettlementNumber),
		DocType:          BillingDocInvoice,
		SettlementID:     s.SettlementID,
		SettlementNumber: s.SettlementNumber,
		StoreID:          s.StoreID,
		PeriodYear:       s.Year,
		PeriodMonth:      s.Month,
		Currency:         s.Currency,
		NetAmount:        s.TotalCommission,
		Lines: []CommissionInvoiceLine{{
			LineID:      lineID,
			Description: fmt.Sprintf("Platform commission %04d-%02d", s.Year, s.Month),
			Amount:      s.TotalCommission,
		}},
		Status:   BillingDocStatusIssued,
		IssuedAt: now,
	}, nil
}

// NewCreditNote issues a correction against a previously invoiced
// settlement period. amount is the positive commission value given back.
func NewCreditNote(invoiceID string, s *Settlement, lineID string, amount decimal.Decimal, reason string, sequence int, now time.Time) (CommissionInvoice, error) {
	if strings.TrimSpace(invoiceID) == "" || s == nil || strings.TrimSpace(reason) == "" {
		return CommissionInvoice{}, ErrInvalidInput
	}
	if s.Status == SettlementStatusDraft {
		return CommissionInvoice{}, stateConflict("settlement", string(s.Status), string(SettlementStatusFinalized))
	}
	if !amount.IsPositive() || sequence < 1 {
		return CommissionInvoice{}, ErrInvalidInput
	}
	if exceedsWithTolerance(amount, s.TotalCommission) {
		return CommissionInvoice{}, ErrReconciliation
	}
	return CommissionInvoice{
		InvoiceID:        invoiceID,
		InvoiceNumber:    fmt.Sprintf("CN-%s-%d", s.SettlementNumber, sequence),
		DocType:          BillingDocCreditNote,
		SettlementID:     s.SettlementID,
		SettlementNumber: s.SettlementNumber,
		StoreID:          s.StoreID,
		PeriodYear:       s.Year,
		PeriodMonth:      s.Month,
		Currency:         s.Currency,
		NetAmount:        amount.Neg(),
		Lines: []CommissionInvoiceLine{{
			LineID:      lineID,
			Description: reason,
			Amount:      amount.Neg(),
		}},
		Status:   BillingDocStatusIssued,
		IssuedAt: now,
	}, nil
}
