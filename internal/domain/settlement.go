package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type SettlementStatus string

const (
	SettlementStatusDraft     SettlementStatus = "draft"
	SettlementStatusFinalized SettlementStatus = "finalized"
	SettlementStatusApproved  SettlementStatus = "approved"
	SettlementStatusExported  SettlementStatus = "exported"
)

// Settlement is the monthly, versioned aggregation of all allocation
// activity for one seller. The six totals are always recomputed from the
// current item and adjustment collections; they are never mutated
// independently, so incremental drift is impossible.
type Settlement struct {
	SettlementID     string                 `json:"settlement_id"`
	SettlementNumber string                 `json:"settlement_number"`
	StoreID          string                 `json:"store_id"`
	Year             int                    `json:"year"`
	Month            int                    `json:"month"`
	Version          int                    `json:"version"`
	Currency         string                 `json:"currency"`
	GrossSales       decimal.Decimal        `json:"gross_sales"`
	TotalShipping    decimal.Decimal        `json:"total_shipping"`
	TotalCommission  decimal.Decimal        `json:"total_commission"`
	TotalRefunds     decimal.Decimal        `json:"total_refunds"`
	TotalAdjustments decimal.Decimal        `json:"total_adjustments"`
	NetPayable       decimal.Decimal        `json:"net_payable"`
	Status           SettlementStatus       `json:"status"`
	ApprovedBy       string                 `json:"approved_by,omitempty"`
	FinalizedAt      *time.Time             `json:"finalized_at,omitempty"`
	ApprovedAt       *time.Time             `json:"approved_at,omitempty"`
	ExportedAt       *time.Time             `json:"exported_at,omitempty"`
	Items            []SettlementItem       `json:"items"`
	Adjustments      []SettlementAdjustment `json:"adjustments"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// SettlementItem carries one allocation's contribution to the period.
type SettlementItem struct {
	ItemID           string          `json:"item_id"`
	SettlementID     string          `json:"settlement_id"`
	AllocationID     string          `json:"allocation_id"`
	OrderID          string          `json:"order_id"`
	ShipmentID       string          `json:"shipment_id"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	ShippingAmount   decimal.Decimal `json:"shipping_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	RefundedAmount   decimal.Decimal `json:"refunded_amount"`
	CreatedAt        time.Time       `json:"created_at"`
}

// SettlementAdjustment is a correction attributable to a prior period.
type SettlementAdjustment struct {
	AdjustmentID string          `json:"adjustment_id"`
	SettlementID string          `json:"settlement_id"`
	Amount       decimal.Decimal `json:"amount"`
	Reason       string          `json:"reason"`
	SourceYear   int             `json:"source_year,omitempty"`
	SourceMonth  int             `json:"source_month,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

func NewSettlement(settlementID, storeID string, year, month, version int, currency string, now time.Time) (Settlement, error) {
	if strings.TrimSpace(settlementID) == "" || strings.TrimSpace(storeID) == "" {
		return Settlement{}, ErrInvalidInput
	}
	if year < 2000 || year > 2200 || month < 1 || month > 12 || version < 1 {
		return Settlement{}, ErrInvalidInput
	}
	currency = normalizeCurrency(currency)
	if !ValidCurrency(currency) {
		return Settlement{}, ErrInvalidInput
	}
	s := Settlement{
		SettlementID:     settlementID,
		SettlementNumber: SettlementNumber(storeID, year, month, version),
		StoreID:          storeID,
		Year:             year,
		Month:            month,
		Version:          version,
		Currency:         currency,
		Status:           SettlementStatusDraft,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.recomputeTotals(now)
	return s, nil
}

// SettlementNumber is deterministic in the settlement identity, so
// regenerating the same draft reuses the same identifier.
func SettlementNumber(storeID string, year, month, version int) string {
	return fmt.Sprintf("STL-%s-%04d%02d-V%d", storeID, year, month, version)
}

// AddItem appends one allocation's contribution. Draft only; one item per
// allocation.
func (s *Settlement) AddItem(item SettlementItem, now time.Time) error {
	if s.Status != SettlementStatusDraft {
		return stateConflict("settlement", string(s.Status), string(SettlementStatusDraft))
	}
	if strings.TrimSpace(item.ItemID) == "" || strings.TrimSpace(item.AllocationID) == "" {
		return ErrInvalidInput
	}
	for i := range s.Items {
		if s.Items[i].AllocationID == item.AllocationID {
			return ErrConflict
		}
	}
	item.SettlementID = s.SettlementID
	item.CreatedAt = now
	s.Items = append(s.Items, item)
	s.recomputeTotals(now)
	return nil
}

func (s *Settlement) AddAdjustment(adj SettlementAdjustment, now time.Time) error {
	if s.Status != SettlementStatusDraft {
		return stateConflict("settlement", string(s.Status), string(SettlementStatusDraft))
	}
	if strings.TrimSpace(adj.AdjustmentID) == "" || strings.TrimSpace(adj.Reason) == "" {
		return ErrInvalidInput
	}
	if adj.Amount.IsZero() {
		return ErrInvalidInput
	}
	adj.SettlementID = s.SettlementID
	adj.CreatedAt = now
	s.Adjustments = append(s.Adjustments, adj)
	s.recomputeTotals(now)
	return nil
}

// ClearItems empties the item collection for regeneration. Draft only.
func (s *Settlement) ClearItems(now time.Time) error {
	if s.Status != SettlementStatusDraft {
		return stateConflict("settlement", string(s.Status), string(SettlementStatusDraft))
	}
	s.Items = nil
	s.recomputeTotals(now)
	return nil
}

func (s *Settlement) ClearAdjustments(now time.Time) error {
	if s.Status != SettlementStatusDraft {
		return stateConflict("settlement", string(s.Status), string(SettlementStatusDraft))
	}
	s.Adjustments = nil
	s.recomputeTotals(now)
	return nil
}

// recomputeTotals rebuilds every aggregate from the collections.
// NetPayable = GrossSales + TotalShipping - TotalCommission -
// TotalRefunds + TotalAdjustments.
func (s *Settlement) recomputeTotals(now time.Time) {
	gross, shipping, commission, refunds, adjustments := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for i := range s.Items {
		gross = gross.Add(s.Items[i].GrossAmount)
		shipping = shipping.Add(s.Items[i].ShippingAmount)
		commission = commission.Add(s.Items[i].CommissionAmount)
		refunds = refunds.Add(s.Items[i].RefundedAmount)
	}
	for i := range s.Adjustments {
		adjustments = adjustments.Add(s.Adjustments[i].Amount)
	}
	s.GrossSales = gross
	s.TotalShipping = shipping
	s.TotalCommission = commission
	s.TotalRefunds = refunds
	s.TotalAdjustments = adjustments
	s.NetPayable = gross.Add(shipping).Sub(commission).Sub(refunds).Add(adjustments)
	s.UpdatedAt = now
}

func (s *Settlement) Finalize(now time.Time) error {
	if s.Status != SettlementStatusDraft {
		return stateConflict("settlement", string(s.Status), string(SettlementStatusDraft))
	}
	s.Status = SettlementStatusFinalized
	s.FinalizedAt = &now
	s.UpdatedAt = now
	return nil
}

func (s *Settlement) Approve(approvedBy string, now time.Time) error {
	if s.Status != SettlementStatusFinalized {
		return stateConflict("settlement", string(s.Status), string(SettlementStatusFinalized))
	}
	if strings.TrimSpace(approvedBy) == "" {
		return ErrInvalidInput
	}
	s.Status = SettlementStatusApproved
	s.ApprovedBy = approvedBy
	s.ApprovedAt = &now
	s.UpdatedAt = now
	return nil
}

// MarkExported is the terminal, idempotent marker: exporting an already
// exported settlement is a no-op.
func (s *Settlement) MarkExported(now time.Time) error {
	if s.Status == SettlementStatusExported {
		return nil
	}
	if s.Status != SettlementStatusApproved {
		return stateConflict("settlement", string(s.Status), string(SettlementStatusApproved))
	}
	s.Status = SettlementStatusExported
	s.ExportedAt = &now
	s.UpdatedAt = now
	return nil
}
