package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type EscrowStatus string

const (
	EscrowStatusHeld              EscrowStatus = "held"
	EscrowStatusPartiallyReleased EscrowStatus = "partially_released"
	EscrowStatusReleased          EscrowStatus = "released"
	EscrowStatusRefunded          EscrowStatus = "refunded"
)

type AllocationStatus string

const (
	AllocationStatusHeld     AllocationStatus = "held"
	AllocationStatusReleased AllocationStatus = "released"
	AllocationStatusRefunded AllocationStatus = "refunded"
)

// EscrowPayment holds one buyer's confirmed order payment and splits it
// into per-shipment allocations. ReleasedAmount and RefundedAmount are
// cumulative and never exceed TotalAmount; Status is derived from the
// allocation statuses after every mutation.
type EscrowPayment struct {
	PaymentID      string             `json:"payment_id"`
	OrderID        string             `json:"order_id"`
	BuyerID        string             `json:"buyer_id"`
	Currency       string             `json:"currency"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	ReleasedAmount decimal.Decimal    `json:"released_amount"`
	RefundedAmount decimal.Decimal    `json:"refunded_amount"`
	Status         EscrowStatus       `json:"status"`
	Allocations    []EscrowAllocation `json:"allocations"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// EscrowAllocation is one seller's share of an escrow payment, tied to a
// single shipment. CommissionRate is snapshotted at creation and never
// changes afterwards. Once Released or fully Refunded the allocation is
// terminal.
type EscrowAllocation struct {
	AllocationID             string          `json:"allocation_id"`
	PaymentID                string          `json:"payment_id"`
	OrderID                  string          `json:"order_id"`
	StoreID                  string          `json:"store_id"`
	ShipmentID               string          `json:"shipment_id"`
	Currency                 string          `json:"currency"`
	SellerAmount             decimal.Decimal `json:"seller_amount"`
	ShippingAmount           decimal.Decimal `json:"shipping_amount"`
	CommissionRate           decimal.Decimal `json:"commission_rate"`
	CommissionAmount         decimal.Decimal `json:"commission_amount"`
	SellerPayout             decimal.Decimal `json:"seller_payout"`
	RefundedAmount           decimal.Decimal `json:"refunded_amount"`
	RefundedSellerAmount     decimal.Decimal `json:"refunded_seller_amount"`
	RefundedCommissionAmount decimal.Decimal `json:"refunded_commission_amount"`
	Status                   AllocationStatus `json:"status"`
	IsEligibleForPayout      bool            `json:"is_eligible_for_payout"`
	PayoutReference          string          `json:"payout_reference,omitempty"`
	RefundReference          string          `json:"refund_reference,omitempty"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

func NewEscrowPayment(paymentID, orderID, buyerID string, total decimal.Decimal, currency string, now time.Time) (EscrowPayment, error) {
	if strings.TrimSpace(paymentID) == "" || strings.TrimSpace(orderID) == "" || strings.TrimSpace(buyerID) == "" {
		return EscrowPayment{}, ErrInvalidInput
	}
	currency = normalizeCurrency(currency)
	if !ValidCurrency(currency) {
		return EscrowPayment{}, ErrInvalidInput
	}
	if !total.IsPositive() {
		return EscrowPayment{}, ErrInvalidInput
	}
	return EscrowPayment{
		PaymentID:      paymentID,
		OrderID:        orderID,
		BuyerID:        buyerID,
		Currency:       currency,
		TotalAmount:    total,
		ReleasedAmount: decimal.Zero,
		RefundedAmount: decimal.Zero,
		Status:         EscrowStatusHeld,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// AddAllocation appends one seller shipment's share. The payment must
// still be fully Held, the shipment must not already carry an allocation,
// and the allocated gross across all allocations must not exceed the
// payment total.
func (p *EscrowPayment) AddAllocation(allocationID, storeID, shipmentID string, sellerAmount, shippingAmount, commissionAmount, commissionRate decimal.Decimal, now time.Time) (*EscrowAllocation, error) {
	if p.Status != EscrowStatusHeld {
		return nil, stateConflict("escrow payment", string(p.Status), string(EscrowStatusHeld))
	}
	if strings.TrimSpace(allocationID) == "" || strings.TrimSpace(storeID) == "" || strings.TrimSpace(shipmentID) == "" {
		return nil, ErrInvalidInput
	}
	if !sellerAmount.IsPositive() || shippingAmount.IsNegative() || commissionAmount.IsNegative() {
		return nil, ErrInvalidInput
	}
	if commissionRate.IsNegative() || commissionRate.Cmp(hundred) > 0 {
		return nil, ErrInvalidInput
	}
	if commissionAmount.Cmp(sellerAmount) > 0 {
		return nil, ErrInvalidInput
	}
	for i := range p.Allocations {
		if p.Allocations[i].ShipmentID == shipmentID {
			return nil, ErrConflict
		}
	}
	allocated := sellerAmount.Add(shippingAmount)
	for i := range p.Allocations {
		allocated = allocated.Add(p.Allocations[i].GrossAmount())
	}
	if exceedsWithTolerance(allocated, p.TotalAmount) {
		return nil, ErrReconciliation
	}
	alloc := EscrowAllocation{
		AllocationID:     allocationID,
		PaymentID:        p.PaymentID,
		OrderID:          p.OrderID,
		StoreID:          storeID,
		ShipmentID:       shipmentID,
		Currency:         p.Currency,
		SellerAmount:     sellerAmount,
		ShippingAmount:   shippingAmount,
		CommissionRate:   commissionRate,
		CommissionAmount: commissionAmount,
		SellerPayout:     sellerAmount.Sub(commissionAmount).Add(shippingAmount),
		Status:           AllocationStatusHeld,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	p.Allocations = append(p.Allocations, alloc)
	p.UpdatedAt = now
	return &p.Allocations[len(p.Allocations)-1], nil
}

// ReleaseAllocation transitions one allocation Held -> Released and books
// its remaining gross into the payment's released total.
func (p *EscrowPayment) ReleaseAllocation(shipmentID, payoutReference string, now time.Time) (*EscrowAllocation, error) {
	if p.Status == EscrowStatusRefunded {
		return nil, stateConflict("escrow payment", string(p.Status), "not refunded")
	}
	alloc := p.allocationByShipment(shipmentID)
	if alloc == nil {
		return nil, ErrNotFound
	}
	if alloc.Status != AllocationStatusHeld {
		return nil, stateConflict("escrow allocation", string(alloc.Status), string(AllocationStatusHeld))
	}
	alloc.Status = AllocationStatusReleased
	alloc.PayoutReference = payoutReference
	alloc.UpdatedAt = now
	p.ReleasedAmount = p.ReleasedAmount.Add(alloc.RemainingGross())
	p.recomputeStatus(now)
	return alloc, nil
}

// RefundAllocation refunds whatever remains of one allocation.
func (p *EscrowPayment) RefundAllocation(shipmentID, reference string, now time.Time) (*EscrowAllocation, error) {
	alloc := p.allocationByShipment(shipmentID)
	if alloc == nil {
		return nil, ErrNotFound
	}
	if alloc.Status != AllocationStatusHeld {
		return nil, stateConflict("escrow allocation", string(alloc.Status), string(AllocationStatusHeld))
	}
	amount := alloc.RemainingGross()
	if err := p.ApplyPartialRefund(shipmentID, amount, reference, now); err != nil {
		return nil, err
	}
	return p.allocationByShipment(shipmentID), nil
}

// RefundAll refunds every allocation that is still held.
func (p *EscrowPayment) RefundAll(reference string, now time.Time) error {
	refunded := false
	for i := range p.Allocations {
		if p.Allocations[i].Status != AllocationStatusHeld {
			continue
		}
		if _, err := p.RefundAllocation(p.Allocations[i].ShipmentID, reference, now); err != nil {
			return err
		}
		refunded = true
	}
	if !refunded {
		return stateConflict("escrow payment", string(p.Status), "at least one held allocation")
	}
	return nil
}

// ApplyPartialRefund refunds part of one allocation's remaining balance.
// The refund draws from the seller amount first and any remainder from
// shipping (shipping carries no commission). The commission refund is
// proportional to the seller portion, rounded half-to-even.
func (p *EscrowPayment) ApplyPartialRefund(shipmentID string, amount decimal.Decimal, reference string, now time.Time) error {
	alloc := p.allocationByShipment(shipmentID)
	if alloc == nil {
		return ErrNotFound
	}
	if err := alloc.applyPartialRefund(amount, reference, now); err != nil {
		return err
	}
	p.RefundedAmount = p.RefundedAmount.Add(amount)
	p.recomputeStatus(now)
	return nil
}

func (a *EscrowAllocation) applyPartialRefund(amount decimal.Decimal, reference string, now time.Time) error {
	if a.Status != AllocationStatusHeld {
		return stateConflict("escrow allocation", string(a.Status), string(AllocationStatusHeld))
	}
	if !amount.IsPositive() {
		return ErrInvalidInput
	}
	remaining := a.RemainingGross()
	if exceedsWithTolerance(amount, remaining) {
		return ErrReconciliation
	}

	remainingSeller := a.SellerAmount.Sub(a.RefundedSellerAmount)
	fromSeller := amount
	if fromSeller.Cmp(remainingSeller) > 0 {
		fromSeller = remainingSeller
	}
	commissionRefund := RoundMoney(fromSeller.Mul(a.CommissionRate).Div(hundred))
	if remainingCommission := a.CommissionAmount.Sub(a.RefundedCommissionAmount); commissionRefund.Cmp(remainingCommission) > 0 {
		commissionRefund = remainingCommission
	}

	a.RefundedAmount = a.RefundedAmount.Add(amount)
	a.RefundedSellerAmount = a.RefundedSellerAmount.Add(fromSeller)
	a.RefundedCommissionAmount = a.RefundedCommissionAmount.Add(commissionRefund)
	a.RefundReference = reference
	a.UpdatedAt = now
	if withinTolerance(a.RefundedAmount, a.GrossAmount()) {
		a.Status = AllocationStatusRefunded
	}
	return nil
}

// MarkEligibleForPayout flips payout eligibility after shipment delivery.
func (p *EscrowPayment) MarkEligibleForPayout(shipmentID string, now time.Time) (*EscrowAllocation, error) {
	alloc := p.allocationByShipment(shipmentID)
	if alloc == nil {
		return nil, ErrNotFound
	}
	if alloc.Status != AllocationStatusHeld {
		return nil, stateConflict("escrow allocation", string(alloc.Status), string(AllocationStatusHeld))
	}
	alloc.IsEligibleForPayout = true
	alloc.UpdatedAt = now
	p.UpdatedAt = now
	return alloc, nil
}

// GrossAmount is the allocation's full buyer-facing value.
func (a *EscrowAllocation) GrossAmount() decimal.Decimal {
	return a.SellerAmount.Add(a.ShippingAmount)
}

// RemainingGross is the gross value not yet refunded.
func (a *EscrowAllocation) RemainingGross() decimal.Decimal {
	return maxZero(a.GrossAmount().Sub(a.RefundedAmount))
}

// RemainingSellerPayout is what the seller would still be paid after the
// partial refunds applied so far. Remaining shipping and remaining
// commission are both clamped at zero so over-refund rounding can not
// inflate the payable.
func (a *EscrowAllocation) RemainingSellerPayout() decimal.Decimal {
	remainingSeller := a.SellerAmount.Sub(a.RefundedSellerAmount)
	remainingCommission := maxZero(a.CommissionAmount.Sub(a.RefundedCommissionAmount))
	refundedShipping := a.RefundedAmount.Sub(a.RefundedSellerAmount)
	remainingShipping := maxZero(a.ShippingAmount.Sub(refundedShipping))
	return remainingSeller.Sub(remainingCommission).Add(remainingShipping)
}

func (p *EscrowPayment) allocationByShipment(shipmentID string) *EscrowAllocation {
	for i := range p.Allocations {
		if p.Allocations[i].ShipmentID == shipmentID {
			return &p.Allocations[i]
		}
	}
	return nil
}

// AllocationByShipment returns the allocation for a shipment, if any.
func (p *EscrowPayment) AllocationByShipment(shipmentID string) (EscrowAllocation, bool) {
	if a := p.allocationByShipment(shipmentID); a != nil {
		return *a, true
	}
	return EscrowAllocation{}, false
}

func (p *EscrowPayment) recomputeStatus(now time.Time) {
	released, refunded, held := 0, 0, 0
	for i := range p.Allocations {
		switch p.Allocations[i].Status {
		case AllocationStatusReleased:
			released++
		case AllocationStatusRefunded:
			refunded++
		default:
			held++
		}
	}
	switch {
	case len(p.Allocations) == 0 || (released == 0 && refunded == 0):
		p.Status = EscrowStatusHeld
	case held == 0 && refunded == 0:
		p.Status = EscrowStatusReleased
	case held == 0 && released == 0:
		p.Status = EscrowStatusRefunded
	default:
		p.Status = EscrowStatusPartiallyReleased
	}
	p.UpdatedAt = now
}

// CheckInvariant verifies the payment-level conservation rule:
// released plus refunded never exceeds the payment total.
func (p *EscrowPayment) CheckInvariant() error {
	if exceedsWithTolerance(p.ReleasedAmount.Add(p.RefundedAmount), p.TotalAmount) {
		return ErrReconciliation
	}
	return nil
}

// LedgerEntry is one append-only journal row per escrow money movement.
type LedgerEntry struct {
	EntryID      string          `json:"entry_id"`
	PaymentID    string          `json:"payment_id"`
	AllocationID string          `json:"allocation_id,omitempty"`
	StoreID      string          `json:"store_id,omitempty"`
	EntryType    string          `json:"entry_type"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

const (
	LedgerEntryHold    = "hold"
	LedgerEntryRelease = "release"
	LedgerEntryRefund  = "refund"
)

// StoreBalance is the read model aggregated from ledger entries for one
// seller store.
type StoreBalance struct {
	StoreID         string          `json:"store_id"`
	Currency        string          `json:"currency"`
	HeldBalance     decimal.Decimal `json:"held_balance"`
	ReleasedBalance decimal.Decimal `json:"released_balance"`
	RefundedBalance decimal.Decimal `json:"refunded_balance"`
	NetBalance      decimal.Decimal `json:"net_balance"`
	CalculatedAt    time.Time       `json:"calculated_at"`
}
