package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
)

// CreateEscrowPayment opens the escrow for a confirmed order payment and
// adds one allocation per seller shipment, resolving the commission rate
// for each at creation time.
func (s *Service) CreateEscrowPayment(ctx context.Context, actor Actor, input CreateEscrowPaymentInput) (domain.EscrowPayment, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.requireIdempotencyKey(actor); err != nil {
		return domain.EscrowPayment{}, err
	}
	input.OrderID = strings.TrimSpace(input.OrderID)
	input.BuyerID = strings.TrimSpace(input.BuyerID)
	if input.Currency == "" {
		input.Currency = s.cfg.DefaultCurrency
	}

	requestHash := hashJSON(input)
	var cached domain.EscrowPayment
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil {
		return domain.EscrowPayment{}, err
	} else if ok {
		return cached, nil
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.EscrowPayment{}, err
	}

	now := s.nowFn()
	payment, err := domain.NewEscrowPayment(uuid.NewString(), input.OrderID, input.BuyerID, input.TotalAmount, input.Currency, now)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	for _, sh := range input.Shipments {
		if _, err := s.addAllocation(ctx, &payment, sh, now); err != nil {
			return domain.EscrowPayment{}, err
		}
	}
	if err := s.escrows.Create(ctx, payment); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.ledger.Append(ctx, domain.LedgerEntry{
		EntryID:    uuid.NewString(),
		PaymentID:  payment.PaymentID,
		EntryType:  domain.LedgerEntryHold,
		Amount:     payment.TotalAmount,
		Currency:   payment.Currency,
		OccurredAt: now,
	}); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.enqueueDomainEvent(ctx, domain.EventEscrowPaymentCreated, payment.PaymentID, contracts.EscrowPaymentCreatedPayload{
		PaymentID:   payment.PaymentID,
		OrderID:     payment.OrderID,
		BuyerID:     payment.BuyerID,
		TotalAmount: payment.TotalAmount.StringFixed(2),
		Currency:    payment.Currency,
		Allocations: len(payment.Allocations),
		CreatedAt:   now.Format(time.RFC3339),
	}, actor.RequestID); err != nil {
		return domain.EscrowPayment{}, err
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, payment)
	return payment, nil
}

// AddAllocation adds one seller shipment's share to an existing escrow
// payment that is still fully held.
func (s *Service) AddAllocation(ctx context.Context, actor Actor, input AddAllocationInput) (domain.EscrowAllocation, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.EscrowAllocation{}, err
	}
	input.PaymentID = strings.TrimSpace(input.PaymentID)
	if input.PaymentID == "" {
		return domain.EscrowAllocation{}, domain.ErrInvalidInput
	}
	release, err := s.lockPayment(ctx, input.PaymentID)
	if err != nil {
		return domain.EscrowAllocation{}, err
	}
	defer release()

	payment, err := s.escrows.GetByID(ctx, input.PaymentID)
	if err != nil {
		return domain.EscrowAllocation{}, err
	}
	now := s.nowFn()
	alloc, err := s.addAllocation(ctx, &payment, ShipmentInput{
		ShipmentID:     input.ShipmentID,
		StoreID:        input.StoreID,
		CategoryID:     input.CategoryID,
		SellerAmount:   input.SellerAmount,
		ShippingAmount: input.ShippingAmount,
	}, now)
	if err != nil {
		return domain.EscrowAllocation{}, err
	}
	if err := s.escrows.Update(ctx, payment); err != nil {
		return domain.EscrowAllocation{}, err
	}
	return *alloc, nil
}

func (s *Service) addAllocation(ctx context.Context, payment *domain.EscrowPayment, sh ShipmentInput, now time.Time) (*domain.EscrowAllocation, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	rate, err := domain.ResolveCommissionRate(rules, sh.StoreID, sh.CategoryID, now)
	if err != nil {
		return nil, err
	}
	commission := domain.CommissionFor(sh.SellerAmount, rate)
	return payment.AddAllocation(uuid.NewString(), sh.StoreID, sh.ShipmentID, sh.SellerAmount, sh.ShippingAmount, commission, rate, now)
}

// ReleaseAllocation moves one allocation's funds out of escrow to the
// seller side of the ledger.
func (s *Service) ReleaseAllocation(ctx context.Context, actor Actor, input ReleaseAllocationInput) (domain.EscrowPayment, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.EscrowPayment{}, err
	}
	input.PaymentID = strings.TrimSpace(input.PaymentID)
	input.ShipmentID = strings.TrimSpace(input.ShipmentID)
	if input.PaymentID == "" || input.ShipmentID == "" {
		return domain.EscrowPayment{}, domain.ErrInvalidInput
	}
	release, err := s.lockPayment(ctx, input.PaymentID)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	defer release()

	payment, err := s.escrows.GetByID(ctx, input.PaymentID)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	now := s.nowFn()
	alloc, err := payment.ReleaseAllocation(input.ShipmentID, input.PayoutReference, now)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := payment.CheckInvariant(); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.escrows.Update(ctx, payment); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.ledger.Append(ctx, domain.LedgerEntry{
		EntryID:      uuid.NewString(),
		PaymentID:    payment.PaymentID,
		AllocationID: alloc.AllocationID,
		StoreID:      alloc.StoreID,
		EntryType:    domain.LedgerEntryRelease,
		Amount:       alloc.RemainingGross(),
		Currency:     payment.Currency,
		OccurredAt:   now,
	}); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.enqueueDomainEvent(ctx, domain.EventEscrowAllocationReleased, payment.PaymentID, contracts.AllocationReleasedPayload{
		PaymentID:       payment.PaymentID,
		AllocationID:    alloc.AllocationID,
		ShipmentID:      alloc.ShipmentID,
		StoreID:         alloc.StoreID,
		Amount:          alloc.RemainingGross().StringFixed(2),
		PayoutReference: input.PayoutReference,
		ReleasedAt:      now.Format(time.RFC3339),
	}, actor.RequestID); err != nil {
		return domain.EscrowPayment{}, err
	}
	return payment, nil
}

// ApplyPartialRefund refunds part of one allocation's balance, seller
// amount first, remainder from shipping.
func (s *Service) ApplyPartialRefund(ctx context.Context, actor Actor, input PartialRefundInput) (domain.EscrowPayment, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.EscrowPayment{}, err
	}
	input.PaymentID = strings.TrimSpace(input.PaymentID)
	input.ShipmentID = strings.TrimSpace(input.ShipmentID)
	if input.PaymentID == "" || input.ShipmentID == "" {
		return domain.EscrowPayment{}, domain.ErrInvalidInput
	}
	release, err := s.lockPayment(ctx, input.PaymentID)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	defer release()

	payment, err := s.escrows.GetByID(ctx, input.PaymentID)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	now := s.nowFn()
	if err := payment.ApplyPartialRefund(input.ShipmentID, input.Amount, input.Reference, now); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := payment.CheckInvariant(); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.escrows.Update(ctx, payment); err != nil {
		return domain.EscrowPayment{}, err
	}
	alloc, _ := payment.AllocationByShipment(input.ShipmentID)
	if err := s.appendRefundLedger(ctx, payment, alloc.AllocationID, alloc.StoreID, input.Amount, now); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.enqueueDomainEvent(ctx, domain.EventEscrowRefundApplied, payment.PaymentID, contracts.RefundAppliedPayload{
		PaymentID:    payment.PaymentID,
		AllocationID: alloc.AllocationID,
		ShipmentID:   alloc.ShipmentID,
		Amount:       input.Amount.StringFixed(2),
		Reference:    input.Reference,
		AppliedAt:    now.Format(time.RFC3339),
	}, actor.RequestID); err != nil {
		return domain.EscrowPayment{}, err
	}
	return payment, nil
}

// RefundAllocation refunds whatever remains of one allocation.
func (s *Service) RefundAllocation(ctx context.Context, actor Actor, paymentID, shipmentID, reference string) (domain.EscrowPayment, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.EscrowPayment{}, err
	}
	paymentID = strings.TrimSpace(paymentID)
	shipmentID = strings.TrimSpace(shipmentID)
	if paymentID == "" || shipmentID == "" {
		return domain.EscrowPayment{}, domain.ErrInvalidInput
	}
	release, err := s.lockPayment(ctx, paymentID)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	defer release()

	payment, err := s.escrows.GetByID(ctx, paymentID)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	now := s.nowFn()
	before, ok := payment.AllocationByShipment(shipmentID)
	if !ok {
		return domain.EscrowPayment{}, domain.ErrNotFound
	}
	amount := before.RemainingGross()
	alloc, err := payment.RefundAllocation(shipmentID, reference, now)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := payment.CheckInvariant(); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.escrows.Update(ctx, payment); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.appendRefundLedger(ctx, payment, alloc.AllocationID, alloc.StoreID, amount, now); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.enqueueDomainEvent(ctx, domain.EventEscrowRefundApplied, payment.PaymentID, contracts.RefundAppliedPayload{
		PaymentID:    payment.PaymentID,
		AllocationID: alloc.AllocationID,
		ShipmentID:   alloc.ShipmentID,
		Amount:       amount.StringFixed(2),
		Reference:    reference,
		AppliedAt:    now.Format(time.RFC3339),
	}, actor.RequestID); err != nil {
		return domain.EscrowPayment{}, err
	}
	return payment, nil
}

// RefundEscrow refunds every held allocation of the payment.
func (s *Service) RefundEscrow(ctx context.Context, actor Actor, paymentID, reference string) (domain.EscrowPayment, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.EscrowPayment{}, err
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return domain.EscrowPayment{}, domain.ErrInvalidInput
	}
	release, err := s.lockPayment(ctx, paymentID)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	defer release()

	payment, err := s.escrows.GetByID(ctx, paymentID)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	now := s.nowFn()
	refundedBefore := payment.RefundedAmount
	if err := payment.RefundAll(reference, now); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := payment.CheckInvariant(); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.escrows.Update(ctx, payment); err != nil {
		return domain.EscrowPayment{}, err
	}
	amount := payment.RefundedAmount.Sub(refundedBefore)
	if err := s.appendRefundLedger(ctx, payment, "", "", amount, now); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.enqueueDomainEvent(ctx, domain.EventEscrowRefundApplied, payment.PaymentID, contracts.RefundAppliedPayload{
		PaymentID: payment.PaymentID,
		Amount:    amount.StringFixed(2),
		Reference: reference,
		AppliedAt: now.Format(time.RFC3339),
	}, actor.RequestID); err != nil {
		return domain.EscrowPayment{}, err
	}
	return payment, nil
}

// MarkAllocationEligible flips payout eligibility after a shipment
// delivery event.
func (s *Service) MarkAllocationEligible(ctx context.Context, orderID, shipmentID string) (domain.EscrowPayment, error) {
	orderID = strings.TrimSpace(orderID)
	shipmentID = strings.TrimSpace(shipmentID)
	if orderID == "" || shipmentID == "" {
		return domain.EscrowPayment{}, domain.ErrInvalidInput
	}
	payment, err := s.escrows.GetByOrderID(ctx, orderID)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	release, err := s.lockPayment(ctx, payment.PaymentID)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	defer release()

	payment, err = s.escrows.GetByID(ctx, payment.PaymentID)
	if err != nil {
		return domain.EscrowPayment{}, err
	}
	if _, err := payment.MarkEligibleForPayout(shipmentID, s.nowFn()); err != nil {
		return domain.EscrowPayment{}, err
	}
	if err := s.escrows.Update(ctx, payment); err != nil {
		return domain.EscrowPayment{}, err
	}
	return payment, nil
}

func (s *Service) GetEscrowPayment(ctx context.Context, paymentID string) (domain.EscrowPayment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return domain.EscrowPayment{}, domain.ErrInvalidInput
	}
	return s.escrows.GetByID(ctx, paymentID)
}

// GetStoreBalance aggregates the ledger journal into the wallet-style
// balance read model for one store.
func (s *Service) GetStoreBalance(ctx context.Context, storeID string) (domain.StoreBalance, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return domain.StoreBalance{}, domain.ErrInvalidInput
	}
	entries, err := s.ledger.ListByStore(ctx, storeID)
	if err != nil {
		return domain.StoreBalance{}, err
	}
	out := domain.StoreBalance{StoreID: storeID, CalculatedAt: s.nowFn()}
	for _, e := range entries {
		if out.Currency == "" {
			out.Currency = e.Currency
		}
		switch e.EntryType {
		case domain.LedgerEntryHold:
			out.HeldBalance = out.HeldBalance.Add(e.Amount)
		case domain.LedgerEntryRelease:
			out.ReleasedBalance = out.ReleasedBalance.Add(e.Amount)
		case domain.LedgerEntryRefund:
			out.RefundedBalance = out.RefundedBalance.Add(e.Amount)
		}
	}
	out.NetBalance = out.HeldBalance.Sub(out.ReleasedBalance).Sub(out.RefundedBalance)
	return out, nil
}

func (s *Service) appendRefundLedger(ctx context.Context, payment domain.EscrowPayment, allocationID, storeID string, amount decimal.Decimal, now time.Time) error {
	return s.ledger.Append(ctx, domain.LedgerEntry{
		EntryID:      uuid.NewString(),
		PaymentID:    payment.PaymentID,
		AllocationID: allocationID,
		StoreID:      storeID,
		EntryType:    domain.LedgerEntryRefund,
		Amount:       amount,
		Currency:     payment.Currency,
		OccurredAt:   now,
	})
}
