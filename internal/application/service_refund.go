package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
)

// CreateRefund records a buyer refund intent against an escrowed order.
// A shipment-scoped refund targets one allocation's remaining balance;
// an order-scoped refund must cover exactly what is still held.
func (s *Service) CreateRefund(ctx context.Context, actor Actor, input CreateRefundInput) (domain.Refund, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Refund{}, err
	}
	if err := s.requireIdempotencyKey(actor); err != nil {
		return domain.Refund{}, err
	}
	input.OrderID = strings.TrimSpace(input.OrderID)
	input.ShipmentID = strings.TrimSpace(input.ShipmentID)
	if input.OrderID == "" {
		return domain.Refund{}, domain.ErrInvalidInput
	}

	requestHash := hashJSON(input)
	var cached domain.Refund
	if ok, err := s.getIdempotentJSON(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil {
		return domain.Refund{}, err
	} else if ok {
		return cached, nil
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return domain.Refund{}, err
	}

	payment, err := s.escrows.GetByOrderID(ctx, input.OrderID)
	if err != nil {
		return domain.Refund{}, err
	}
	if input.ShipmentID != "" {
		alloc, ok := payment.AllocationByShipment(input.ShipmentID)
		if !ok {
			return domain.Refund{}, domain.ErrNotFound
		}
		if alloc.Status != domain.AllocationStatusHeld {
			return domain.Refund{}, domain.ErrStateConflict
		}
		if input.Amount.Sub(alloc.RemainingGross()).Cmp(domain.CentTolerance) > 0 {
			return domain.Refund{}, domain.ErrReconciliation
		}
	} else {
		held := payment.TotalAmount.Sub(payment.ReleasedAmount).Sub(payment.RefundedAmount)
		if !input.Amount.Sub(held).Abs().LessThanOrEqual(domain.CentTolerance) {
			return domain.Refund{}, domain.ErrReconciliation
		}
	}

	refund, err := domain.NewRefund(uuid.NewString(), input.OrderID, payment.PaymentID, input.ShipmentID, payment.BuyerID, input.Amount, payment.Currency, input.Reason, s.nowFn())
	if err != nil {
		return domain.Refund{}, err
	}
	if err := s.refunds.Create(ctx, refund); err != nil {
		return domain.Refund{}, err
	}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, refund)
	return refund, nil
}

// ExecuteRefund calls the payment provider and, on success, applies the
// money movement to the escrow under the payment lock. A provider
// failure leaves the refund Failed with the retry budget decremented.
func (s *Service) ExecuteRefund(ctx context.Context, actor Actor, refundID string) (domain.Refund, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Refund{}, err
	}
	refund, err := s.refunds.GetByID(ctx, refundID)
	if err != nil {
		return domain.Refund{}, err
	}
	release, err := s.lockPayment(ctx, refund.PaymentID)
	if err != nil {
		return domain.Refund{}, err
	}
	defer release()

	now := s.nowFn()
	if err := refund.StartProcessing(now); err != nil {
		return domain.Refund{}, err
	}
	if err := s.refunds.Update(ctx, refund); err != nil {
		return domain.Refund{}, err
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	result, gerr := s.paymentGateway.Execute(gctx, refund.Amount, refund.Currency, refund.IdempotencyKey)
	cancel()
	now = s.nowFn()
	if gerr != nil {
		return s.failRefund(ctx, refund, providerMessage(gerr), actor.RequestID, now)
	}
	switch domain.MapGatewayStatus(result.Status) {
	case domain.GatewayStatusPaid, domain.GatewayStatusRefunded:
	case domain.GatewayStatusPending:
		return s.failRefund(ctx, refund, "provider still pending", actor.RequestID, now)
	default:
		return s.failRefund(ctx, refund, fmt.Sprintf("provider status %q", result.Status), actor.RequestID, now)
	}

	if err := s.applyRefundToEscrow(ctx, &refund, actor.RequestID, now); err != nil {
		return s.failRefund(ctx, refund, err.Error(), actor.RequestID, now)
	}
	if err := refund.Complete(result.TransactionID, now); err != nil {
		return domain.Refund{}, err
	}
	if err := s.refunds.Update(ctx, refund); err != nil {
		return domain.Refund{}, err
	}
	if err := s.enqueueDomainEvent(ctx, domain.EventRefundCompleted, refund.RefundID, contracts.RefundStatePayload{
		RefundID:              refund.RefundID,
		OrderID:               refund.OrderID,
		PaymentID:             refund.PaymentID,
		Amount:                refund.Amount.StringFixed(2),
		Currency:              refund.Currency,
		ProviderTransactionID: refund.ProviderTransactionID,
		OccurredAt:            now.Format(time.RFC3339),
	}, actor.RequestID); err != nil {
		return domain.Refund{}, err
	}
	return refund, nil
}

func (s *Service) applyRefundToEscrow(ctx context.Context, refund *domain.Refund, traceID string, now time.Time) error {
	payment, err := s.escrows.GetByID(ctx, refund.PaymentID)
	if err != nil {
		return err
	}
	allocationID, storeID := "", ""
	if refund.ShipmentID != "" {
		if err := payment.ApplyPartialRefund(refund.ShipmentID, refund.Amount, refund.IdempotencyKey, now); err != nil {
			return err
		}
		if alloc, ok := payment.AllocationByShipment(refund.ShipmentID); ok {
			allocationID, storeID = alloc.AllocationID, alloc.StoreID
		}
	} else {
		if err := payment.RefundAll(refund.IdempotencyKey, now); err != nil {
			return err
		}
	}
	if err := payment.CheckInvariant(); err != nil {
		return err
	}
	if err := s.escrows.Update(ctx, payment); err != nil {
		return err
	}
	if err := s.appendRefundLedger(ctx, payment, allocationID, storeID, refund.Amount, now); err != nil {
		return err
	}
	return s.enqueueDomainEvent(ctx, domain.EventEscrowRefundApplied, payment.PaymentID, contracts.RefundAppliedPayload{
		PaymentID:    payment.PaymentID,
		AllocationID: allocationID,
		ShipmentID:   refund.ShipmentID,
		Amount:       refund.Amount.StringFixed(2),
		Reference:    refund.IdempotencyKey,
		AppliedAt:    now.Format(time.RFC3339),
	}, traceID)
}

func (s *Service) failRefund(ctx context.Context, refund domain.Refund, reason, traceID string, now time.Time) (domain.Refund, error) {
	if err := refund.Fail(reason, now); err != nil {
		return domain.Refund{}, err
	}
	if err := s.refunds.Update(ctx, refund); err != nil {
		return domain.Refund{}, err
	}
	if err := s.enqueueDomainEvent(ctx, domain.EventRefundFailed, refund.RefundID, contracts.RefundStatePayload{
		RefundID:   refund.RefundID,
		OrderID:    refund.OrderID,
		PaymentID:  refund.PaymentID,
		Amount:     refund.Amount.StringFixed(2),
		Currency:   refund.Currency,
		Reason:     reason,
		RetryCount: refund.RetryCount,
		OccurredAt: now.Format(time.RFC3339),
	}, traceID); err != nil {
		return domain.Refund{}, err
	}
	return refund, nil
}

// RejectRefund terminates a pending or in-flight refund with a reason.
func (s *Service) RejectRefund(ctx context.Context, actor Actor, refundID, reason string) (domain.Refund, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Refund{}, err
	}
	if actor.Role != "admin" && actor.Role != "system" {
		return domain.Refund{}, domain.ErrForbidden
	}
	refund, err := s.refunds.GetByID(ctx, refundID)
	if err != nil {
		return domain.Refund{}, err
	}
	if err := refund.Reject(reason, s.nowFn()); err != nil {
		return domain.Refund{}, err
	}
	if err := s.refunds.Update(ctx, refund); err != nil {
		return domain.Refund{}, err
	}
	return refund, nil
}

// RetryRefund re-queues a failed refund and immediately re-executes it.
func (s *Service) RetryRefund(ctx context.Context, actor Actor, refundID string) (domain.Refund, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Refund{}, err
	}
	refund, err := s.refunds.GetByID(ctx, refundID)
	if err != nil {
		return domain.Refund{}, err
	}
	if err := refund.ResetForRetry(s.nowFn()); err != nil {
		return domain.Refund{}, err
	}
	if err := s.refunds.Update(ctx, refund); err != nil {
		return domain.Refund{}, err
	}
	return s.ExecuteRefund(ctx, actor, refund.RefundID)
}

// SweepRefundRetries re-executes every failed refund with retry budget
// remaining. Individual failures do not stop the sweep.
func (s *Service) SweepRefundRetries(ctx context.Context) (int, error) {
	retryable, err := s.refunds.ListRetryable(ctx)
	if err != nil {
		return 0, err
	}
	actor := Actor{SubjectID: "system:retry-sweep", Role: "system", RequestID: uuid.NewString()}
	retried := 0
	for _, refund := range retryable {
		if !refund.CanRetry() {
			continue
		}
		if _, err := s.RetryRefund(ctx, actor, refund.RefundID); err != nil && !errors.Is(err, domain.ErrStateConflict) {
			continue
		}
		retried++
	}
	return retried, nil
}

func (s *Service) GetRefund(ctx context.Context, actor Actor, refundID string) (domain.Refund, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Refund{}, err
	}
	return s.refunds.GetByID(ctx, refundID)
}

func providerMessage(err error) string {
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return perr.Message
	}
	return err.Error()
}
