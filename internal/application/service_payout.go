package application

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

// BuildPayoutBatches groups every claimable eligible allocation into one
// scheduled payout per store and currency. An allocation already claimed
// by another batch is skipped, so concurrent builders never double-pay.
func (s *Service) BuildPayoutBatches(ctx context.Context, actor Actor) ([]domain.SellerPayout, error) {
	if err := s.requireActor(actor); err != nil {
		return nil, err
	}
	eligible, err := s.escrows.ListEligibleAllocations(ctx)
	if err != nil {
		return nil, err
	}
	now := s.nowFn()
	scheduled := now.Truncate(24 * time.Hour)

	type groupKey struct{ store, currency string }
	groups := make(map[groupKey][]domain.EscrowAllocation)
	var order []groupKey
	for _, alloc := range eligible {
		key := groupKey{alloc.StoreID, alloc.Currency}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], alloc)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].store != order[j].store {
			return order[i].store < order[j].store
		}
		return order[i].currency < order[j].currency
	})

	var batches []domain.SellerPayout
	for _, key := range order {
		payout, err := domain.NewSellerPayout(uuid.NewString(), key.store, key.currency, scheduled, s.cfg.PayoutMaxRetries, now)
		if err != nil {
			return batches, err
		}
		for i := range groups[key] {
			alloc := groups[key][i]
			if !alloc.RemainingSellerPayout().IsPositive() {
				continue
			}
			if err := s.payouts.ClaimAllocation(ctx, alloc.AllocationID, payout.PayoutID); err != nil {
				if errors.Is(err, domain.ErrAllocationClaimed) {
					continue
				}
				return batches, err
			}
			if _, err := payout.AddItem(uuid.NewString(), &alloc, now); err != nil {
				return batches, err
			}
		}
		if len(payout.Items) == 0 {
			continue
		}
		if err := s.payouts.Create(ctx, payout); err != nil {
			return batches, err
		}
		if err := s.enqueuePayoutState(ctx, domain.EventPayoutScheduled, payout, "", actor.RequestID, now); err != nil {
			return batches, err
		}
		batches = append(batches, payout)
	}
	return batches, nil
}

// DispatchPayout sends one batch to the payout provider. On success the
// batch is marked paid and every underlying allocation is released from
// escrow; on failure the batch schedules its next retry attempt.
func (s *Service) DispatchPayout(ctx context.Context, actor Actor, payoutID string) (domain.SellerPayout, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.SellerPayout{}, err
	}
	payout, err := s.payouts.GetByID(ctx, payoutID)
	if err != nil {
		return domain.SellerPayout{}, err
	}
	now := s.nowFn()
	if err := payout.StartProcessing(now); err != nil {
		return domain.SellerPayout{}, err
	}
	if err := s.payouts.Update(ctx, payout); err != nil {
		return domain.SellerPayout{}, err
	}
	if err := s.enqueuePayoutState(ctx, domain.EventPayoutProcessing, payout, "", actor.RequestID, now); err != nil {
		return domain.SellerPayout{}, err
	}

	// PayoutNumber is stable across retries, so the provider can
	// deduplicate a re-dispatched batch.
	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	reference, gerr := s.payoutGateway.Execute(gctx, ports.PayoutBatch{
		PayoutID:     payout.PayoutID,
		PayoutNumber: payout.PayoutNumber,
		StoreID:      payout.StoreID,
		Currency:     payout.Currency,
		Amount:       payout.TotalAmount,
		ItemCount:    len(payout.Items),
	})
	cancel()
	now = s.nowFn()
	if gerr != nil {
		errRef := ""
		var perr *domain.ProviderError
		if errors.As(gerr, &perr) {
			errRef = perr.Reference
		}
		if err := payout.MarkFailed(errRef, providerMessage(gerr), now); err != nil {
			return domain.SellerPayout{}, err
		}
		if err := s.payouts.Update(ctx, payout); err != nil {
			return domain.SellerPayout{}, err
		}
		if !payout.CanRetry() {
			// The batch is dead; free its allocations for a future build.
			if err := s.payouts.ReleaseClaims(ctx, payout.PayoutID); err != nil {
				return domain.SellerPayout{}, err
			}
		}
		if err := s.enqueuePayoutState(ctx, domain.EventPayoutFailed, payout, providerMessage(gerr), actor.RequestID, now); err != nil {
			return domain.SellerPayout{}, err
		}
		return payout, nil
	}

	if err := payout.MarkPaid(reference, now); err != nil {
		return domain.SellerPayout{}, err
	}
	if err := s.payouts.Update(ctx, payout); err != nil {
		return domain.SellerPayout{}, err
	}
	if err := s.releasePayoutAllocations(ctx, payout, actor, now); err != nil {
		return domain.SellerPayout{}, err
	}
	if err := s.enqueuePayoutState(ctx, domain.EventPayoutPaid, payout, "", actor.RequestID, now); err != nil {
		return domain.SellerPayout{}, err
	}
	return payout, nil
}

func (s *Service) releasePayoutAllocations(ctx context.Context, payout domain.SellerPayout, actor Actor, now time.Time) error {
	byPayment := make(map[string][]domain.SellerPayoutItem)
	var order []string
	for _, item := range payout.Items {
		if _, seen := byPayment[item.PaymentID]; !seen {
			order = append(order, item.PaymentID)
		}
		byPayment[item.PaymentID] = append(byPayment[item.PaymentID], item)
	}
	for _, paymentID := range order {
		if err := s.releasePaymentItems(ctx, paymentID, byPayment[paymentID], payout.ProviderReference, actor, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) releasePaymentItems(ctx context.Context, paymentID string, items []domain.SellerPayoutItem, reference string, actor Actor, now time.Time) error {
	release, err := s.lockPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	defer release()

	payment, err := s.escrows.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	for _, item := range items {
		alloc, err := payment.ReleaseAllocation(item.ShipmentID, reference, now)
		if err != nil {
			// A partial refund between claim and dispatch may have
			// refunded the allocation out from under the batch.
			if errors.Is(err, domain.ErrStateConflict) {
				continue
			}
			return err
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
			return err
		}
		if err := s.enqueueDomainEvent(ctx, domain.EventEscrowAllocationReleased, payment.PaymentID, contracts.AllocationReleasedPayload{
			PaymentID:       payment.PaymentID,
			AllocationID:    alloc.AllocationID,
			ShipmentID:      alloc.ShipmentID,
			StoreID:         alloc.StoreID,
			Amount:          alloc.RemainingGross().StringFixed(2),
			PayoutReference: reference,
			ReleasedAt:      now.Format(time.RFC3339),
		}, actor.RequestID); err != nil {
			return err
		}
	}
	if err := payment.CheckInvariant(); err != nil {
		return err
	}
	return s.escrows.Update(ctx, payment)
}

// SweepPayoutRetries re-dispatches every failed batch whose backoff
// window has elapsed. Individual dispatch failures do not stop the
// sweep; they simply reschedule the batch again.
func (s *Service) SweepPayoutRetries(ctx context.Context) (int, error) {
	due, err := s.payouts.ListDueForRetry(ctx, s.nowFn())
	if err != nil {
		return 0, err
	}
	actor := Actor{SubjectID: "system:retry-sweep", Role: "system", RequestID: uuid.NewString()}
	dispatched := 0
	for _, payout := range due {
		if _, err := s.DispatchPayout(ctx, actor, payout.PayoutID); err != nil {
			continue
		}
		dispatched++
	}
	return dispatched, nil
}

func (s *Service) GetPayout(ctx context.Context, actor Actor, payoutID string) (domain.SellerPayout, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.SellerPayout{}, err
	}
	return s.payouts.GetByID(ctx, payoutID)
}

func (s *Service) ListPayouts(ctx context.Context, actor Actor, query ports.PayoutQuery) (PayoutListOutput, error) {
	if err := s.requireActor(actor); err != nil {
		return PayoutListOutput{}, err
	}
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	items, total, err := s.payouts.List(ctx, query)
	if err != nil {
		return PayoutListOutput{}, err
	}
	return PayoutListOutput{
		Items:      items,
		Pagination: contracts.Pagination{Total: total, Limit: query.Limit, Offset: query.Offset},
	}, nil
}

func (s *Service) enqueuePayoutState(ctx context.Context, eventType string, payout domain.SellerPayout, reason, traceID string, now time.Time) error {
	return s.enqueueDomainEvent(ctx, eventType, payout.PayoutID, contracts.PayoutStatePayload{
		PayoutID:     payout.PayoutID,
		PayoutNumber: payout.PayoutNumber,
		StoreID:      payout.StoreID,
		Currency:     payout.Currency,
		Amount:       payout.TotalAmount.StringFixed(2),
		Items:        len(payout.Items),
		Reference:    payout.ProviderReference,
		Reason:       reason,
		RetryCount:   payout.RetryCount,
		OccurredAt:   now.Format(time.RFC3339),
	}, traceID)
}
