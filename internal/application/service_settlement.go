package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vendora/marketplace-ledger/internal/contracts"
	"github.com/vendora/marketplace-ledger/internal/domain"
	"github.com/vendora/marketplace-ledger/internal/ports"
)

// GenerateSettlement builds version 1 of a store's monthly settlement
// from the allocations active in that period. A period that already has
// a settlement must go through RegenerateSettlement instead.
func (s *Service) GenerateSettlement(ctx context.Context, actor Actor, input SettlementPeriodInput) (domain.Settlement, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Settlement{}, err
	}
	if actor.Role != "admin" && actor.Role != "system" {
		return domain.Settlement{}, domain.ErrForbidden
	}
	if _, err := s.settlements.GetHead(ctx, input.StoreID, input.Year, input.Month); err == nil {
		return domain.Settlement{}, domain.ErrConflict
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Settlement{}, err
	}
	return s.buildSettlement(ctx, actor, input.StoreID, input.Year, input.Month, 1)
}

// RegenerateSettlement replaces the head draft with a fresh next-version
// draft recomputed from current allocation state. The caller states the
// version it based its decision on; a mismatch means someone else
// regenerated first.
func (s *Service) RegenerateSettlement(ctx context.Context, actor Actor, input RegenerateSettlementInput) (domain.Settlement, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Settlement{}, err
	}
	if actor.Role != "admin" && actor.Role != "system" {
		return domain.Settlement{}, domain.ErrForbidden
	}
	head, err := s.settlements.GetHead(ctx, input.StoreID, input.Year, input.Month)
	if err != nil {
		return domain.Settlement{}, err
	}
	if head.Version != input.ExpectedVersion {
		return domain.Settlement{}, domain.ErrVersionConflict
	}
	if head.Status == domain.SettlementStatusExported {
		return domain.Settlement{}, &domain.StateConflictError{
			Entity:   "settlement",
			Current:  string(head.Status),
			Required: "not exported",
		}
	}
	return s.buildSettlement(ctx, actor, input.StoreID, input.Year, input.Month, head.Version+1)
}

func (s *Service) buildSettlement(ctx context.Context, actor Actor, storeID string, year, month, version int) (domain.Settlement, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	allocations, err := s.escrows.ListAllocationsForPeriod(ctx, storeID, from, to)
	if err != nil {
		return domain.Settlement{}, err
	}
	currency := s.cfg.DefaultCurrency
	if len(allocations) > 0 {
		currency = allocations[0].Currency
	}
	now := s.nowFn()
	settlement, err := domain.NewSettlement(uuid.NewString(), storeID, year, month, version, currency, now)
	if err != nil {
		return domain.Settlement{}, err
	}
	for i := range allocations {
		alloc := &allocations[i]
		if alloc.Currency != settlement.Currency {
			return domain.Settlement{}, domain.ErrCurrencyMismatch
		}
		item := domain.SettlementItem{
			ItemID:           uuid.NewString(),
			AllocationID:     alloc.AllocationID,
			OrderID:          alloc.OrderID,
			ShipmentID:       alloc.ShipmentID,
			GrossAmount:      alloc.SellerAmount,
			ShippingAmount:   alloc.ShippingAmount,
			CommissionAmount: alloc.CommissionAmount.Sub(alloc.RefundedCommissionAmount),
			RefundedAmount:   alloc.RefundedAmount,
		}
		if err := settlement.AddItem(item, now); err != nil {
			return domain.Settlement{}, err
		}
	}
	if err := s.settlements.Create(ctx, settlement); err != nil {
		return domain.Settlement{}, err
	}
	if err := s.enqueueSettlementState(ctx, domain.EventSettlementGenerated, settlement, actor.RequestID, now); err != nil {
		return domain.Settlement{}, err
	}
	return settlement, nil
}

// AddSettlementAdjustment appends a manual correction to a draft
// settlement and recomputes its totals.
func (s *Service) AddSettlementAdjustment(ctx context.Context, actor Actor, input AddAdjustmentInput) (domain.Settlement, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Settlement{}, err
	}
	if actor.Role != "admin" && actor.Role != "system" {
		return domain.Settlement{}, domain.ErrForbidden
	}
	settlement, err := s.settlements.GetByID(ctx, input.SettlementID)
	if err != nil {
		return domain.Settlement{}, err
	}
	adj := domain.SettlementAdjustment{
		AdjustmentID: uuid.NewString(),
		Amount:       input.Amount,
		Reason:       input.Reason,
		SourceYear:   input.SourceYear,
		SourceMonth:  input.SourceMonth,
	}
	if err := settlement.AddAdjustment(adj, s.nowFn()); err != nil {
		return domain.Settlement{}, err
	}
	if err := s.settlements.Update(ctx, settlement); err != nil {
		return domain.Settlement{}, err
	}
	return settlement, nil
}

func (s *Service) FinalizeSettlement(ctx context.Context, actor Actor, settlementID string) (domain.Settlement, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Settlement{}, err
	}
	if actor.Role != "admin" && actor.Role != "system" {
		return domain.Settlement{}, domain.ErrForbidden
	}
	settlement, err := s.settlements.GetByID(ctx, settlementID)
	if err != nil {
		return domain.Settlement{}, err
	}
	now := s.nowFn()
	if err := settlement.Finalize(now); err != nil {
		return domain.Settlement{}, err
	}
	if err := s.settlements.Update(ctx, settlement); err != nil {
		return domain.Settlement{}, err
	}
	if err := s.enqueueSettlementState(ctx, domain.EventSettlementFinalized, settlement, actor.RequestID, now); err != nil {
		return domain.Settlement{}, err
	}
	return settlement, nil
}

func (s *Service) ApproveSettlement(ctx context.Context, actor Actor, settlementID, approvedBy string) (domain.Settlement, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Settlement{}, err
	}
	if actor.Role != "admin" {
		return domain.Settlement{}, domain.ErrForbidden
	}
	if approvedBy == "" {
		approvedBy = actor.SubjectID
	}
	settlement, err := s.settlements.GetByID(ctx, settlementID)
	if err != nil {
		return domain.Settlement{}, err
	}
	now := s.nowFn()
	if err := settlement.Approve(approvedBy, now); err != nil {
		return domain.Settlement{}, err
	}
	if err := s.settlements.Update(ctx, settlement); err != nil {
		return domain.Settlement{}, err
	}
	if err := s.enqueueSettlementState(ctx, domain.EventSettlementApproved, settlement, actor.RequestID, now); err != nil {
		return domain.Settlement{}, err
	}
	return settlement, nil
}

// ExportSettlement marks the settlement as handed off to downstream
// accounting. Re-exporting an exported settlement is a silent no-op.
func (s *Service) ExportSettlement(ctx context.Context, actor Actor, settlementID string) (domain.Settlement, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Settlement{}, err
	}
	if actor.Role != "admin" && actor.Role != "system" {
		return domain.Settlement{}, domain.ErrForbidden
	}
	settlement, err := s.settlements.GetByID(ctx, settlementID)
	if err != nil {
		return domain.Settlement{}, err
	}
	alreadyExported := settlement.Status == domain.SettlementStatusExported
	now := s.nowFn()
	if err := settlement.MarkExported(now); err != nil {
		return domain.Settlement{}, err
	}
	if alreadyExported {
		return settlement, nil
	}
	if err := s.settlements.Update(ctx, settlement); err != nil {
		return domain.Settlement{}, err
	}
	if err := s.enqueueSettlementState(ctx, domain.EventSettlementExported, settlement, actor.RequestID, now); err != nil {
		return domain.Settlement{}, err
	}
	return settlement, nil
}

func (s *Service) GetSettlement(ctx context.Context, actor Actor, settlementID string) (domain.Settlement, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Settlement{}, err
	}
	return s.settlements.GetByID(ctx, settlementID)
}

// GetSettlementHead returns the latest version for a store period.
func (s *Service) GetSettlementHead(ctx context.Context, actor Actor, storeID string, year, month int) (domain.Settlement, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.Settlement{}, err
	}
	return s.settlements.GetHead(ctx, storeID, year, month)
}

func (s *Service) ListSettlements(ctx context.Context, actor Actor, query ports.SettlementQuery) (SettlementListOutput, error) {
	if err := s.requireActor(actor); err != nil {
		return SettlementListOutput{}, err
	}
	if query.Limit <= 0 || query.Limit > 100 {
		query.Limit = 20
	}
	if query.Offset < 0 {
		query.Offset = 0
	}
	items, total, err := s.settlements.List(ctx, query)
	if err != nil {
		return SettlementListOutput{}, err
	}
	return SettlementListOutput{
		Items:      items,
		Pagination: contracts.Pagination{Total: total, Limit: query.Limit, Offset: query.Offset},
	}, nil
}

func (s *Service) enqueueSettlementState(ctx context.Context, eventType string, settlement domain.Settlement, traceID string, now time.Time) error {
	return s.enqueueDomainEvent(ctx, eventType, settlement.SettlementID, contracts.SettlementStatePayload{
		SettlementID:     settlement.SettlementID,
		SettlementNumber: settlement.SettlementNumber,
		StoreID:          settlement.StoreID,
		Year:             settlement.Year,
		Month:            settlement.Month,
		Version:          settlement.Version,
		NetPayable:       settlement.NetPayable.StringFixed(2),
		ApprovedBy:       settlement.ApprovedBy,
		OccurredAt:       now.Format(time.RFC3339),
	}, traceID)
}
