package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendora/marketplace-ledger/internal/domain"
)

// CreateCommissionRule registers a new rate rule. Rules are append-only;
// a rate change is a new rule with a later effective window.
func (s *Service) CreateCommissionRule(ctx context.Context, actor Actor, input CreateCommissionRuleInput) (domain.CommissionRule, error) {
	if err := s.requireActor(actor); err != nil {
		return domain.CommissionRule{}, err
	}
	if actor.Role != "admin" && actor.Role != "system" {
		return domain.CommissionRule{}, domain.ErrForbidden
	}
	rule, err := domain.NewCommissionRule(uuid.NewString(), input.Scope, input.StoreID, input.CategoryID, input.Rate, input.EffectiveFrom, input.EffectiveTo, s.nowFn())
	if err != nil {
		return domain.CommissionRule{}, err
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return domain.CommissionRule{}, err
	}
	return rule, nil
}

func (s *Service) ListCommissionRules(ctx context.Context, actor Actor) ([]domain.CommissionRule, error) {
	if err := s.requireActor(actor); err != nil {
		return nil, err
	}
	return s.rules.List(ctx)
}

// ResolveCommission previews the rate and commission amount a sale would
// incur at a point in time, without touching any escrow state.
func (s *Service) ResolveCommission(ctx context.Context, actor Actor, storeID, categoryID string, sellerAmount decimal.Decimal, at time.Time) (decimal.Decimal, decimal.Decimal, error) {
	if err := s.requireActor(actor); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if at.IsZero() {
		at = s.nowFn()
	}
	rules, err := s.rules.List(ctx)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	rate, err := domain.ResolveCommissionRate(rules, storeID, categoryID, at)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return rate, domain.CommissionFor(sellerAmount, rate), nil
}
