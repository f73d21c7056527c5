package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CommissionScope string

const (
	CommissionScopeGlobal   CommissionScope = "global"
	CommissionScopeCategory CommissionScope = "category"
	CommissionScopeSeller   CommissionScope = "seller"
)

// CommissionRule is a percentage rate scoped to the whole marketplace, a
// category, or a single seller, optionally bounded by an effective window.
type CommissionRule struct {
	RuleID        string           `json:"rule_id"`
	Scope         CommissionScope  `json:"scope"`
	StoreID       string           `json:"store_id,omitempty"`
	CategoryID    string           `json:"category_id,omitempty"`
	Rate          decimal.Decimal  `json:"rate"`
	IsActive      bool             `json:"is_active"`
	EffectiveFrom *time.Time       `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time       `json:"effective_to,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

func NewCommissionRule(ruleID string, scope CommissionScope, storeID, categoryID string, rate decimal.Decimal, from, to *time.Time, now time.Time) (CommissionRule, error) {
	if strings.TrimSpace(ruleID) == "" {
		return CommissionRule{}, ErrInvalidInput
	}
	if rate.IsNegative() || rate.Cmp(hundred) > 0 {
		return CommissionRule{}, ErrInvalidInput
	}
	switch scope {
	case CommissionScopeGlobal:
	case CommissionScopeCategory:
		if strings.TrimSpace(categoryID) == "" {
			return CommissionRule{}, ErrInvalidInput
		}
	case CommissionScopeSeller:
		if strings.TrimSpace(storeID) == "" {
			return CommissionRule{}, ErrInvalidInput
		}
	default:
		return CommissionRule{}, ErrInvalidInput
	}
	if from != nil && to != nil && to.Before(*from) {
		return CommissionRule{}, ErrInvalidInput
	}
	return CommissionRule{
		RuleID:        ruleID,
		Scope:         scope,
		StoreID:       strings.TrimSpace(storeID),
		CategoryID:    strings.TrimSpace(categoryID),
		Rate:          rate,
		IsActive:      true,
		EffectiveFrom: from,
		EffectiveTo:   to,
		CreatedAt:     now,
	}, nil
}

// EffectiveAt reports whether the rule is active and its window covers at.
// Open-ended bounds are unbounded.
func (r CommissionRule) EffectiveAt(at time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.EffectiveFrom != nil && at.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && at.After(*r.EffectiveTo) {
		return false
	}
	return true
}

// ResolveCommissionRate picks the applicable rate from candidate rules.
// A rule scoped to the exact store wins over a category rule, which wins
// over the global rule. Within one precedence level the latest
// EffectiveFrom wins; a remaining tie breaks on RuleID so the result is
// deterministic. No resolving rule is a configuration error, never a
// silent default.
func ResolveCommissionRate(rules []CommissionRule, storeID, categoryID string, at time.Time) (decimal.Decimal, error) {
	var seller, category, global *CommissionRule
	for i := range rules {
		r := &rules[i]
		if !r.EffectiveAt(at) {
			continue
		}
		switch r.Scope {
		case CommissionScopeSeller:
			if r.StoreID == storeID && storeID != "" {
				seller = preferRule(seller, r)
			}
		case CommissionScopeCategory:
			if r.CategoryID == categoryID && categoryID != "" {
				category = preferRule(category, r)
			}
		case CommissionScopeGlobal:
			global = preferRule(global, r)
		}
	}
	switch {
	case seller != nil:
		return seller.Rate, nil
	case category != nil:
		return category.Rate, nil
	case global != nil:
		return global.Rate, nil
	}
	return decimal.Zero, ErrNoCommissionRule
}

func preferRule(current, candidate *CommissionRule) *CommissionRule {
	if current == nil {
		return candidate
	}
	cf := effectiveFromOrZero(current)
	nf := effectiveFromOrZero(candidate)
	if nf.After(cf) {
		return candidate
	}
	if nf.Equal(cf) && candidate.RuleID > current.RuleID {
		return candidate
	}
	return current
}

func effectiveFromOrZero(r *CommissionRule) time.Time {
	if r.EffectiveFrom == nil {
		return time.Time{}
	}
	return *r.EffectiveFrom
}

// CommissionFor applies a resolved percentage rate to a seller amount,
// rounded with banker's rounding.
func CommissionFor(sellerAmount, rate decimal.Decimal) decimal.Decimal {
	return RoundMoney(sellerAmount.Mul(rate).Div(hundred))
}
