package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func rulePtr(t *testing.T, id string, scope CommissionScope, storeID, categoryID string, rate int64, from *time.Time) CommissionRule {
	t.Helper()
	rule, err := NewCommissionRule(id, scope, storeID, categoryID, decimal.NewFromInt(rate), from, nil, testTime())
	if err != nil {
		t.Fatalf("new commission rule %s: %v", id, err)
	}
	return rule
}

func TestNewCommissionRuleValidation(t *testing.T) {
	t.Parallel()
	now := testTime()

	if _, err := NewCommissionRule("r1", CommissionScopeSeller, "", "", decimal.NewFromInt(10), nil, nil, now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("seller scope without store should fail, got %v", err)
	}
	if _, err := NewCommissionRule("r1", CommissionScopeCategory, "", "", decimal.NewFromInt(10), nil, nil, now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("category scope without category should fail, got %v", err)
	}
	if _, err := NewCommissionRule("r1", CommissionScopeGlobal, "", "", decimal.NewFromInt(101), nil, nil, now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("rate above 100 should fail, got %v", err)
	}
	from := now
	to := now.Add(-time.Hour)
	if _, err := NewCommissionRule("r1", CommissionScopeGlobal, "", "", decimal.NewFromInt(10), &from, &to, now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("inverted window should fail, got %v", err)
	}
}

func TestResolveCommissionRatePrecedence(t *testing.T) {
	t.Parallel()
	at := testTime()
	rules := []CommissionRule{
		rulePtr(t, "global", CommissionScopeGlobal, "", "", 10, nil),
		rulePtr(t, "category", CommissionScopeCategory, "", "cat-1", 8, nil),
		rulePtr(t, "seller", CommissionScopeSeller, "store-1", "", 5, nil),
	}

	rate, err := ResolveCommissionRate(rules, "store-1", "cat-1", at)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rate.String() != "5" {
		t.Fatalf("seller rule should win, got %s", rate)
	}

	rate, err = ResolveCommissionRate(rules, "store-other", "cat-1", at)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rate.String() != "8" {
		t.Fatalf("category rule should win, got %s", rate)
	}

	rate, err = ResolveCommissionRate(rules, "store-other", "cat-other", at)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rate.String() != "10" {
		t.Fatalf("global rule should win, got %s", rate)
	}
}

func TestResolveCommissionRateLatestEffectiveFromWins(t *testing.T) {
	t.Parallel()
	at := testTime()
	older := at.Add(-48 * time.Hour)
	newer := at.Add(-24 * time.Hour)
	rules := []CommissionRule{
		rulePtr(t, "g-old", CommissionScopeGlobal, "", "", 12, &older),
		rulePtr(t, "g-new", CommissionScopeGlobal, "", "", 9, &newer),
	}
	rate, err := ResolveCommissionRate(rules, "", "", at)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rate.String() != "9" {
		t.Fatalf("latest effective rule should win, got %s", rate)
	}
}

func TestResolveCommissionRateTieBreaksOnRuleID(t *testing.T) {
	t.Parallel()
	at := testTime()
	rules := []CommissionRule{
		rulePtr(t, "aaa", CommissionScopeGlobal, "", "", 12, nil),
		rulePtr(t, "zzz", CommissionScopeGlobal, "", "", 9, nil),
	}
	rate, err := ResolveCommissionRate(rules, "", "", at)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if rate.String() != "9" {
		t.Fatalf("highest rule id should win the tie, got %s", rate)
	}
}

func TestResolveCommissionRateNoRule(t *testing.T) {
	t.Parallel()
	expired := rulePtr(t, "g1", CommissionScopeGlobal, "", "", 10, nil)
	expired.IsActive = false
	if _, err := ResolveCommissionRate([]CommissionRule{expired}, "", "", testTime()); !errors.Is(err, ErrNoCommissionRule) {
		t.Fatalf("expected no commission rule error, got %v", err)
	}
}

func TestCommissionForBankersRounding(t *testing.T) {
	t.Parallel()
	// 10.25% of 33 is 3.3825, rounded to 3.38.
	got := CommissionFor(decimal.NewFromInt(33), decimal.NewFromFloat(10.25))
	if got.String() != "3.38" {
		t.Fatalf("expected 3.38, got %s", got)
	}
	// 0.125 rounds to the even cent, 0.12.
	got = CommissionFor(decimal.NewFromFloat(1.25), decimal.NewFromInt(10))
	if got.String() != "0.12" {
		t.Fatalf("expected 0.12, got %s", got)
	}
}
