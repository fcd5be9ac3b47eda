package engine

import (
	"testing"

	"github.com/google/uuid"

	"leadmarket_backend/internal/leads/domain"
)

func timingPtr(t domain.Timing) *domain.Timing { return &t }

func TestCalculateDefaultsWhenNoRules(t *testing.T) {
	q := Calculate(nil, Request{Timing: domain.TimingFlexible})
	if q.PriceCents != DefaultBasePriceCents {
		t.Fatalf("expected default base %d, got %d", DefaultBasePriceCents, q.PriceCents)
	}
	if q.RuleID != nil {
		t.Fatal("no rule should be attributed")
	}
}

func TestCalculateDefaultExclusiveTriplesPrice(t *testing.T) {
	q := Calculate(nil, Request{Timing: domain.TimingFlexible, IsExclusive: true})
	if q.PriceCents != 7500 {
		t.Fatalf("expected 7500, got %d", q.PriceCents)
	}
}

func TestCalculateFirstMatchWins(t *testing.T) {
	svcA := uuid.New()
	svcB := uuid.New()
	rules := []Rule{
		{ID: uuid.New(), ServiceID: &svcB, BasePriceCents: 9999, SurgeMultiplier: 1, ExclusiveMultiplier: 1},
		{ID: uuid.New(), ServiceID: &svcA, BasePriceCents: 4000, SurgeMultiplier: 1.5, ExclusiveMultiplier: 2},
		{ID: uuid.New(), BasePriceCents: 1000, SurgeMultiplier: 1, ExclusiveMultiplier: 1},
	}

	q := Calculate(rules, Request{ServiceIDs: []uuid.UUID{svcA}, Timing: domain.TimingThisWeek})
	if q.PriceCents != 4000 {
		t.Fatalf("expected second rule's base 4000, got %d", q.PriceCents)
	}
	if q.RuleID == nil || *q.RuleID != rules[1].ID {
		t.Fatal("quote should reference the matching rule")
	}
}

func TestCalculateSurgeAppliesOnlyForUrgentTiming(t *testing.T) {
	rules := []Rule{{ID: uuid.New(), BasePriceCents: 2000, SurgeMultiplier: 1.5, ExclusiveMultiplier: 3}}

	urgent := Calculate(rules, Request{Timing: domain.TimingASAP})
	if urgent.PriceCents != 3000 {
		t.Fatalf("asap should surge to 3000, got %d", urgent.PriceCents)
	}
	soon := Calculate(rules, Request{Timing: domain.TimingWithin24})
	if soon.PriceCents != 3000 {
		t.Fatalf("within_24h should surge to 3000, got %d", soon.PriceCents)
	}
	relaxed := Calculate(rules, Request{Timing: domain.TimingPlanning})
	if relaxed.PriceCents != 2000 {
		t.Fatalf("planning should not surge, got %d", relaxed.PriceCents)
	}
}

func TestCalculateMultipliersCompose(t *testing.T) {
	rules := []Rule{{ID: uuid.New(), BasePriceCents: 2000, SurgeMultiplier: 1.5, ExclusiveMultiplier: 2}}
	q := Calculate(rules, Request{Timing: domain.TimingASAP, IsExclusive: true})
	// 2000 * 1.5 * 2, multiplicative not additive.
	if q.PriceCents != 6000 {
		t.Fatalf("expected 6000, got %d", q.PriceCents)
	}
}

func TestCalculateTimingFilter(t *testing.T) {
	rules := []Rule{
		{ID: uuid.New(), Timing: timingPtr(domain.TimingASAP), BasePriceCents: 3000, SurgeMultiplier: 2, ExclusiveMultiplier: 1},
	}

	q := Calculate(rules, Request{Timing: domain.TimingASAP})
	if q.PriceCents != 6000 {
		t.Fatalf("timing rule with surge should yield 6000, got %d", q.PriceCents)
	}

	q = Calculate(rules, Request{Timing: domain.TimingFlexible})
	if q.PriceCents != DefaultBasePriceCents {
		t.Fatalf("nothing matches, defaults expected, got %d", q.PriceCents)
	}
}

func TestCalculateRoundsToWholeCents(t *testing.T) {
	rules := []Rule{{ID: uuid.New(), BasePriceCents: 1001, SurgeMultiplier: 1.5, ExclusiveMultiplier: 1}}
	q := Calculate(rules, Request{Timing: domain.TimingASAP})
	// 1001 * 1.5 = 1501.5, rounds to 1502.
	if q.PriceCents != 1502 {
		t.Fatalf("expected 1502, got %d", q.PriceCents)
	}
}
