package routing

import (
	"math"
	"testing"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func TestHaversineKnownDistance(t *testing.T) {
	// Amsterdam to Rotterdam, roughly 57 km.
	d := Haversine(52.3676, 4.9041, 51.9244, 4.4777)
	if d < 55 || d > 60 {
		t.Fatalf("expected ~57km, got %f", d)
	}
	if Haversine(52.0, 5.0, 52.0, 5.0) != 0 {
		t.Fatal("distance to self must be zero")
	}
}

func TestNearestCoveringArea(t *testing.T) {
	areas := []Area{
		{Lat: 52.3676, Lng: 4.9041, RadiusKm: 10},  // Amsterdam, too far
		{Lat: 51.9244, Lng: 4.4777, RadiusKm: 120}, // Rotterdam, wide
		{Lat: 51.5719, Lng: 4.7683, RadiusKm: 50},  // Breda, close
	}
	// Point near Breda.
	d, covered := NearestCoveringArea(51.60, 4.80, areas)
	if !covered {
		t.Fatal("point should be covered")
	}
	breda := Haversine(51.60, 4.80, 51.5719, 4.7683)
	if math.Abs(d-breda) > 0.001 {
		t.Fatalf("expected nearest covering center %f, got %f", breda, d)
	}

	_, covered = NearestCoveringArea(48.85, 2.35, areas) // Paris
	if covered {
		t.Fatal("point far outside all areas must not be covered")
	}
}

func TestEvaluateBudgetFilter(t *testing.T) {
	p := Prospect{MinBudgetCents: 50000}
	ev := Evaluate(p, LeadFacts{BudgetMaxCents: i64(40000), PriceCents: 2500})
	if ev.Eligible {
		t.Fatal("budget below provider minimum must be rejected")
	}
	if ev.Reason != "budget_below_minimum" {
		t.Fatalf("unexpected reason %q", ev.Reason)
	}

	// No budget on the lead: the filter cannot apply.
	ev = Evaluate(p, LeadFacts{PriceCents: 2500})
	if !ev.Eligible {
		t.Fatalf("lead without budget must pass, got %q", ev.Reason)
	}
}

func TestEvaluatePauseAtZeroBalance(t *testing.T) {
	p := Prospect{PauseAtZeroBalance: true, BalanceCents: 2000}
	ev := Evaluate(p, LeadFacts{PriceCents: 2500})
	if ev.Eligible {
		t.Fatal("paused provider below price must be rejected")
	}

	p.PauseAtZeroBalance = false
	ev = Evaluate(p, LeadFacts{PriceCents: 2500})
	if !ev.Eligible {
		t.Fatal("provider without pause setting is eligible regardless of balance")
	}
}

func TestEvaluateGeo(t *testing.T) {
	areas := []Area{{Lat: 52.3676, Lng: 4.9041, RadiusKm: 25}}
	lead := LeadFacts{PriceCents: 2500, Lat: f64(52.30), Lng: f64(4.95)}

	ev := Evaluate(Prospect{Areas: areas}, lead)
	if !ev.Eligible || ev.DistanceKm == nil {
		t.Fatalf("lead inside area must be eligible with a distance, got %+v", ev)
	}

	far := LeadFacts{PriceCents: 2500, Lat: f64(48.85), Lng: f64(2.35)}
	ev = Evaluate(Prospect{Areas: areas}, far)
	if ev.Eligible {
		t.Fatal("lead outside every area must be rejected")
	}
	if ev.Reason != "outside_service_area" {
		t.Fatalf("unexpected reason %q", ev.Reason)
	}

	// Zero areas means serve anywhere, no distance known.
	ev = Evaluate(Prospect{}, far)
	if !ev.Eligible || ev.DistanceKm != nil {
		t.Fatalf("provider without areas serves anywhere, got %+v", ev)
	}

	// Lead without coordinates cannot be geo-filtered.
	ev = Evaluate(Prospect{Areas: areas}, LeadFacts{PriceCents: 2500})
	if !ev.Eligible || ev.DistanceKm != nil {
		t.Fatalf("lead without coordinates must pass with unknown distance, got %+v", ev)
	}
}

func TestScore(t *testing.T) {
	// Known distance: 50 - 2d, floored at zero.
	if got := Score(f64(10), 0, 0); got != 30+20 {
		t.Fatalf("distance 10km with budget boost should score 50, got %f", got)
	}
	if got := Score(f64(40), 0, 0); got != 0+20 {
		t.Fatalf("distance beyond 25km floors the distance term, got %f", got)
	}
	// Unknown distance: flat 10.
	if got := Score(nil, 0, 0); got != 10+20 {
		t.Fatalf("unknown distance scores flat 10, got %f", got)
	}
	// Balance boost caps at 30 currency units.
	if got := Score(nil, 500000, 0); got != 10+30+20 {
		t.Fatalf("balance boost must cap at 30, got %f", got)
	}
	if got := Score(nil, 1500, 0); got != 10+15+20 {
		t.Fatalf("balance boost is balance/100, got %f", got)
	}
	// Min budget shrinks the boost; very high minimums remove it.
	if got := Score(nil, 0, 100000); got != 20 {
		t.Fatalf("min budget of 1000 units should leave boost 10, got %f", got)
	}
	if got := Score(nil, 0, 1000000); got != 10 {
		t.Fatalf("huge min budget removes the boost entirely, got %f", got)
	}
}

func TestRankOrdersAndCaps(t *testing.T) {
	lead := LeadFacts{PriceCents: 2500}
	prospects := []Prospect{
		{Index: 0, BalanceCents: 1000},                         // 10 + 10 + 20 = 40
		{Index: 1, BalanceCents: 3000},                         // 10 + 30 + 20 = 60
		{Index: 2, BalanceCents: 1000},                         // 40, ties with 0
		{Index: 3, PauseAtZeroBalance: true, BalanceCents: 0},  // filtered
		{Index: 4, BalanceCents: 2000},                         // 10 + 20 + 20 = 50
	}

	ranked := Rank(prospects, lead, 3)
	if len(ranked) != 3 {
		t.Fatalf("expected cap at 3, got %d", len(ranked))
	}
	if ranked[0].Index != 1 || ranked[1].Index != 4 {
		t.Fatalf("expected best-first order [1 4 ...], got %v", ranked)
	}
	// Tie between index 0 and 2 keeps insertion order; only one fits the cap.
	if ranked[2].Index != 0 {
		t.Fatalf("tie must keep insertion order, got index %d", ranked[2].Index)
	}

	all := Rank(prospects, lead, 10)
	if len(all) != 4 {
		t.Fatalf("expected 4 eligible, got %d", len(all))
	}
	if all[3].Index != 2 {
		t.Fatalf("second tied prospect must come last, got %d", all[3].Index)
	}
}
