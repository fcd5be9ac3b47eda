package routing

import "sort"

// Prospect is one candidate provider as the ranker sees it.
type Prospect struct {
	Index              int // insertion order, the tie-breaker
	MinBudgetCents     int64
	PauseAtZeroBalance bool
	BalanceCents       int64
	Areas              []Area
}

// LeadFacts are the lead attributes the ranker needs.
type LeadFacts struct {
	BudgetMaxCents *int64
	PriceCents     int64
	Lat            *float64
	Lng            *float64
}

// Evaluation is the filter verdict for one prospect.
type Evaluation struct {
	Eligible   bool
	Reason     string
	DistanceKm *float64
	Score      float64
}

// Evaluate applies the eligibility filters and, for eligible prospects,
// computes the ranking score.
func Evaluate(p Prospect, lead LeadFacts) Evaluation {
	if lead.BudgetMaxCents != nil && *lead.BudgetMaxCents < p.MinBudgetCents {
		return Evaluation{Reason: "budget_below_minimum"}
	}
	if p.PauseAtZeroBalance && p.BalanceCents < lead.PriceCents {
		return Evaluation{Reason: "insufficient_balance"}
	}

	var distance *float64
	if lead.Lat != nil && lead.Lng != nil && len(p.Areas) > 0 {
		d, covered := NearestCoveringArea(*lead.Lat, *lead.Lng, p.Areas)
		if !covered {
			return Evaluation{Reason: "outside_service_area"}
		}
		distance = &d
	}
	// No areas means the provider serves anywhere; no lead coordinates means
	// geography cannot filter.

	return Evaluation{
		Eligible:   true,
		DistanceKm: distance,
		Score:      Score(distance, p.BalanceCents, p.MinBudgetCents),
	}
}

// Score computes the ranking score. Distance dominates when known; balance
// and a low minimum budget act as tie-breaking boosts. Monetary terms use
// whole currency units.
func Score(distanceKm *float64, balanceCents, minBudgetCents int64) float64 {
	var score float64
	if distanceKm != nil {
		score = 50 - 2**distanceKm
		if score < 0 {
			score = 0
		}
	} else {
		score = 10
	}

	balance := float64(balanceCents) / 100
	if balance > 30 {
		balance = 30
	}
	score += balance

	budgetBoost := 20 - float64(minBudgetCents)/100/100
	if budgetBoost > 0 {
		score += budgetBoost
	}
	return score
}

// Ranked is one prospect that survived filtering, in final order.
type Ranked struct {
	Index      int
	DistanceKm *float64
	Score      float64
}

// Rank filters and orders prospects best first, keeping at most maxOffers.
// Ties keep insertion order.
func Rank(prospects []Prospect, lead LeadFacts, maxOffers int) []Ranked {
	ranked := make([]Ranked, 0, len(prospects))
	for _, p := range prospects {
		ev := Evaluate(p, lead)
		if !ev.Eligible {
			continue
		}
		ranked = append(ranked, Ranked{Index: p.Index, DistanceKm: ev.DistanceKm, Score: ev.Score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if maxOffers > 0 && len(ranked) > maxOffers {
		ranked = ranked[:maxOffers]
	}
	return ranked
}
