// Package engine computes the sale price of a lead from workspace pricing
// rules. It is pure: rules come in pre-ordered, money goes out in cents.
package engine

import (
	"math"

	"github.com/google/uuid"

	"leadmarket_backend/internal/leads/domain"
)

// Default pricing used when no rule matches.
const (
	DefaultBasePriceCents      = 2500
	DefaultSurgeMultiplier     = 1.0
	DefaultExclusiveMultiplier = 3.0
)

// Rule is one pricing rule as the engine sees it. Nil filter fields match
// everything. Rules must be passed in priority order; the first match wins.
type Rule struct {
	ID                  uuid.UUID
	ServiceID           *uuid.UUID
	Timing              *domain.Timing
	BasePriceCents      int64
	SurgeMultiplier     float64
	ExclusiveMultiplier float64
}

// Request describes the lead being priced.
type Request struct {
	ServiceIDs  []uuid.UUID
	Timing      domain.Timing
	IsExclusive bool
}

// Quote is the computed price plus the rule that produced it (nil when the
// defaults applied).
type Quote struct {
	PriceCents int64
	RuleID     *uuid.UUID
}

// Calculate picks the first rule matching the request and applies the surge
// and exclusive multipliers multiplicatively. The result is never negative.
func Calculate(rules []Rule, req Request) Quote {
	base := int64(DefaultBasePriceCents)
	surge := DefaultSurgeMultiplier
	exclusive := DefaultExclusiveMultiplier
	var ruleID *uuid.UUID

	for i := range rules {
		r := &rules[i]
		if !matches(r, req) {
			continue
		}
		base = r.BasePriceCents
		surge = r.SurgeMultiplier
		exclusive = r.ExclusiveMultiplier
		id := r.ID
		ruleID = &id
		break
	}

	price := float64(base)
	if domain.SurgeTiming(req.Timing) {
		price *= surge
	}
	if req.IsExclusive {
		price *= exclusive
	}

	cents := int64(math.Round(price))
	if cents < 0 {
		cents = 0
	}
	return Quote{PriceCents: cents, RuleID: ruleID}
}

func matches(r *Rule, req Request) bool {
	if r.ServiceID != nil && !containsID(req.ServiceIDs, *r.ServiceID) {
		return false
	}
	if r.Timing != nil && *r.Timing != req.Timing {
		return false
	}
	return true
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
