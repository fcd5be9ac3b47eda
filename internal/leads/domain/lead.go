// Package domain provides core business rules for the lead marketplace:
// status vocabularies, the match state machine, and the accept decision.
// Everything here is pure and free of I/O.
package domain

import "time"

// LeadStatus is the lifecycle status of a lead request. Transitions only move
// forward; closed/spam leads are never resurrected by this core.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusSpam      LeadStatus = "spam"
	LeadStatusRouting   LeadStatus = "routing"
	LeadStatusRouted    LeadStatus = "routed"
	LeadStatusPartial   LeadStatus = "partial"
	LeadStatusClosed    LeadStatus = "closed"
	LeadStatusExpired   LeadStatus = "expired"
	LeadStatusDuplicate LeadStatus = "duplicate"
)

// ValidLeadStatus reports whether s is a known lead status.
func ValidLeadStatus(s LeadStatus) bool {
	switch s {
	case LeadStatusNew, LeadStatusSpam, LeadStatusRouting, LeadStatusRouted,
		LeadStatusPartial, LeadStatusClosed, LeadStatusExpired, LeadStatusDuplicate:
		return true
	}
	return false
}

// Timing is how urgently the consumer wants the work done.
type Timing string

const (
	TimingASAP     Timing = "asap"
	TimingWithin24 Timing = "within_24h"
	TimingThisWeek Timing = "this_week"
	TimingFlexible Timing = "flexible"
	TimingPlanning Timing = "planning"
)

// ValidTiming reports whether t is a known timing value.
func ValidTiming(t Timing) bool {
	switch t {
	case TimingASAP, TimingWithin24, TimingThisWeek, TimingFlexible, TimingPlanning:
		return true
	}
	return false
}

// SurgeTiming reports whether the timing triggers the surge multiplier.
func SurgeTiming(t Timing) bool {
	return t == TimingASAP || t == TimingWithin24
}

// dedupeExcluded are lead statuses that do not block a new submission with
// the same contact details: the earlier lead already ran its course.
var dedupeExcluded = map[LeadStatus]bool{
	LeadStatusClosed:    true,
	LeadStatusExpired:   true,
	LeadStatusSpam:      true,
	LeadStatusDuplicate: true,
}

// BlocksDuplicate reports whether a prior lead in this status makes a new
// submission with the same phone/email a duplicate.
func (s LeadStatus) BlocksDuplicate() bool {
	return !dedupeExcluded[s]
}

var leadStatuses = []LeadStatus{
	LeadStatusNew, LeadStatusSpam, LeadStatusRouting, LeadStatusRouted,
	LeadStatusPartial, LeadStatusClosed, LeadStatusExpired, LeadStatusDuplicate,
}

// DedupeExcludedStatuses lists the statuses that do not block a duplicate
// submission, for persistence-side filtering of the dedupe lookup.
func DedupeExcludedStatuses() []LeadStatus {
	out := make([]LeadStatus, 0, len(dedupeExcluded))
	for _, s := range leadStatuses {
		if !s.BlocksDuplicate() {
			out = append(out, s)
		}
	}
	return out
}

// Routable reports whether the routing engine may pick up a lead in this status.
func (s LeadStatus) Routable() bool {
	return s == LeadStatusNew || s == LeadStatusRouting
}

// DefaultMaxSoldCount is how many providers a non-exclusive lead may be sold to.
const DefaultMaxSoldCount = 3

// NormalizeMaxSold applies the exclusivity rule: an exclusive lead is sold to
// at most one provider, whatever the caller asked for.
func NormalizeMaxSold(requested int, exclusive bool) int {
	if exclusive {
		return 1
	}
	if requested < 1 {
		return DefaultMaxSoldCount
	}
	return requested
}

// OfferTTL is how long a match offer stays open before expiring.
const OfferTTL = 24 * time.Hour

// DedupeWindow is how far back the intake dedupe check looks.
const DedupeWindow = 24 * time.Hour
