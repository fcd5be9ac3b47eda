package domain

import "time"

// MatchStatus is the lifecycle status of a single lead offer to one provider.
type MatchStatus string

const (
	MatchStatusOffered  MatchStatus = "offered"
	MatchStatusViewed   MatchStatus = "viewed"
	MatchStatusAccepted MatchStatus = "accepted"
	MatchStatusDeclined MatchStatus = "declined"
	MatchStatusExpired  MatchStatus = "expired"
	MatchStatusWon      MatchStatus = "won"
	MatchStatusLost     MatchStatus = "lost"
	MatchStatusRefunded MatchStatus = "refunded"
)

// ValidMatchStatus reports whether s is a known match status.
func ValidMatchStatus(s MatchStatus) bool {
	switch s {
	case MatchStatusOffered, MatchStatusViewed, MatchStatusAccepted, MatchStatusDeclined,
		MatchStatusExpired, MatchStatusWon, MatchStatusLost, MatchStatusRefunded:
		return true
	}
	return false
}

// Pending reports whether the provider can still act on the offer.
func (s MatchStatus) Pending() bool {
	return s == MatchStatusOffered || s == MatchStatusViewed
}

// Terminal reports whether the match can never change again.
func (s MatchStatus) Terminal() bool {
	switch s {
	case MatchStatusDeclined, MatchStatusExpired, MatchStatusWon, MatchStatusLost, MatchStatusRefunded:
		return true
	}
	return false
}

// transitions is the full legal state machine:
// offered → viewed → {accepted, declined, expired};
// accepted → {won, lost, refunded}. Nothing else.
var transitions = map[MatchStatus][]MatchStatus{
	MatchStatusOffered:  {MatchStatusViewed, MatchStatusAccepted, MatchStatusDeclined, MatchStatusExpired},
	MatchStatusViewed:   {MatchStatusAccepted, MatchStatusDeclined, MatchStatusExpired},
	MatchStatusAccepted: {MatchStatusWon, MatchStatusLost, MatchStatusRefunded},
}

// CanTransition reports whether from → to is a legal match transition.
func CanTransition(from, to MatchStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AcceptVerdict is the outcome of evaluating an accept attempt against the
// locked match, lead, and wallet rows.
type AcceptVerdict int

const (
	AcceptOK AcceptVerdict = iota
	AcceptInvalidState
	AcceptExpired
	AcceptSoldOut
	AcceptInsufficientBalance
)

// DecideAccept evaluates the accept preconditions in the order the lifecycle
// manager applies them. Checks are ordered so that state errors win over
// expiry, expiry over capacity, and capacity over balance.
func DecideAccept(status MatchStatus, expiresAt *time.Time, now time.Time, soldCount, maxSold int, balanceCents, priceCents int64) AcceptVerdict {
	if !status.Pending() {
		return AcceptInvalidState
	}
	if expiresAt != nil && expiresAt.Before(now) {
		return AcceptExpired
	}
	if soldCount >= maxSold {
		return AcceptSoldOut
	}
	if balanceCents < priceCents {
		return AcceptInsufficientBalance
	}
	return AcceptOK
}
