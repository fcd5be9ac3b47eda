package domain

import (
	"testing"
	"time"
)

func TestCanTransitionMatrix(t *testing.T) {
	legal := []struct{ from, to MatchStatus }{
		{MatchStatusOffered, MatchStatusViewed},
		{MatchStatusOffered, MatchStatusAccepted},
		{MatchStatusOffered, MatchStatusDeclined},
		{MatchStatusOffered, MatchStatusExpired},
		{MatchStatusViewed, MatchStatusAccepted},
		{MatchStatusViewed, MatchStatusDeclined},
		{MatchStatusViewed, MatchStatusExpired},
		{MatchStatusAccepted, MatchStatusWon},
		{MatchStatusAccepted, MatchStatusLost},
		{MatchStatusAccepted, MatchStatusRefunded},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to MatchStatus }{
		{MatchStatusViewed, MatchStatusOffered},
		{MatchStatusAccepted, MatchStatusDeclined},
		{MatchStatusDeclined, MatchStatusAccepted},
		{MatchStatusExpired, MatchStatusAccepted},
		{MatchStatusWon, MatchStatusLost},
		{MatchStatusRefunded, MatchStatusAccepted},
		{MatchStatusLost, MatchStatusWon},
	}
	for _, tc := range illegal {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be illegal", tc.from, tc.to)
		}
	}
}

func TestTerminalStatusesAreDeadEnds(t *testing.T) {
	all := []MatchStatus{
		MatchStatusOffered, MatchStatusViewed, MatchStatusAccepted, MatchStatusDeclined,
		MatchStatusExpired, MatchStatusWon, MatchStatusLost, MatchStatusRefunded,
	}
	for _, from := range all {
		if !from.Terminal() {
			continue
		}
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal status %s must not transition to %s", from, to)
			}
		}
	}
}

func TestDecideAccept(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Minute)

	cases := []struct {
		name      string
		status    MatchStatus
		expiresAt *time.Time
		sold      int
		maxSold   int
		balance   int64
		price     int64
		want      AcceptVerdict
	}{
		{"offered ok", MatchStatusOffered, &future, 0, 3, 5000, 2500, AcceptOK},
		{"viewed ok", MatchStatusViewed, &future, 2, 3, 2500, 2500, AcceptOK},
		{"no expiry ok", MatchStatusOffered, nil, 0, 1, 2500, 2500, AcceptOK},
		{"already accepted", MatchStatusAccepted, &future, 0, 3, 5000, 2500, AcceptInvalidState},
		{"declined", MatchStatusDeclined, &future, 0, 3, 5000, 2500, AcceptInvalidState},
		{"expired offer", MatchStatusOffered, &past, 0, 3, 5000, 2500, AcceptExpired},
		{"sold out", MatchStatusViewed, &future, 1, 1, 5000, 2500, AcceptSoldOut},
		{"insufficient balance", MatchStatusOffered, &future, 0, 3, 2000, 2500, AcceptInsufficientBalance},
		// Expiry wins over sold-out; sold-out wins over balance.
		{"expired and sold out", MatchStatusOffered, &past, 1, 1, 0, 2500, AcceptExpired},
		{"sold out and broke", MatchStatusOffered, &future, 1, 1, 0, 2500, AcceptSoldOut},
	}

	for _, tc := range cases {
		got := DecideAccept(tc.status, tc.expiresAt, now, tc.sold, tc.maxSold, tc.balance, tc.price)
		if got != tc.want {
			t.Errorf("%s: got verdict %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestNormalizeMaxSold(t *testing.T) {
	if got := NormalizeMaxSold(5, true); got != 1 {
		t.Fatalf("exclusive lead must cap at 1, got %d", got)
	}
	if got := NormalizeMaxSold(0, false); got != DefaultMaxSoldCount {
		t.Fatalf("unset max sold must default to %d, got %d", DefaultMaxSoldCount, got)
	}
	if got := NormalizeMaxSold(2, false); got != 2 {
		t.Fatalf("explicit max sold must be kept, got %d", got)
	}
}

func TestLeadStatusBlocksDuplicate(t *testing.T) {
	blocking := []LeadStatus{LeadStatusNew, LeadStatusRouting, LeadStatusRouted, LeadStatusPartial}
	for _, s := range blocking {
		if !s.BlocksDuplicate() {
			t.Errorf("status %s should block duplicates", s)
		}
	}
	nonBlocking := []LeadStatus{LeadStatusClosed, LeadStatusExpired, LeadStatusSpam, LeadStatusDuplicate}
	for _, s := range nonBlocking {
		if s.BlocksDuplicate() {
			t.Errorf("status %s should not block duplicates", s)
		}
	}
}
