package domain

import "testing"

func TestDedupeExcludedStatusesMatchesPredicate(t *testing.T) {
	excluded := DedupeExcludedStatuses()
	if len(excluded) != 4 {
		t.Fatalf("expected 4 excluded statuses, got %v", excluded)
	}
	for _, s := range excluded {
		if s.BlocksDuplicate() {
			t.Errorf("excluded status %s still blocks duplicates", s)
		}
	}
	seen := make(map[LeadStatus]bool, len(excluded))
	for _, s := range excluded {
		seen[s] = true
	}
	for _, s := range leadStatuses {
		if !s.BlocksDuplicate() && !seen[s] {
			t.Errorf("status %s is missing from the excluded list", s)
		}
	}
}
