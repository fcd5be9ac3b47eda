package quality

import (
	"slices"
	"testing"
)

func TestScoreCompleteLead(t *testing.T) {
	res := Score(Input{
		ConsumerName: "Jane Miller",
		Phone:        "+14155550123",
		Email:        "jane@example.com",
		PostalCode:   "94107",
		Title:        "Kitchen remodel",
		Description:  "Full kitchen remodel including cabinets and counters.",
		BudgetSet:    true,
	})
	if res.Score != 100 {
		t.Fatalf("expected full score 100, got %d (reasons %v)", res.Score, res.Reasons)
	}
	if res.IsSpam {
		t.Fatal("complete lead must not be spam")
	}
	for _, want := range []string{"has_phone", "has_email", "has_name", "has_postal_code", "has_title", "has_description", "has_budget"} {
		if !slices.Contains(res.Reasons, want) {
			t.Errorf("missing reason %q in %v", want, res.Reasons)
		}
	}
}

func TestScoreShortDescriptionGetsNoDescriptionPoints(t *testing.T) {
	with := Score(Input{Phone: "+1415", Description: "a description of twenty+ characters"})
	without := Score(Input{Phone: "+1415", Description: "too short"})
	if with.Score-without.Score != 10 {
		t.Fatalf("description bonus should be 10, got %d", with.Score-without.Score)
	}
}

func TestScoreSpamKeywordStopsAtFirstMatch(t *testing.T) {
	res := Score(Input{
		Phone:       "+14155550123",
		Email:       "x@example.com",
		Title:       "cheap casino and crypto deals",
		Description: "best casino crypto betting offers around",
	})
	// 30+30+5+10 = 75, minus a single keyword penalty of 40.
	if res.Score != 35 {
		t.Fatalf("expected 35, got %d (reasons %v)", res.Score, res.Reasons)
	}
	hits := 0
	for _, r := range res.Reasons {
		if len(r) > 8 && r[:8] == "keyword:" {
			hits++
		}
	}
	if hits != 1 {
		t.Fatalf("expected exactly one keyword reason, got %d in %v", hits, res.Reasons)
	}
	if !slices.Contains(res.Reasons, "keyword:casino") {
		t.Fatalf("expected first keyword in list order (casino), got %v", res.Reasons)
	}
}

func TestScoreManyURLs(t *testing.T) {
	one := Score(Input{Phone: "+1415", Description: "see https://a.example for details and photos"})
	two := Score(Input{Phone: "+1415", Description: "see https://a.example and http://b.example now!"})
	if slices.Contains(one.Reasons, "many_urls") {
		t.Fatal("single URL must not trigger many_urls")
	}
	if !slices.Contains(two.Reasons, "many_urls") {
		t.Fatalf("two URLs must trigger many_urls, reasons %v", two.Reasons)
	}
	if one.Score-two.Score != 25 {
		t.Fatalf("URL penalty should be 25, got %d", one.Score-two.Score)
	}
}

func TestScoreTestName(t *testing.T) {
	res := Score(Input{ConsumerName: "Test User", Phone: "+14155550123"})
	if !slices.Contains(res.Reasons, "test_name") {
		t.Fatalf("expected test_name reason, got %v", res.Reasons)
	}
	// "Detester" contains "test" but not as a word.
	clean := Score(Input{ConsumerName: "Ann Detester", Phone: "+14155550123"})
	if slices.Contains(clean.Reasons, "test_name") {
		t.Fatalf("substring match must not trigger test_name, got %v", clean.Reasons)
	}
}

func TestScoreAnswersFeedSpamText(t *testing.T) {
	res := Score(Input{
		Phone:   "+14155550123",
		Answers: []string{"prefer mornings", "pay in bitcoin please"},
	})
	if !slices.Contains(res.Reasons, "keyword:bitcoin") {
		t.Fatalf("answers must be scanned for keywords, reasons %v", res.Reasons)
	}
}

func TestScoreClampsToZeroAndFlagsSpam(t *testing.T) {
	res := Score(Input{
		ConsumerName: "test",
		Title:        "casino",
		Description:  "visit https://a.example https://b.example",
	})
	if res.Score != 0 {
		t.Fatalf("expected clamp to 0, got %d", res.Score)
	}
	if !res.IsSpam {
		t.Fatal("score below threshold must be spam")
	}
}

func TestSpamThresholdBoundary(t *testing.T) {
	// name (+10) + postal (+10) = 20, exactly at threshold: not spam.
	res := Score(Input{ConsumerName: "Jane", PostalCode: "94107"})
	if res.Score != 20 {
		t.Fatalf("expected 20, got %d", res.Score)
	}
	if res.IsSpam {
		t.Fatal("score equal to threshold is not spam")
	}
	// name only = 10: spam.
	low := Score(Input{ConsumerName: "Jane"})
	if !low.IsSpam {
		t.Fatalf("score %d below threshold must be spam", low.Score)
	}
}
