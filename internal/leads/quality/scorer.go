// Package quality scores incoming lead requests and flags spam before any
// pricing or routing happens. Scoring is deterministic and side-effect free.
package quality

import (
	"fmt"
	"regexp"
	"strings"
)

// SpamThreshold is the score below which a lead is treated as spam.
const SpamThreshold = 20

// spamKeywords are checked against the combined title+description, lowercase.
// Only the first hit counts; the penalty is not stacked per keyword.
var spamKeywords = []string{
	"viagra", "casino", "crypto", "loan", "porn", "sex", "escort", "bitcoin", "betting",
}

var (
	urlPattern      = regexp.MustCompile(`https?://`)
	testNamePattern = regexp.MustCompile(`\b(test|asdf|qwer)\b`)
)

// Input is the subset of an intake submission the scorer looks at.
type Input struct {
	ConsumerName string
	Phone        string
	Email        string
	PostalCode   string
	Title        string
	Description  string
	Answers      []string
	BudgetSet    bool
}

// Result carries the final score and every reason that moved it.
type Result struct {
	Score   int
	IsSpam  bool
	Reasons []string
}

// Score evaluates a submission. Completeness signals add points, spam signals
// subtract them, and the result is clamped to [0, 100].
func Score(in Input) Result {
	score := 0
	var reasons []string

	if strings.TrimSpace(in.Phone) != "" {
		score += 30
		reasons = append(reasons, "has_phone")
	}
	if strings.TrimSpace(in.Email) != "" {
		score += 30
		reasons = append(reasons, "has_email")
	}
	if strings.TrimSpace(in.ConsumerName) != "" {
		score += 10
		reasons = append(reasons, "has_name")
	}
	if strings.TrimSpace(in.PostalCode) != "" {
		score += 10
		reasons = append(reasons, "has_postal_code")
	}
	if strings.TrimSpace(in.Title) != "" {
		score += 5
		reasons = append(reasons, "has_title")
	}
	if len(strings.TrimSpace(in.Description)) >= 20 {
		score += 10
		reasons = append(reasons, "has_description")
	}
	if in.BudgetSet {
		score += 5
		reasons = append(reasons, "has_budget")
	}

	parts := append([]string{in.Title, in.Description}, in.Answers...)
	text := strings.ToLower(strings.Join(parts, " "))
	for _, kw := range spamKeywords {
		if strings.Contains(text, kw) {
			score -= 40
			reasons = append(reasons, fmt.Sprintf("keyword:%s", kw))
			break
		}
	}
	if len(urlPattern.FindAllStringIndex(text, -1)) >= 2 {
		score -= 25
		reasons = append(reasons, "many_urls")
	}
	if testNamePattern.MatchString(strings.ToLower(in.ConsumerName)) {
		score -= 20
		reasons = append(reasons, "test_name")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Result{
		Score:   score,
		IsSpam:  score < SpamThreshold,
		Reasons: reasons,
	}
}
