// Package automation contains the dispatch pipeline: keyword matching,
// response planning and the coordinator that turns an incoming comment
// into replies, DMs and bookkeeping.
package automation

import (
	"strings"

	"social-automator-api/internal/domain"
)

// Match returns every trigger whose keyword occurs in the text,
// case-insensitively, preserving the input order. Callers pass triggers
// ordered by creation time so the first match is the primary one. The
// function is pure.
func Match(text string, triggers []domain.KeywordTrigger) []domain.KeywordTrigger {
	lowered := strings.ToLower(text)

	var matches []domain.KeywordTrigger
	for _, trig := range triggers {
		keyword := strings.ToLower(strings.TrimSpace(trig.Keyword))
		if keyword == "" {
			continue
		}
		if strings.Contains(lowered, keyword) {
			matches = append(matches, trig)
		}
	}
	return matches
}
