package usecase

import (
	"regexp"
	"strings"
)

// Package-level compiled regex pattern for performance
var wordRegex = regexp.MustCompile(`[a-z0-9]+`)

// QueryMatcher scores lexical overlap between a query and listing titles.
type QueryMatcher struct{}

// NewQueryMatcher creates a new query matcher.
func NewQueryMatcher() *QueryMatcher {
	return &QueryMatcher{}
}

// Match returns |query tokens ∩ title tokens| / |query tokens| in [0,1].
// Both strings go through the same lowercase word tokenizer; token
// multiplicity is ignored. An empty query tokenization yields 0.
func (m *QueryMatcher) Match(query, title string) float64 {
	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		return 0
	}

	titleTokens := tokenSet(title)

	matched := 0
	for token := range queryTokens {
		if titleTokens[token] {
			matched++
		}
	}

	return float64(matched) / float64(len(queryTokens))
}

// MatchedTerms returns the query tokens that appear in the title, for
// diagnostics alongside the score.
func (m *QueryMatcher) MatchedTerms(query, title string) []string {
	titleTokens := tokenSet(title)

	var matched []string
	seen := make(map[string]bool)
	for _, token := range wordRegex.FindAllString(strings.ToLower(query), -1) {
		if titleTokens[token] && !seen[token] {
			matched = append(matched, token)
			seen[token] = true
		}
	}
	return matched
}

// tokenSet splits a string into a set of normalized lowercase word tokens.
func tokenSet(s string) map[string]bool {
	words := wordRegex.FindAllString(strings.ToLower(s), -1)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
