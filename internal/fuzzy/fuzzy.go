// Package fuzzy resolves human entered names against known names using
// sequence similarity ratios.
package fuzzy

import (
	"errors"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultCutoff is the minimum similarity ratio for a match
const DefaultCutoff = 0.6

// ErrNoMatch is returned when no known name clears the cutoff
var ErrNoMatch = errors.New("no sufficiently close match")

// Matcher selects the closest known name above a cutoff
type Matcher struct {
	Cutoff float64
}

// New returns a Matcher. A cutoff outside (0, 1] falls back to DefaultCutoff.
func New(cutoff float64) *Matcher {
	if cutoff <= 0 || cutoff > 1 {
		cutoff = DefaultCutoff
	}
	return &Matcher{Cutoff: cutoff}
}

// BestMatch returns the known name most similar to candidate, if any clears the cutoff.
// Ties go to the lexically greater name.
func (m *Matcher) BestMatch(candidate string, known []string) (string, bool) {
	if len(known) == 0 {
		return "", false
	}

	sm := difflib.NewMatcher(nil, chars(candidate))
	best := ""
	bestScore := -1.0
	for _, k := range known {
		sm.SetSeq1(chars(k))
		if sm.RealQuickRatio() < m.Cutoff || sm.QuickRatio() < m.Cutoff {
			continue
		}
		score := sm.Ratio()
		if score < m.Cutoff {
			continue
		}
		if score > bestScore || (score == bestScore && k > best) {
			best = k
			bestScore = score
		}
	}

	if bestScore < 0 {
		return "", false
	}
	return best, true
}

// Ratio returns the similarity of a and b in [0, 1]
func Ratio(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

// Normalize lowercases text and collapses whitespace
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func chars(s string) []string {
	result := make([]string, 0, len(s))
	for _, r := range s {
		result = append(result, string(r))
	}
	return result
}
