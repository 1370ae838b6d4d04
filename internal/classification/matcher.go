package classification

import (
	"cmp"
	"slices"
	"strings"

	"civicwatch/internal/category"
)

// Match is a prediction that passed a category's keyword filter and threshold.
type Match struct {
	Label    string
	Score    float64
	Category category.Category
}

// Outcome is the result of matching predictions against the registry.
// TopPrediction echoes the first raw prediction; it is not the highest scoring one.
type Outcome struct {
	BestMatch     *Match
	TopPrediction *Prediction
}

// Matcher maps raw predictions onto categories.
type Matcher struct {
	registry *category.Registry
}

// NewMatcher creates a matcher over the given registry.
func NewMatcher(registry *category.Registry) *Matcher {
	return &Matcher{registry: registry}
}

// Match expands every prediction into one candidate per category whose keywords
// occur in its lower-cased label, drops candidates below the category threshold,
// and ranks the rest by score. The best match is the highest ranked candidate
// for expectedID when there is one, otherwise the highest ranked candidate.
func (m *Matcher) Match(predictions []Prediction, expectedID string) Outcome {
	var out Outcome
	if len(predictions) == 0 {
		return out
	}
	top := predictions[0]
	out.TopPrediction = &top

	categories := m.registry.All()
	var matches []Match
	for _, p := range predictions {
		label := strings.ToLower(p.Label)
		for _, c := range categories {
			if !c.MatchesLabel(label) {
				continue
			}
			// NaN never passes.
			if !(p.Score >= c.Threshold) {
				continue
			}
			matches = append(matches, Match{Label: p.Label, Score: p.Score, Category: c})
		}
	}
	if len(matches) == 0 {
		return out
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})

	best := matches[0]
	if expectedID != "" {
		for _, mt := range matches {
			if mt.Category.ID == expectedID {
				best = mt
				break
			}
		}
	}
	out.BestMatch = &best
	return out
}
