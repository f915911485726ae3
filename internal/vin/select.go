package vin

import (
	"slices"
	"strings"
)

// Select picks the best candidate. Ordering is by Rank, then Base, then the
// lexicographically smallest string, so the outcome never depends on generation
// order. runnersUp holds the remaining candidates in ranked order.
func Select(scored []ScoredCandidate) (best ScoredCandidate, runnersUp []ScoredCandidate, ok bool) {
	if len(scored) == 0 {
		return ScoredCandidate{}, nil, false
	}
	ranked := slices.Clone(scored)
	slices.SortStableFunc(ranked, compareRanked)
	return ranked[0], ranked[1:], true
}

func compareRanked(a, b ScoredCandidate) int {
	if a.Rank != b.Rank {
		if a.Rank > b.Rank {
			return -1
		}
		return 1
	}
	if a.Base != b.Base {
		if a.Base > b.Base {
			return -1
		}
		return 1
	}
	return strings.Compare(a.Text, b.Text)
}
