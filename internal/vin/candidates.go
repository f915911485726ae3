package vin

import (
	"regexp"
	"strings"
)

// minCandidateLen is deliberately looser than Length; validation is the only filter.
const minCandidateLen = 15

var (
	reRun      = regexp.MustCompile(`[A-Z0-9]{15,}`)
	reLabeled  = regexp.MustCompile(`(?:VIN|VEHICLE\s*IDENTIFICATION\s*NUMBER)\s*[:#]?\s*([A-Z0-9]{15,17})`)
	reNonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)

	wordSeparators = strings.NewReplacer("-", "", "_", "")
)

// GenerateCandidates runs every matching strategy over the normalized variants and
// the individual blocks. The result is de-duplicated by exact string and keeps the
// order in which each string was first produced.
//
// Direct runs are only taken from inside one block. A VIN broken over two lines is
// recovered from the seam of each adjacent block pair, and only when the run that
// crosses the seam is exactly 17 characters.
func GenerateCandidates(variants []string, blocks []TextBlock) []Candidate {
	cs := newCandidateSet(blocks)

	for _, v := range variants {
		for _, run := range reRun.FindAllString(v, -1) {
			if !cs.withinBlock(run) {
				continue
			}
			cs.add(run, StrategyDirect)
			if len(run) > Length {
				// label or trailing noise glued on once whitespace is gone
				cs.add(run[:Length], StrategyDirect)
				cs.add(run[len(run)-Length:], StrategyDirect)
			}
		}
		for _, m := range reLabeled.FindAllStringSubmatch(v, -1) {
			cs.add(m[1], StrategyLabeled)
		}
	}

	for i := 0; i+1 < len(cs.compacted); i++ {
		seam := len(cs.compacted[i])
		joined := cs.compacted[i] + cs.compacted[i+1]
		for _, loc := range reRun.FindAllStringIndex(joined, -1) {
			if loc[0] < seam && loc[1] > seam && loc[1]-loc[0] == Length {
				cs.add(joined[loc[0]:loc[1]], StrategyDirect)
			}
		}
	}

	// word-level fallback
	for _, b := range blocks {
		line := wordSeparators.Replace(strings.ToUpper(b.Text))
		for _, tok := range strings.Fields(line) {
			if w := reNonAlnum.ReplaceAllString(tok, ""); len(w) == Length {
				cs.add(w, StrategyWord)
			}
		}
		if w := reNonAlnum.ReplaceAllString(line, ""); len(w) == Length {
			cs.add(w, StrategyWord)
		}
	}
	return cs.out
}

type candidateSet struct {
	compacted []string
	seen      map[string]struct{}
	out       []Candidate
}

func newCandidateSet(blocks []TextBlock) *candidateSet {
	c := make([]string, len(blocks))
	for i, b := range blocks {
		c[i] = compact(b.Text)
	}
	return &candidateSet{compacted: c, seen: map[string]struct{}{}}
}

func (cs *candidateSet) add(text string, strategy MatchStrategy) {
	if len(text) < minCandidateLen {
		return
	}
	if _, dup := cs.seen[text]; dup {
		return
	}
	cs.seen[text] = struct{}{}
	cs.out = append(cs.out, Candidate{
		Text:         text,
		Strategy:     strategy,
		SourceBlocks: cs.sources(text),
		Order:        len(cs.out),
	})
}

func (cs *candidateSet) withinBlock(run string) bool {
	for _, c := range cs.compacted {
		if strings.Contains(c, run) {
			return true
		}
	}
	return false
}

func (cs *candidateSet) sources(text string) []int {
	var idx []int
	for i, c := range cs.compacted {
		if strings.Contains(c, text) {
			idx = append(idx, i)
		}
	}
	return idx
}
