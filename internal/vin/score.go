package vin

import "strings"

const (
	// DefaultBaseConfidence applies when no single block contains the candidate,
	// e.g. a VIN recovered across two OCR lines.
	DefaultBaseConfidence = 85.0

	highConfidenceThreshold = 90.0
	highConfidenceBonus     = 10.0
	prefixBonus             = 5.0
	maxConfidence           = 100.0
)

// PrefixTable maps a World Manufacturer Identifier (first three characters) to a maker.
type PrefixTable interface {
	Lookup(wmi string) (manufacturer string, ok bool)
}

// MapPrefixTable is a PrefixTable backed by a plain map.
type MapPrefixTable map[string]string

func (t MapPrefixTable) Lookup(wmi string) (string, bool) {
	m, ok := t[strings.ToUpper(wmi)]
	return m, ok
}

type noPrefixes struct{}

func (noPrefixes) Lookup(string) (string, bool) { return "", false }

// NoPrefixTable disables the manufacturer bonus.
var NoPrefixTable PrefixTable = noPrefixes{}

// DefaultPrefixTable holds common WMIs seen in North American and European shops.
var DefaultPrefixTable = MapPrefixTable{
	"1FA": "Ford", "1FT": "Ford", "1FM": "Ford", "3FA": "Ford",
	"1G1": "Chevrolet", "1GC": "Chevrolet", "2G1": "Chevrolet", "1GN": "Chevrolet",
	"1GT": "GMC", "1G6": "Cadillac",
	"1HG": "Honda", "2HG": "Honda", "JHM": "Honda", "5FN": "Honda",
	"1N4": "Nissan", "JN1": "Nissan", "3N1": "Nissan",
	"2T1": "Toyota", "4T1": "Toyota", "5TD": "Toyota", "JTD": "Toyota", "JT2": "Toyota",
	"1C4": "Chrysler", "2C3": "Chrysler", "1J4": "Jeep", "1D7": "Dodge",
	"KMH": "Hyundai", "KNA": "Kia", "KND": "Kia",
	"JF1": "Subaru", "4S3": "Subaru", "JM1": "Mazda",
	"WBA": "BMW", "WBS": "BMW M", "WDB": "Mercedes-Benz", "WDD": "Mercedes-Benz",
	"WAU": "Audi", "WVW": "Volkswagen", "WV1": "Volkswagen", "3VW": "Volkswagen",
	"WP0": "Porsche", "YV1": "Volvo", "SAL": "Land Rover", "SAJ": "Jaguar",
	"5YJ": "Tesla", "7SA": "Tesla", "VF1": "Renault", "VF3": "Peugeot", "ZFA": "Fiat",
}

// Scorer assigns internal 0..100 scores to validated candidates.
type Scorer struct {
	prefixes PrefixTable
}

// NewScorer returns a scorer using the given prefix table; nil disables the prefix bonus.
func NewScorer(prefixes PrefixTable) *Scorer {
	if prefixes == nil {
		prefixes = NoPrefixTable
	}
	return &Scorer{prefixes: prefixes}
}

// Score computes base confidence from the candidate's source blocks and the
// ranking score used by Select.
func (s *Scorer) Score(c Candidate, blocks []TextBlock) ScoredCandidate {
	sc := ScoredCandidate{Candidate: c, Base: baseConfidence(c, blocks)}

	if len(c.Text) >= 3 {
		if m, ok := s.prefixes.Lookup(c.Text[:3]); ok {
			sc.PrefixMatched = true
			sc.Manufacturer = m
		}
	}

	sc.Confidence = sc.Base
	sc.Rank = sc.Base
	if sc.Base > highConfidenceThreshold {
		sc.Rank += highConfidenceBonus
	}
	if sc.PrefixMatched {
		sc.Confidence = min(sc.Confidence+prefixBonus, maxConfidence)
		sc.Rank += prefixBonus
	}
	return sc
}

func baseConfidence(c Candidate, blocks []TextBlock) float64 {
	var sum float64
	var n int
	for _, i := range c.SourceBlocks {
		if i < 0 || i >= len(blocks) || blocks[i].Confidence < 0 {
			continue
		}
		sum += min(blocks[i].Confidence, maxConfidence)
		n++
	}
	if n == 0 {
		return DefaultBaseConfidence
	}
	return sum / float64(n)
}

// toUnitConfidence is the only conversion from the internal 0..100 scale to the
// 0.0..1.0 scale reported in results.
func toUnitConfidence(internal float64) float64 {
	u := internal / maxConfidence
	switch {
	case u < 0:
		return 0
	case u > 1:
		return 1
	}
	return u
}
