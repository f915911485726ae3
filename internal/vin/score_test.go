package vin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_Score(t *testing.T) {
	blocks := []TextBlock{
		{Text: "1HGBH41JXMN109186", Confidence: 80},
		{Text: "VIN 1HGBH41JXMN109186", Confidence: 90},
		{Text: "1HGBH41JXMN109186", Confidence: -1},
		{Text: "2T1BURHE0JC123456", Confidence: 95},
		{Text: "1HGCM82633A004352", Confidence: 100},
	}

	tests := []struct {
		name      string
		prefixes  PrefixTable
		candidate Candidate
		wantBase  float64
		wantConf  float64
		wantRank  float64
		wantMaker string
	}{
		{
			name:      "mean of source blocks ignoring unknown confidence",
			prefixes:  NoPrefixTable,
			candidate: Candidate{Text: "1HGBH41JXMN109186", SourceBlocks: []int{0, 1, 2}},
			wantBase:  85,
			wantConf:  85,
			wantRank:  85,
		},
		{
			name:      "no source block falls back to default",
			prefixes:  NoPrefixTable,
			candidate: Candidate{Text: "1HGBH41JXMN109186"},
			wantBase:  DefaultBaseConfidence,
			wantConf:  DefaultBaseConfidence,
			wantRank:  DefaultBaseConfidence,
		},
		{
			name:      "high confidence and prefix bonuses",
			prefixes:  DefaultPrefixTable,
			candidate: Candidate{Text: "2T1BURHE0JC123456", SourceBlocks: []int{3}},
			wantBase:  95,
			wantConf:  100,
			wantRank:  110,
			wantMaker: "Toyota",
		},
		{
			name:      "rank carries both bonuses past one hundred",
			prefixes:  DefaultPrefixTable,
			candidate: Candidate{Text: "1HGCM82633A004352", SourceBlocks: []int{4}},
			wantBase:  100,
			wantConf:  100,
			wantRank:  115,
			wantMaker: "Honda",
		},
		{
			name:      "nil table disables prefix bonus",
			prefixes:  nil,
			candidate: Candidate{Text: "2T1BURHE0JC123456", SourceBlocks: []int{3}},
			wantBase:  95,
			wantConf:  95,
			wantRank:  105,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewScorer(tt.prefixes).Score(tt.candidate, blocks)
			assert.InDelta(t, tt.wantBase, got.Base, 1e-9)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-9)
			assert.InDelta(t, tt.wantRank, got.Rank, 1e-9)
			assert.Equal(t, tt.wantMaker, got.Manufacturer)
			assert.Equal(t, tt.wantMaker != "", got.PrefixMatched)
		})
	}
}

func TestToUnitConfidence(t *testing.T) {
	assert.InDelta(t, 0.85, toUnitConfidence(85), 1e-9)
	assert.Equal(t, 1.0, toUnitConfidence(115))
	assert.Equal(t, 0.0, toUnitConfidence(-4))
}

func TestMapPrefixTable_Lookup(t *testing.T) {
	m, ok := DefaultPrefixTable.Lookup("1hg")
	assert.True(t, ok)
	assert.Equal(t, "Honda", m)

	_, ok = MapPrefixTable{}.Lookup("1HG")
	assert.False(t, ok)
}
