package search

import (
	"math"
	"testing"
)

func TestNormalizeScores_Empty(t *testing.T) {
	normalized := normalizeScores([]SearchResult{})

	if len(normalized) != 0 {
		t.Errorf("expected empty result, got %d items", len(normalized))
	}
}

func TestNormalizeScores_Single(t *testing.T) {
	normalized := normalizeScores([]SearchResult{{Path: "a.plsql", Score: 0.5}})

	if len(normalized) != 1 {
		t.Fatalf("expected 1 result, got %d", len(normalized))
	}

	// Single result should have score 1.0 (all scores are min=max)
	if normalized[0].Score != 1.0 {
		t.Errorf("expected score 1.0 for single result, got %f", normalized[0].Score)
	}
}

func TestNormalizeScores_Negative(t *testing.T) {
	results := []SearchResult{
		{Path: "a.plsql", Score: -1.0},
		{Path: "b.plsql", Score: 0.0},
		{Path: "c.plsql", Score: 1.0},
	}
	normalized := normalizeScores(results)

	// min=-1.0, max=1.0, range=2.0
	want := []float64{0.0, 0.5, 1.0}
	for i, w := range want {
		if math.Abs(normalized[i].Score-w) > 0.001 {
			t.Errorf("result %d: expected %f, got %f", i, w, normalized[i].Score)
		}
	}

	// Input is not modified.
	if results[0].Score != -1.0 {
		t.Errorf("input mutated: %f", results[0].Score)
	}
}

func TestFuseScores_NoResults(t *testing.T) {
	fused := fuseScores(nil, nil, DefaultFusionConfig)

	if len(fused) != 0 {
		t.Errorf("expected 0 fused results, got %d", len(fused))
	}
}

func TestFuseScores_OnlyBM25(t *testing.T) {
	bm25Results := []SearchResult{
		{Path: "a.plsql", Score: 8},
		{Path: "b.plsql", Score: 4},
		{Path: "c.plsql", Score: 0},
	}

	fused := fuseScores(bm25Results, nil, DefaultFusionConfig)

	if len(fused) != 3 {
		t.Fatalf("expected 3 fused results, got %d", len(fused))
	}

	// Single-side results keep their normalised scores.
	if fused[0].Score != 1.0 || math.Abs(fused[1].Score-0.5) > 0.001 {
		t.Errorf("unexpected scores: %v", fused)
	}
}

func TestFuseScores_OnlySemantic(t *testing.T) {
	semanticResults := []SearchResult{
		{Path: "a.plsql", Score: 0.9},
		{Path: "b.plsql", Score: 0.7},
	}

	fused := fuseScores(nil, semanticResults, DefaultFusionConfig)

	if len(fused) != 2 {
		t.Fatalf("expected 2 fused results, got %d", len(fused))
	}
	if fused[0].Path != "a.plsql" || fused[0].Score != 1.0 || fused[1].Score != 0.0 {
		t.Errorf("unexpected scores: %v", fused)
	}
}

func TestFuseScores_Overlapping(t *testing.T) {
	bm25Results := []SearchResult{
		{Path: "a.plsql", Score: 10},
		{Path: "b.plsql", Score: 5},
		{Path: "d.plsql", Score: 0},
	}
	semanticResults := []SearchResult{
		{Path: "a.plsql", Score: 0.9},
		{Path: "c.plsql", Score: 0.5},
		{Path: "e.plsql", Score: 0.1},
	}
	config := FusionConfig{SemanticWeight: 0.6, KeywordWeight: 0.4}

	fused := fuseScores(bm25Results, semanticResults, config)

	if len(fused) != 5 {
		t.Fatalf("expected 5 fused results, got %d", len(fused))
	}

	want := map[string]float64{
		"a.plsql": 0.6*1.0 + 0.4*1.0,
		"b.plsql": 0.4 * 0.5,
		"c.plsql": 0.6 * 0.5,
		"d.plsql": 0,
		"e.plsql": 0,
	}
	for _, r := range fused {
		if math.Abs(r.Score-want[r.Path]) > 0.001 {
			t.Errorf("%s: expected %f, got %f", r.Path, want[r.Path], r.Score)
		}
	}

	if fused[0].Path != "a.plsql" || fused[1].Path != "c.plsql" || fused[2].Path != "b.plsql" {
		t.Errorf("unexpected order: %v", fused)
	}
	// Ties are broken by path.
	if fused[3].Path != "d.plsql" || fused[4].Path != "e.plsql" {
		t.Errorf("ties not ordered by path: %v", fused)
	}
}

func TestApplyBoosts(t *testing.T) {
	results := []SearchResult{
		{Path: "a.plsql", Score: 0.5},
		{Path: "b.plsql", Score: 0.5},
	}
	ranks := map[string]float64{"b.plsql": 1}
	popularity := map[string]float64{"a.plsql": 1}

	boosted := applyBoosts(results, ranks, popularity, DefaultFusionConfig)

	if boosted[0].Path != "b.plsql" {
		t.Errorf("rank boost should outweigh popularity boost: %v", boosted)
	}
	if math.Abs(boosted[0].Score-0.6) > 0.001 || math.Abs(boosted[1].Score-0.55) > 0.001 {
		t.Errorf("unexpected boosted scores: %v", boosted)
	}
}

func TestDefaultFusionConfig(t *testing.T) {
	if DefaultFusionConfig.SemanticWeight != 0.6 {
		t.Errorf("expected semantic weight 0.6, got %f", DefaultFusionConfig.SemanticWeight)
	}

	if DefaultFusionConfig.KeywordWeight != 0.4 {
		t.Errorf("expected keyword weight 0.4, got %f", DefaultFusionConfig.KeywordWeight)
	}

	// Relevance weights should sum to 1.0
	sum := DefaultFusionConfig.SemanticWeight + DefaultFusionConfig.KeywordWeight
	if math.Abs(sum-1.0) > 0.001 {
		t.Errorf("weights should sum to 1.0, got %f", sum)
	}
}
