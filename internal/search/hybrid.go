package search

// FusionConfig defines weights for hybrid score fusion and boosts.
type FusionConfig struct {
	SemanticWeight   float64 `json:"semanticWeight"`
	KeywordWeight    float64 `json:"keywordWeight"`
	RankWeight       float64 `json:"rankWeight"`
	PopularityWeight float64 `json:"popularityWeight"`
}

// DefaultFusionConfig favours semantic relevance, with small boosts for
// PageRank and popularity.
var DefaultFusionConfig = FusionConfig{
	SemanticWeight:   0.6,
	KeywordWeight:    0.4,
	RankWeight:       0.1,
	PopularityWeight: 0.05,
}

// fuseScores combines normalised BM25 and semantic results using weighted
// fusion. When both lists have results, a file missing from one side scores
// zero on that side. When only one list has results, its normalised scores
// are kept as-is.
func fuseScores(bm25Results, semanticResults []SearchResult, config FusionConfig) []SearchResult {
	bm25Results = normalizeScores(bm25Results)
	semanticResults = normalizeScores(semanticResults)

	if len(semanticResults) == 0 {
		return bm25Results
	}
	if len(bm25Results) == 0 {
		return semanticResults
	}

	fused := make(map[string]SearchResult, len(bm25Results)+len(semanticResults))

	for _, r := range semanticResults {
		base := r
		base.Score = config.SemanticWeight * r.Score
		fused[r.Path] = base
	}

	for _, r := range bm25Results {
		if existing, ok := fused[r.Path]; ok {
			existing.Score += config.KeywordWeight * r.Score
			fused[r.Path] = existing
			continue
		}
		base := r
		base.Score = config.KeywordWeight * r.Score
		fused[r.Path] = base
	}

	results := make([]SearchResult, 0, len(fused))
	for _, r := range fused {
		results = append(results, r)
	}
	sortResults(results)
	return results
}

// applyBoosts adds rank and popularity boosts and re-sorts.
func applyBoosts(results []SearchResult, ranks, popularity map[string]float64, config FusionConfig) []SearchResult {
	for i := range results {
		results[i].Score += config.RankWeight*ranks[results[i].Path] +
			config.PopularityWeight*popularity[results[i].Path]
	}
	sortResults(results)
	return results
}

// normalizeScores normalizes scores to [0, 1] range.
func normalizeScores(results []SearchResult) []SearchResult {
	if len(results) == 0 {
		return results
	}

	minScore := results[0].Score
	maxScore := results[0].Score

	for _, result := range results {
		if result.Score < minScore {
			minScore = result.Score
		}
		if result.Score > maxScore {
			maxScore = result.Score
		}
	}

	// When all scores are equal, set all to 1.0
	if maxScore == minScore {
		normalized := make([]SearchResult, len(results))
		for i, result := range results {
			normalized[i] = result
			normalized[i].Score = 1.0
		}
		return normalized
	}

	normalized := make([]SearchResult, len(results))
	for i, result := range results {
		normalized[i] = result
		normalized[i].Score = (result.Score - minScore) / (maxScore - minScore)
	}

	return normalized
}
