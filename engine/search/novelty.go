package search

// IsNovel decides whether the fused ranking is weak enough to treat the
// query scene as a novel edge case: true when fewer than minResultCount
// results exist at all, or when the best fused score falls strictly below
// scoreThreshold. A best score exactly at the threshold is a known scene.
// Both parameters are operator-supplied; no calibration happens here.
func IsNovel(results []FusedResult, scoreThreshold float64, minResultCount int) bool {
	if len(results) == 0 || len(results) < minResultCount {
		return true
	}
	return results[0].FusedScore < scoreThreshold
}
