package search

import (
	"sort"

	"github.com/AVSceneAI/scene-memory/engine/domain"
	"github.com/AVSceneAI/scene-memory/engine/semantic"
)

// signalEpsilon is the floor below which a modality's best score counts as
// no signal; scaling by it would just amplify noise.
const signalEpsilon = 1e-9

// FusedResult is one entry of the cross-modality ranking. PerModality
// keeps the raw (pre-normalization) score from each modality the scene
// appeared in, for explainability.
type FusedResult struct {
	SceneID     string                      `json:"scene_id"`
	FusedScore  float64                     `json:"fused_score"`
	PerModality map[domain.Modality]float32 `json:"per_modality"`
	Attributes  domain.SceneAttributes      `json:"attributes"`
}

// Fuse combines independent per-modality rankings into one. Raw similarity
// magnitudes are not comparable across modalities, so each list is first
// rescaled by its own maximum score, so the top hit of any modality
// normalizes to 1.0, then accumulated per scene under the modality
// weights. A scene absent from a modality contributes zero from it.
// Ordering is fully deterministic: descending fused score, ties broken by
// ascending scene ID. The result is truncated to topK.
func Fuse(byModality map[domain.Modality][]semantic.ScoredCandidate, weights domain.FusionWeights, topK int) []FusedResult {
	if topK <= 0 {
		return nil
	}

	fused := make(map[string]*FusedResult)

	// Fixed modality order keeps the attribute snapshot (taken from the
	// first modality a scene appears in) reproducible.
	for _, m := range domain.Modalities {
		candidates := byModality[m]
		if len(candidates) == 0 {
			continue
		}

		maxScore := 0.0
		for _, c := range candidates {
			if s := float64(c.Score); s > maxScore {
				maxScore = s
			}
		}
		if maxScore <= signalEpsilon {
			maxScore = 1.0
		}

		w := weights.For(m)
		for _, c := range candidates {
			entry, ok := fused[c.SceneID]
			if !ok {
				entry = &FusedResult{
					SceneID:     c.SceneID,
					PerModality: make(map[domain.Modality]float32, len(byModality)),
					Attributes:  c.Attributes,
				}
				fused[c.SceneID] = entry
			}
			entry.FusedScore += w * (float64(c.Score) / maxScore)
			entry.PerModality[m] = c.Score
		}
	}

	out := make([]FusedResult, 0, len(fused))
	for _, entry := range fused {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].SceneID < out[j].SceneID
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}
