package search

import (
	"math"
	"testing"

	"github.com/AVSceneAI/scene-memory/engine/domain"
	"github.com/AVSceneAI/scene-memory/engine/semantic"
)

func cand(id string, score float32) semantic.ScoredCandidate {
	return semantic.ScoredCandidate{
		SceneID:    id,
		Score:      score,
		Attributes: domain.SceneAttributes{SceneID: id},
	}
}

func TestFuse_TopHitNormalizesToOne(t *testing.T) {
	by := map[domain.Modality][]semantic.ScoredCandidate{
		domain.ModalityVision: {cand("a", 0.8), cand("b", 0.4), cand("c", 0.2)},
	}
	out := Fuse(by, domain.FusionWeights{Vision: 1}, 10)
	if len(out) != 3 {
		t.Fatalf("got %d results", len(out))
	}
	if out[0].SceneID != "a" || math.Abs(out[0].FusedScore-1.0) > 1e-12 {
		t.Fatalf("top hit should normalize to 1.0, got %+v", out[0])
	}
	if math.Abs(out[1].FusedScore-0.5) > 1e-12 {
		t.Fatalf("b should normalize to 0.5, got %v", out[1].FusedScore)
	}
}

func TestFuse_TwoModalityScenario(t *testing.T) {
	// A appears only in vision (raw 0.9, modality max 0.9); B appears only
	// in lidar (raw 0.4, modality max 0.8).
	by := map[domain.Modality][]semantic.ScoredCandidate{
		domain.ModalityVision: {cand("A", 0.9)},
		domain.ModalityLidar:  {cand("other", 0.8), cand("B", 0.4)},
	}
	out := Fuse(by, domain.FusionWeights{Vision: 0.5, Lidar: 0.5}, 10)

	scores := map[string]float64{}
	for _, r := range out {
		scores[r.SceneID] = r.FusedScore
	}
	if math.Abs(scores["A"]-0.5) > 1e-9 {
		t.Fatalf("fused(A) = %v, want 0.5", scores["A"])
	}
	if math.Abs(scores["B"]-0.25) > 1e-9 {
		t.Fatalf("fused(B) = %v, want 0.25", scores["B"])
	}
	if out[0].SceneID != "A" {
		t.Fatalf("A should rank above B, got %v first", out[0].SceneID)
	}
}

func TestFuse_OrderIndependent(t *testing.T) {
	weights := domain.FusionWeights{Vision: 0.4, Lidar: 0.3, Radar: 0.2, Text: 0.1}
	a := map[domain.Modality][]semantic.ScoredCandidate{
		domain.ModalityVision: {cand("x", 0.9), cand("y", 0.7), cand("z", 0.1)},
		domain.ModalityRadar:  {cand("y", 0.6), cand("x", 0.3)},
	}
	// Same sets, permuted within each modality.
	b := map[domain.Modality][]semantic.ScoredCandidate{
		domain.ModalityRadar:  {cand("x", 0.3), cand("y", 0.6)},
		domain.ModalityVision: {cand("z", 0.1), cand("x", 0.9), cand("y", 0.7)},
	}

	outA := Fuse(a, weights, 10)
	outB := Fuse(b, weights, 10)
	if len(outA) != len(outB) {
		t.Fatalf("length mismatch: %d vs %d", len(outA), len(outB))
	}
	for i := range outA {
		if outA[i].SceneID != outB[i].SceneID || outA[i].FusedScore != outB[i].FusedScore {
			t.Fatalf("rank %d differs: %+v vs %+v", i, outA[i], outB[i])
		}
	}
}

func TestFuse_WeightMonotonicity(t *testing.T) {
	by := map[domain.Modality][]semantic.ScoredCandidate{
		domain.ModalityVision: {cand("a", 0.9), cand("b", 0.5)},
		domain.ModalityLidar:  {cand("b", 0.8)},
	}
	scoreOf := func(out []FusedResult, id string) float64 {
		for _, r := range out {
			if r.SceneID == id {
				return r.FusedScore
			}
		}
		t.Fatalf("%s missing", id)
		return 0
	}

	low := Fuse(by, domain.FusionWeights{Vision: 0.2, Lidar: 0.5}, 10)
	high := Fuse(by, domain.FusionWeights{Vision: 0.6, Lidar: 0.5}, 10)
	if scoreOf(high, "b") < scoreOf(low, "b") {
		t.Fatal("raising the vision weight must not lower b's fused score")
	}
	if scoreOf(high, "a") <= scoreOf(low, "a") {
		t.Fatal("raising the vision weight should raise a's fused score")
	}
}

func TestFuse_TieBreaksByIDAscending(t *testing.T) {
	by := map[domain.Modality][]semantic.ScoredCandidate{
		domain.ModalityText: {cand("zulu", 0.7), cand("alpha", 0.7)},
	}
	out := Fuse(by, domain.FusionWeights{Text: 1}, 10)
	if out[0].SceneID != "alpha" || out[1].SceneID != "zulu" {
		t.Fatalf("tie should break by id ascending, got %v then %v", out[0].SceneID, out[1].SceneID)
	}
}

func TestFuse_TruncatesToTopK(t *testing.T) {
	by := map[domain.Modality][]semantic.ScoredCandidate{
		domain.ModalityVision: {cand("a", 0.9), cand("b", 0.8), cand("c", 0.7), cand("d", 0.6)},
	}
	out := Fuse(by, domain.FusionWeights{Vision: 1}, 2)
	if len(out) != 2 || out[0].SceneID != "a" || out[1].SceneID != "b" {
		t.Fatalf("bad truncation: %+v", out)
	}
	if Fuse(by, domain.FusionWeights{Vision: 1}, 0) != nil {
		t.Fatal("top_k 0 should fuse to nothing")
	}
}

func TestFuse_ZeroSignalDoesNotBlowUp(t *testing.T) {
	by := map[domain.Modality][]semantic.ScoredCandidate{
		domain.ModalityRadar: {cand("a", 0), cand("b", 0)},
	}
	out := Fuse(by, domain.FusionWeights{Radar: 1}, 10)
	for _, r := range out {
		if r.FusedScore != 0 {
			t.Fatalf("no-signal modality should contribute 0, got %v", r.FusedScore)
		}
	}
}

func TestFuse_KeepsRawBreakdown(t *testing.T) {
	by := map[domain.Modality][]semantic.ScoredCandidate{
		domain.ModalityVision: {cand("a", 0.9)},
		domain.ModalityText:   {cand("a", 0.3)},
	}
	out := Fuse(by, domain.FusionWeights{Vision: 1, Text: 1}, 10)
	if len(out) != 1 {
		t.Fatalf("got %d results", len(out))
	}
	pm := out[0].PerModality
	if pm[domain.ModalityVision] != 0.9 || pm[domain.ModalityText] != 0.3 {
		t.Fatalf("raw breakdown lost: %+v", pm)
	}
}
