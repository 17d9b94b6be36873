package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"testing"

	"github.com/AVSceneAI/scene-memory/engine/domain"
	"github.com/AVSceneAI/scene-memory/engine/encode"
	"github.com/AVSceneAI/scene-memory/engine/semantic"
)

// memoryStore is an in-memory stand-in for the Qdrant gateway: cosine
// ranking per named space plus attribute filtering.
type memoryStore struct {
	records []semantic.SceneRecord
}

func (s *memoryStore) Search(_ context.Context, m domain.Modality, vector []float32, criteria domain.FilterCriteria, limit int) ([]semantic.ScoredCandidate, error) {
	var out []semantic.ScoredCandidate
	for _, r := range s.records {
		vec, ok := r.Vectors[m]
		if !ok || !matches(r.Attributes, criteria) {
			continue
		}
		out = append(out, semantic.ScoredCandidate{
			SceneID:    r.Attributes.SceneID,
			Score:      cosine(vector, vec),
			Attributes: r.Attributes,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matches(a domain.SceneAttributes, c domain.FilterCriteria) bool {
	if c.Weather != nil && a.Weather != *c.Weather {
		return false
	}
	if c.TimeOfDay != nil && a.TimeOfDay != *c.TimeOfDay {
		return false
	}
	if c.RoadType != nil && a.RoadType != *c.RoadType {
		return false
	}
	if c.LocationBucket != nil && a.LocationBucket != *c.LocationBucket {
		return false
	}
	if c.TSMin != nil && a.TS < *c.TSMin {
		return false
	}
	if c.TSMax != nil && a.TS > *c.TSMax {
		return false
	}
	return true
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

type fixedCatalog struct {
	count int64
	err   error
}

func (c *fixedCatalog) CountCoLocated(context.Context, string) (int64, error) {
	return c.count, c.err
}

func TestService_RejectsBadConfigBeforeStore(t *testing.T) {
	svc := New(&scriptedStore{}, nil, nil)

	_, err := svc.Search(context.Background(), Request{
		Vectors:          map[domain.Modality][]float32{domain.ModalityText: {1}},
		Weights:          domain.FusionWeights{Text: -1},
		LimitPerModality: 10,
		TopK:             5,
	})
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig for negative weight, got %v", err)
	}

	_, err = svc.Search(context.Background(), Request{
		Vectors:          map[domain.Modality][]float32{domain.ModalityText: {1}},
		Weights:          domain.DefaultWeights(),
		LimitPerModality: 10,
		TopK:             0,
	})
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig for top_k 0, got %v", err)
	}
}

func TestService_TextOnlySelfMatchRanksFirst(t *testing.T) {
	enc, err := encode.New(encode.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	notes := []string{
		"pedestrian detected crossing",
		"routine highway cruise nothing unusual",
		"cut in vehicle close call braking hard",
		"hydroplaning low traction warning",
		"parked cars narrow residential street",
		"fog bank reduced visibility ahead",
		"cyclist overtaking on the right",
		"construction zone lane shift cones",
		"animal on roadway sudden stop",
		"traffic light camera intersection wait",
	}
	store := &memoryStore{}
	for i, n := range notes {
		vec, err := enc.Text(n)
		if err != nil {
			t.Fatal(err)
		}
		store.records = append(store.records, semantic.SceneRecord{
			Attributes: domain.SceneAttributes{SceneID: fmt.Sprintf("scn_%07d", i), Notes: n},
			Vectors:    map[domain.Modality][]float32{domain.ModalityText: vec},
		})
	}

	query, err := enc.Text("pedestrian detected crossing")
	if err != nil {
		t.Fatal(err)
	}

	svc := New(store, nil, nil)
	resp, err := svc.Search(context.Background(), Request{
		Vectors:          map[domain.Modality][]float32{domain.ModalityText: query},
		Weights:          domain.FusionWeights{Text: 1},
		LimitPerModality: 10,
		TopK:             5,
		Novelty:          &NoveltyParams{ScoreThreshold: 0.99, MinResultCount: 1},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	top := resp.Results[0]
	if top.SceneID != "scn_0000000" {
		t.Fatalf("self-match should rank first, got %s", top.SceneID)
	}
	if math.Abs(top.FusedScore-1.0) > 1e-6 {
		t.Fatalf("self-match should fuse to 1.0, got %v", top.FusedScore)
	}
	if resp.Novel == nil || *resp.Novel {
		t.Fatalf("exact self-match should be a known scene, got %+v", resp.Novel)
	}
}

func TestService_FilteredSearchRespectsCriteria(t *testing.T) {
	enc, _ := encode.New(encode.DefaultConfig())
	vec, _ := enc.Text("pedestrian crossing in the rain")

	store := &memoryStore{records: []semantic.SceneRecord{
		{
			Attributes: domain.SceneAttributes{SceneID: "rainy", Weather: domain.WeatherRain},
			Vectors:    map[domain.Modality][]float32{domain.ModalityText: vec},
		},
		{
			Attributes: domain.SceneAttributes{SceneID: "clear", Weather: domain.WeatherClear},
			Vectors:    map[domain.Modality][]float32{domain.ModalityText: vec},
		},
	}}

	w := domain.WeatherRain
	svc := New(store, nil, nil)
	resp, err := svc.Search(context.Background(), Request{
		Vectors:          map[domain.Modality][]float32{domain.ModalityText: vec},
		Criteria:         domain.FilterCriteria{Weather: &w},
		Weights:          domain.FusionWeights{Text: 1},
		LimitPerModality: 10,
		TopK:             10,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].SceneID != "rainy" {
		t.Fatalf("filter should exclude the clear-weather record: %+v", resp.Results)
	}
}

func TestService_DegradedModalityReported(t *testing.T) {
	store := &scriptedStore{
		responses: map[domain.Modality][]semantic.ScoredCandidate{
			domain.ModalityText: {cand("a", 0.9)},
		},
		errs: map[domain.Modality]error{
			domain.ModalityVision: errors.New("store down"),
		},
	}
	svc := New(store, nil, nil)
	resp, err := svc.Search(context.Background(), Request{
		Vectors: map[domain.Modality][]float32{
			domain.ModalityVision: {1},
			domain.ModalityText:   {1},
		},
		Weights:          domain.DefaultWeights(),
		LimitPerModality: 10,
		TopK:             10,
	})
	if err != nil {
		t.Fatalf("degraded modality must not fail the search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("text results should survive: %+v", resp.Results)
	}
	degraded := false
	for _, st := range resp.Statuses {
		if st.Modality == domain.ModalityVision && st.Err != nil {
			degraded = true
		}
	}
	if !degraded {
		t.Fatalf("vision failure must be observable: %+v", resp.Statuses)
	}
}

func TestService_CatalogEnrichment(t *testing.T) {
	store := &scriptedStore{
		responses: map[domain.Modality][]semantic.ScoredCandidate{
			domain.ModalityText: {{
				SceneID: "a",
				Score:   0.9,
				Attributes: domain.SceneAttributes{
					SceneID:        "a",
					LocationBucket: "12.97,77.59",
				},
			}},
		},
	}

	svc := New(store, &fixedCatalog{count: 4}, nil)
	resp, err := svc.Search(context.Background(), Request{
		Vectors:          map[domain.Modality][]float32{domain.ModalityText: {1}},
		Weights:          domain.FusionWeights{Text: 1},
		LimitPerModality: 10,
		TopK:             10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.CoLocatedKnown == nil || *resp.CoLocatedKnown != 4 {
		t.Fatalf("expected co-located annotation, got %+v", resp.CoLocatedKnown)
	}

	// A failing catalog is logged and skipped, never fatal.
	svc = New(store, &fixedCatalog{err: errors.New("neo4j down")}, nil)
	resp, err = svc.Search(context.Background(), Request{
		Vectors:          map[domain.Modality][]float32{domain.ModalityText: {1}},
		Weights:          domain.FusionWeights{Text: 1},
		LimitPerModality: 10,
		TopK:             10,
	})
	if err != nil {
		t.Fatalf("catalog failure must not fail the search: %v", err)
	}
	if resp.CoLocatedKnown != nil {
		t.Fatal("annotation should be absent on catalog failure")
	}
}

func TestService_NoNoveltyParamsNoVerdict(t *testing.T) {
	svc := New(&scriptedStore{}, nil, nil)
	resp, err := svc.Search(context.Background(), Request{
		Vectors:          map[domain.Modality][]float32{domain.ModalityText: {1}},
		Weights:          domain.DefaultWeights(),
		LimitPerModality: 5,
		TopK:             5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Novel != nil {
		t.Fatal("verdict should only be computed on request")
	}
}
