package search

import (
	"context"
	"log/slog"

	"github.com/AVSceneAI/scene-memory/engine/domain"
	"github.com/AVSceneAI/scene-memory/engine/semantic"
	"github.com/AVSceneAI/scene-memory/pkg/resilience"
)

// SceneCatalog optionally enriches a fused result with scene-graph
// context. Failures are logged and skipped, never fatal.
type SceneCatalog interface {
	CountCoLocated(ctx context.Context, locationBucket string) (int64, error)
}

// NoveltyParams asks for a novelty verdict alongside the ranking.
type NoveltyParams struct {
	ScoreThreshold float64 `json:"score_threshold"`
	MinResultCount int     `json:"min_result_count"`
}

// Request is one fused retrieval call. Any subset of modalities may carry
// a query vector; absent modalities are skipped.
type Request struct {
	Vectors          map[domain.Modality][]float32
	Criteria         domain.FilterCriteria
	Weights          domain.FusionWeights
	LimitPerModality int
	TopK             int
	Novelty          *NoveltyParams
}

// Response carries the ranking, the per-modality query statuses, and the
// optional novelty verdict and catalog annotation.
type Response struct {
	Results        []FusedResult    `json:"results"`
	Statuses       []ModalityStatus `json:"statuses"`
	Novel          *bool            `json:"novel,omitempty"`
	CoLocatedKnown *int64           `json:"co_located_known,omitempty"`
}

// Service runs the fan-out/fuse/decide pipeline against a vector store,
// with the read path behind a circuit breaker.
type Service struct {
	store   Searcher
	catalog SceneCatalog
	breaker *resilience.Breaker
	logger  *slog.Logger
}

// New creates a search Service. catalog may be nil to disable enrichment.
func New(store Searcher, catalog SceneCatalog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		catalog: catalog,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		logger:  logger,
	}
}

// Search validates the request eagerly, fans out, fuses, and decides.
// Configuration problems surface before any store call; per-modality query
// failures degrade that modality and show up in Statuses instead.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if err := domain.ValidateWeights(req.Weights); err != nil {
		return nil, err
	}
	if err := domain.ValidateSearchParams(req.TopK, req.LimitPerModality); err != nil {
		return nil, err
	}

	byModality, statuses := Fanout(ctx, breakerSearcher{s.store, s.breaker}, req.Vectors, req.Criteria, req.LimitPerModality)
	for _, st := range statuses {
		if st.Err != nil {
			s.logger.Warn("search: modality degraded to zero candidates",
				"modality", st.Modality, "err", st.Err)
		}
	}

	results := Fuse(byModality, req.Weights, req.TopK)
	resp := &Response{Results: results, Statuses: statuses}

	if req.Novelty != nil {
		novel := IsNovel(results, req.Novelty.ScoreThreshold, req.Novelty.MinResultCount)
		resp.Novel = &novel
	}

	if s.catalog != nil && len(results) > 0 {
		if bucket := results[0].Attributes.LocationBucket; bucket != "" {
			n, err := s.catalog.CountCoLocated(ctx, bucket)
			if err != nil {
				s.logger.Warn("search: catalog enrichment failed, continuing without", "err", err)
			} else {
				resp.CoLocatedKnown = &n
			}
		}
	}

	s.logger.Info("search: fused query done",
		"modalities", len(byModality), "results", len(results))
	return resp, nil
}

// breakerSearcher routes store queries through the shared circuit breaker
// so a dead store stops burning per-modality timeouts.
type breakerSearcher struct {
	store   Searcher
	breaker *resilience.Breaker
}

func (b breakerSearcher) Search(ctx context.Context, m domain.Modality, vector []float32, criteria domain.FilterCriteria, limit int) ([]semantic.ScoredCandidate, error) {
	var out []semantic.ScoredCandidate
	err := b.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		out, err = b.store.Search(ctx, m, vector, criteria, limit)
		return err
	})
	return out, err
}
