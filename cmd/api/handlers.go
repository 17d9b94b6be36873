package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/AVSceneAI/scene-memory/engine/domain"
	"github.com/AVSceneAI/scene-memory/engine/encode"
	"github.com/AVSceneAI/scene-memory/engine/graph"
	"github.com/AVSceneAI/scene-memory/engine/search"
	"github.com/AVSceneAI/scene-memory/pkg/repo"
)

const (
	defaultTopK             = 5
	defaultLimitPerModality = 10
)

// searchRunner is the slice of the search service the handler needs.
type searchRunner interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// sceneCatalog is the slice of the graph catalog the read handlers need.
type sceneCatalog interface {
	GetScene(ctx context.Context, sceneID string) (domain.SceneAttributes, error)
	ListScenes(ctx context.Context, opts repo.ListOpts) ([]domain.SceneAttributes, error)
	FindByEdgeType(ctx context.Context, et domain.EdgeType, limit int) ([]domain.SceneAttributes, error)
	NodeCounts(ctx context.Context) (map[string]int64, error)
	SceneCountsByEdgeType(ctx context.Context) (map[domain.EdgeType]int64, error)
	TopBuckets(ctx context.Context, limit int) ([]graph.BucketStats, error)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// SearchRequest is the JSON body for POST /v1/search. A query supplies
// free text, pre-encoded vectors, or both; text fills the text modality
// unless a text vector was given explicitly.
type SearchRequest struct {
	Text             string                        `json:"text,omitempty"`
	Vectors          map[domain.Modality][]float32 `json:"vectors,omitempty"`
	Filters          domain.FilterCriteria         `json:"filters"`
	Weights          *domain.FusionWeights         `json:"weights,omitempty"`
	TopK             int                           `json:"top_k"`
	LimitPerModality int                           `json:"limit_per_modality"`
	Novelty          *search.NoveltyParams         `json:"novelty,omitempty"`
}

func handleSearch(svc searchRunner, enc *encode.Encoder, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			mBadReqs.Inc()
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		vectors := make(map[domain.Modality][]float32, len(req.Vectors)+1)
		for m, v := range req.Vectors {
			vectors[m] = v
		}
		if req.Text != "" && len(vectors[domain.ModalityText]) == 0 {
			vec, err := enc.Text(req.Text)
			if err != nil {
				mBadReqs.Inc()
				writeError(w, http.StatusBadRequest, "text encoding failed")
				return
			}
			vectors[domain.ModalityText] = vec
		}
		if len(vectors) == 0 {
			mBadReqs.Inc()
			writeError(w, http.StatusBadRequest, "text or at least one vector is required")
			return
		}

		weights := domain.DefaultWeights()
		if req.Weights != nil {
			weights = *req.Weights
		}
		topK := req.TopK
		if topK == 0 {
			topK = defaultTopK
		}
		limit := req.LimitPerModality
		if limit == 0 {
			limit = defaultLimitPerModality
		}

		start := time.Now()
		resp, err := svc.Search(r.Context(), search.Request{
			Vectors:          vectors,
			Criteria:         req.Filters,
			Weights:          weights,
			LimitPerModality: limit,
			TopK:             topK,
			Novelty:          req.Novelty,
		})
		mSearchDur.Since(start)
		if err != nil {
			if errors.Is(err, domain.ErrConfig) {
				mBadReqs.Inc()
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.Error("search failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		mSearches.Inc()
		if resp.Novel != nil && *resp.Novel {
			mNovel.Inc()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleScene(catalog sceneCatalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == "" {
			writeError(w, http.StatusBadRequest, "scene id is required")
			return
		}
		attrs, err := catalog.GetScene(r.Context(), id)
		if err != nil {
			logger.Warn("scene lookup failed", "scene_id", id, "err", err)
			writeError(w, http.StatusNotFound, "scene not found")
			return
		}
		writeJSON(w, http.StatusOK, attrs)
	}
}

// handleScenes serves GET /v1/scenes. With ?edge_type= it returns the
// most recent scenes of that classification, otherwise a paged listing.
func handleScenes(catalog sceneCatalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		var (
			scenes []domain.SceneAttributes
			err    error
		)
		if et := q.Get("edge_type"); et != "" {
			if !domain.ValidEdgeTypes[domain.EdgeType(et)] {
				writeError(w, http.StatusBadRequest, "unknown edge_type "+et)
				return
			}
			scenes, err = catalog.FindByEdgeType(r.Context(), domain.EdgeType(et), limit)
		} else {
			scenes, err = catalog.ListScenes(r.Context(), repo.ListOpts{Limit: limit, Offset: offset})
		}
		if err != nil {
			logger.Error("scene listing failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if scenes == nil {
			scenes = []domain.SceneAttributes{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"scenes": scenes})
	}
}

// StatsResponse summarises the catalog for GET /v1/stats.
type StatsResponse struct {
	Nodes            map[string]int64          `json:"nodes"`
	ScenesByEdgeType map[domain.EdgeType]int64 `json:"scenes_by_edge_type"`
	TopBuckets       []graph.BucketStats       `json:"top_buckets"`
}

func handleStats(catalog sceneCatalog, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		nodes, err := catalog.NodeCounts(r.Context())
		if err != nil {
			logger.Error("stats query failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		counts, err := catalog.SceneCountsByEdgeType(r.Context())
		if err != nil {
			logger.Error("stats query failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		buckets, err := catalog.TopBuckets(r.Context(), 10)
		if err != nil {
			logger.Error("stats query failed", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, StatsResponse{Nodes: nodes, ScenesByEdgeType: counts, TopBuckets: buckets})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
