// Package search orchestrates fused multi-modal retrieval: it fans one
// query out across the per-modality vector spaces, recalibrates and fuses
// the independent result sets into a single ranking, and decides whether
// the query scene is novel.
package search

import (
	"context"

	"github.com/AVSceneAI/scene-memory/engine/domain"
	"github.com/AVSceneAI/scene-memory/engine/semantic"
	"github.com/AVSceneAI/scene-memory/pkg/fn"
)

// Searcher abstracts the per-modality similarity query against the store.
type Searcher interface {
	Search(ctx context.Context, m domain.Modality, vector []float32, criteria domain.FilterCriteria, limit int) ([]semantic.ScoredCandidate, error)
}

// ModalityStatus reports the outcome of one modality's query. A non-nil
// Err means the modality degraded to zero candidates; fusion proceeded
// without it. Error carries the same failure as text so API callers can
// tell a degraded modality from a merely empty one.
type ModalityStatus struct {
	Modality   domain.Modality `json:"modality"`
	Candidates int             `json:"candidates"`
	Error      string          `json:"error,omitempty"`
	Err        error           `json:"-"`
}

// Fanout issues one filtered query per supplied modality vector, all with
// the same criteria and limit. Queries run in parallel; they are
// independent and read-only, so no coordination beyond the final join is
// needed. A modality with no query vector is skipped. A failing modality
// contributes an empty candidate list and a status carrying the error;
// it never aborts the others.
func Fanout(ctx context.Context, store Searcher, queryVectors map[domain.Modality][]float32, criteria domain.FilterCriteria, limit int) (map[domain.Modality][]semantic.ScoredCandidate, []ModalityStatus) {
	var mods []domain.Modality
	for _, m := range domain.Modalities {
		if len(queryVectors[m]) > 0 {
			mods = append(mods, m)
		}
	}

	type outcome struct {
		modality   domain.Modality
		candidates []semantic.ScoredCandidate
		err        error
	}

	fns := fn.Map(mods, func(m domain.Modality) func() outcome {
		return func() outcome {
			cands, err := store.Search(ctx, m, queryVectors[m], criteria, limit)
			return outcome{modality: m, candidates: cands, err: err}
		}
	})
	results := fn.FanOut(fns...)

	byModality := make(map[domain.Modality][]semantic.ScoredCandidate, len(results))
	statuses := make([]ModalityStatus, len(results))
	for i, r := range results {
		if r.err != nil {
			r.candidates = nil
		}
		byModality[r.modality] = r.candidates
		statuses[i] = ModalityStatus{
			Modality:   r.modality,
			Candidates: len(r.candidates),
			Err:        r.err,
		}
		if r.err != nil {
			statuses[i].Error = r.err.Error()
		}
	}
	return byModality, statuses
}
