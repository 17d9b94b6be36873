// Package semantic owns all Qdrant operations for the scene-memory
// collection: one named cosine vector space per modality sharing a single
// point identifier space, with scene attributes as the payload.
package semantic

import (
	"github.com/google/uuid"

	"github.com/AVSceneAI/scene-memory/engine/domain"
)

// SceneRecord is the unit persisted in the vector store: one entry in
// Vectors per modality captured for the scene, plus the full attributes
// payload. Records are replaced wholesale on re-upsert, never patched.
type SceneRecord struct {
	Attributes domain.SceneAttributes
	Vectors    map[domain.Modality][]float32
}

// ScoredCandidate is a single hit from one modality's similarity query.
type ScoredCandidate struct {
	SceneID    string
	Score      float32
	Attributes domain.SceneAttributes
}

// PointID derives the deterministic Qdrant point UUID for a scene.
// Re-ingesting the same scene always targets the same point, which is what
// makes upserts idempotent and batch retries safe.
func PointID(sceneID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("scene:"+sceneID)).String()
}
