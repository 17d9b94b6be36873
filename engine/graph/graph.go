package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AVSceneAI/scene-memory/engine/domain"
	"github.com/AVSceneAI/scene-memory/pkg/repo"
)

// SceneGraph provides catalog operations on top of the generic Neo4j
// repository. Writes MERGE on scene_id, so re-ingest replaces attributes
// instead of duplicating nodes.
type SceneGraph struct {
	opener SessionOpener
	scenes *repo.Neo4jRepo[domain.SceneAttributes, string]
}

// New creates a SceneGraph backed by a Neo4j driver.
func New(driver neo4j.DriverWithContext) *SceneGraph {
	return &SceneGraph{
		opener: driverOpener{driver: driver},
		scenes: newSceneRepo(driver),
	}
}

// NewWithOpener creates a SceneGraph with a custom session opener.
// Repository-backed lookups (GetScene, ListScenes) are unavailable.
func NewWithOpener(opener SessionOpener) *SceneGraph {
	return &SceneGraph{opener: opener}
}

const saveSceneCypher = `MERGE (s:Scene {scene_id: $scene_id})
SET s += $props
WITH s
FOREACH (_ IN CASE WHEN $bucket <> '' THEN [1] ELSE [] END |
  MERGE (b:LocationBucket {key: $bucket})
  MERGE (s)-[:AT]->(b))
FOREACH (_ IN CASE WHEN $edge_type <> '' THEN [1] ELSE [] END |
  MERGE (t:EdgeType {name: $edge_type})
  MERGE (s)-[:OF_TYPE]->(t))`

func sceneParams(a domain.SceneAttributes) map[string]any {
	return map[string]any{
		"scene_id":  a.SceneID,
		"props":     sceneToMap(a),
		"bucket":    a.LocationBucket,
		"edge_type": string(a.EdgeType),
	}
}

// SaveScene creates or updates one Scene node and its bucket and
// edge-type links.
func (g *SceneGraph) SaveScene(ctx context.Context, a domain.SceneAttributes) error {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.Run(ctx, saveSceneCypher, sceneParams(a))
	if err != nil {
		return fmt.Errorf("graph: save scene %s: %w", a.SceneID, err)
	}
	return nil
}

// SaveBatch saves multiple scenes in a single write transaction.
func (g *SceneGraph) SaveBatch(ctx context.Context, scenes []domain.SceneAttributes) error {
	if len(scenes) == 0 {
		return nil
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx CypherRunner) (any, error) {
		for _, a := range scenes {
			if _, err := tx.Run(ctx, saveSceneCypher, sceneParams(a)); err != nil {
				return nil, fmt.Errorf("scene %s: %w", a.SceneID, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("graph: save batch of %d: %w", len(scenes), err)
	}
	return nil
}

// CountCoLocated returns how many catalogued scenes share a location
// bucket.
func (g *SceneGraph) CountCoLocated(ctx context.Context, bucket string) (int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (:LocationBucket {key: $bucket})<-[:AT]-(s:Scene) RETURN count(s) AS n`
	result, err := sess.Run(ctx, cypher, map[string]any{"bucket": bucket})
	if err != nil {
		return 0, fmt.Errorf("graph: count co-located %s: %w", bucket, err)
	}
	if !result.Next(ctx) {
		return 0, nil
	}
	n, _ := result.Record().Get("n")
	count, _ := n.(int64)
	return count, nil
}

// FindByEdgeType returns the most recent scenes of one edge-case
// classification, newest first.
func (g *SceneGraph) FindByEdgeType(ctx context.Context, et domain.EdgeType, limit int) ([]domain.SceneAttributes, error) {
	if limit <= 0 {
		limit = 20
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (:EdgeType {name: $name})<-[:OF_TYPE]-(n:Scene)
RETURN n ORDER BY n.ts DESC LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"name": string(et), "limit": int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("graph: find by edge type %s: %w", et, err)
	}
	var scenes []domain.SceneAttributes
	for result.Next(ctx) {
		a, err := sceneFromRecord(result.Record())
		if err != nil {
			return nil, err
		}
		scenes = append(scenes, a)
	}
	return scenes, nil
}

// GetScene returns one scene's catalogued attributes.
func (g *SceneGraph) GetScene(ctx context.Context, sceneID string) (domain.SceneAttributes, error) {
	return g.scenes.Get(ctx, sceneID)
}

// ListScenes pages through the catalog.
func (g *SceneGraph) ListScenes(ctx context.Context, opts repo.ListOpts) ([]domain.SceneAttributes, error) {
	return g.scenes.List(ctx, opts)
}
