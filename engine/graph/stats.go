package graph

import (
	"context"

	"github.com/AVSceneAI/scene-memory/engine/domain"
)

// BucketStats summarises one location bucket.
type BucketStats struct {
	Key        string `json:"key"`
	Scenes     int64  `json:"scenes"`
	NearMisses int64  `json:"near_misses"`
}

// NodeCounts returns node counts grouped by label.
func (g *SceneGraph) NodeCounts(ctx context.Context) (map[string]int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (n) RETURN labels(n)[0] AS type, count(*) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for result.Next(ctx) {
		rec := result.Record()
		typ, _ := rec.Get("type")
		cnt, _ := rec.Get("count")
		if t, ok := typ.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[t] = c
			}
		}
	}
	return counts, nil
}

// SceneCountsByEdgeType returns scene counts per edge-case classification.
func (g *SceneGraph) SceneCountsByEdgeType(ctx context.Context) (map[domain.EdgeType]int64, error) {
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (t:EdgeType)<-[:OF_TYPE]-(s:Scene)
RETURN t.name AS name, count(s) AS count`
	result, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.EdgeType]int64)
	for result.Next(ctx) {
		rec := result.Record()
		name, _ := rec.Get("name")
		cnt, _ := rec.Get("count")
		if n, ok := name.(string); ok {
			if c, ok := cnt.(int64); ok {
				counts[domain.EdgeType(n)] = c
			}
		}
	}
	return counts, nil
}

// TopBuckets returns the busiest location buckets by scene count.
func (g *SceneGraph) TopBuckets(ctx context.Context, limit int) ([]BucketStats, error) {
	if limit <= 0 {
		limit = 10
	}
	sess := g.opener.OpenSession(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (b:LocationBucket)<-[:AT]-(s:Scene)
RETURN b.key AS key, count(s) AS scenes,
       sum(CASE WHEN s.near_miss THEN 1 ELSE 0 END) AS near_misses
ORDER BY scenes DESC LIMIT $limit`
	result, err := sess.Run(ctx, cypher, map[string]any{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	var stats []BucketStats
	for result.Next(ctx) {
		rec := result.Record()
		s := BucketStats{}
		if k, ok := recString(rec.Get("key")); ok {
			s.Key = k
		}
		if n, ok := recInt(rec.Get("scenes")); ok {
			s.Scenes = n
		}
		if n, ok := recInt(rec.Get("near_misses")); ok {
			s.NearMisses = n
		}
		stats = append(stats, s)
	}
	return stats, nil
}

func recString(v any, present bool) (string, bool) {
	if !present {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func recInt(v any, present bool) (int64, bool) {
	if !present {
		return 0, false
	}
	n, ok := v.(int64)
	return n, ok
}
