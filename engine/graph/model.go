// Package graph maintains the Neo4j scene catalog: Scene nodes linked to
// LocationBucket and EdgeType nodes for relational queries the vector
// store cannot answer.
package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/AVSceneAI/scene-memory/engine/domain"
	"github.com/AVSceneAI/scene-memory/pkg/repo"
)

// newSceneRepo creates a Neo4j-backed repository for Scene nodes.
func newSceneRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[domain.SceneAttributes, string] {
	return repo.NewNeo4jRepo[domain.SceneAttributes, string](
		driver,
		"Scene",
		sceneToMap,
		sceneFromRecord,
		repo.WithIDKey[domain.SceneAttributes, string]("scene_id"),
	)
}

func sceneToMap(a domain.SceneAttributes) map[string]any {
	return map[string]any{
		"scene_id":        a.SceneID,
		"ts":              a.TS,
		"lat":             a.Lat,
		"lon":             a.Lon,
		"location_bucket": a.LocationBucket,
		"weather":         string(a.Weather),
		"time_of_day":     string(a.TimeOfDay),
		"road_type":       string(a.RoadType),
		"edge_type":       string(a.EdgeType),
		"near_miss":       a.NearMiss,
		"label":           a.Label,
		"notes":           a.Notes,
	}
}

func sceneFromRecord(rec *neo4j.Record) (domain.SceneAttributes, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return domain.SceneAttributes{}, err
	}
	return sceneFromProps(node.Props), nil
}

func sceneFromProps(props map[string]any) domain.SceneAttributes {
	return domain.SceneAttributes{
		SceneID:        strProp(props, "scene_id"),
		TS:             intProp(props, "ts"),
		Lat:            dblProp(props, "lat"),
		Lon:            dblProp(props, "lon"),
		LocationBucket: strProp(props, "location_bucket"),
		Weather:        domain.Weather(strProp(props, "weather")),
		TimeOfDay:      domain.TimeOfDay(strProp(props, "time_of_day")),
		RoadType:       domain.RoadType(strProp(props, "road_type")),
		EdgeType:       domain.EdgeType(strProp(props, "edge_type")),
		NearMiss:       boolProp(props, "near_miss"),
		Label:          strProp(props, "label"),
		Notes:          strProp(props, "notes"),
	}
}

func strProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

func intProp(props map[string]any, key string) int64 {
	switch v := props[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func dblProp(props map[string]any, key string) float64 {
	switch v := props[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func boolProp(props map[string]any, key string) bool {
	if b, ok := props[key].(bool); ok {
		return b
	}
	return false
}
