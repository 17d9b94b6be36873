package semantic

import (
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/AVSceneAI/scene-memory/engine/domain"
)

// attrsToPayload encodes SceneAttributes as a typed Qdrant payload. Field
// names double as filter keys, so they must stay in sync with BuildFilter
// and EnsurePayloadIndexes.
func attrsToPayload(a domain.SceneAttributes) map[string]*pb.Value {
	return map[string]*pb.Value{
		"scene_id":        strVal(a.SceneID),
		"ts":              intVal(a.TS),
		"lat":             dblVal(a.Lat),
		"lon":             dblVal(a.Lon),
		"location_bucket": strVal(a.LocationBucket),
		"weather":         strVal(string(a.Weather)),
		"time_of_day":     strVal(string(a.TimeOfDay)),
		"road_type":       strVal(string(a.RoadType)),
		"edge_type":       strVal(string(a.EdgeType)),
		"near_miss":       boolVal(a.NearMiss),
		"label":           strVal(a.Label),
		"notes":           strVal(a.Notes),
	}
}

// attrsFromPayload decodes a Qdrant payload back into SceneAttributes.
// Unknown payload keys are ignored; missing keys decode to zero values.
func attrsFromPayload(p map[string]*pb.Value) domain.SceneAttributes {
	return domain.SceneAttributes{
		SceneID:        p["scene_id"].GetStringValue(),
		TS:             p["ts"].GetIntegerValue(),
		Lat:            p["lat"].GetDoubleValue(),
		Lon:            p["lon"].GetDoubleValue(),
		LocationBucket: p["location_bucket"].GetStringValue(),
		Weather:        domain.Weather(p["weather"].GetStringValue()),
		TimeOfDay:      domain.TimeOfDay(p["time_of_day"].GetStringValue()),
		RoadType:       domain.RoadType(p["road_type"].GetStringValue()),
		EdgeType:       domain.EdgeType(p["edge_type"].GetStringValue()),
		NearMiss:       p["near_miss"].GetBoolValue(),
		Label:          p["label"].GetStringValue(),
		Notes:          p["notes"].GetStringValue(),
	}
}

func strVal(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func intVal(n int64) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: n}}
}

func dblVal(f float64) *pb.Value {
	return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: f}}
}

func boolVal(b bool) *pb.Value {
	return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: b}}
}
