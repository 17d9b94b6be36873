package semantic

import (
	pb "github.com/qdrant/go-client/qdrant"

	"github.com/AVSceneAI/scene-memory/engine/domain"
)

// BuildFilter translates FilterCriteria into a Qdrant filter: one keyword
// match clause per present categorical field and one inclusive range
// clause on ts when either bound is present, all ANDed. Returns nil when
// every criterion is absent, never an empty-but-present filter, so that
// "no criteria" and "no filter" behave identically as unconstrained.
func BuildFilter(c domain.FilterCriteria) *pb.Filter {
	if c.Empty() {
		return nil
	}

	var must []*pb.Condition
	if c.Weather != nil {
		must = append(must, keywordMatch("weather", string(*c.Weather)))
	}
	if c.TimeOfDay != nil {
		must = append(must, keywordMatch("time_of_day", string(*c.TimeOfDay)))
	}
	if c.RoadType != nil {
		must = append(must, keywordMatch("road_type", string(*c.RoadType)))
	}
	if c.LocationBucket != nil {
		must = append(must, keywordMatch("location_bucket", *c.LocationBucket))
	}
	if c.TSMin != nil || c.TSMax != nil {
		r := &pb.Range{}
		if c.TSMin != nil {
			gte := float64(*c.TSMin)
			r.Gte = &gte
		}
		if c.TSMax != nil {
			lte := float64(*c.TSMax)
			r.Lte = &lte
		}
		must = append(must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{
				Field: &pb.FieldCondition{Key: "ts", Range: r},
			},
		})
	}

	return &pb.Filter{Must: must}
}

func keywordMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
