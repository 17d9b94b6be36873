// Package domain defines core scene-memory types, taxonomies, and validation.
// It acts as the validation gate at pipeline entry points.
package domain

// Modality names one sensing channel. Each modality owns a named vector
// space in the store with its own fixed dimension.
type Modality string

const (
	ModalityVision Modality = "vision"
	ModalityLidar  Modality = "lidar"
	ModalityRadar  Modality = "radar"
	ModalityText   Modality = "text"
)

// Modalities is the fixed processing order used wherever deterministic
// iteration matters (fusion snapshots, payload assembly).
var Modalities = []Modality{ModalityVision, ModalityLidar, ModalityRadar, ModalityText}

// Weather classifies capture-time weather.
type Weather string

const (
	WeatherClear    Weather = "clear"
	WeatherRain     Weather = "rain"
	WeatherFog      Weather = "fog"
	WeatherSnow     Weather = "snow"
	WeatherOvercast Weather = "overcast"
)

// ValidWeathers is the set of recognised weather values.
var ValidWeathers = map[Weather]bool{
	WeatherClear: true, WeatherRain: true, WeatherFog: true,
	WeatherSnow: true, WeatherOvercast: true,
}

// TimeOfDay classifies capture-time lighting.
type TimeOfDay string

const (
	TimeDay   TimeOfDay = "day"
	TimeDusk  TimeOfDay = "dusk"
	TimeNight TimeOfDay = "night"
)

// ValidTimesOfDay is the set of recognised time-of-day values.
var ValidTimesOfDay = map[TimeOfDay]bool{
	TimeDay: true, TimeDusk: true, TimeNight: true,
}

// RoadType classifies the road context of a capture.
type RoadType string

const (
	RoadCity         RoadType = "city"
	RoadHighway      RoadType = "highway"
	RoadResidential  RoadType = "residential"
	RoadIntersection RoadType = "intersection"
)

// ValidRoadTypes is the set of recognised road types.
var ValidRoadTypes = map[RoadType]bool{
	RoadCity: true, RoadHighway: true, RoadResidential: true,
	RoadIntersection: true,
}

// EdgeType is the explicit scene classification, assigned once when the
// scene record is constructed. Downstream code must never re-derive it
// from label or notes text.
type EdgeType string

const (
	EdgePedestrianLowLight EdgeType = "pedestrian_low_light"
	EdgeSlipperyRoad       EdgeType = "slippery_road"
	EdgeNearMissCutIn      EdgeType = "near_miss_cut_in"
	EdgeNormalDrive        EdgeType = "normal_drive"
)

// ValidEdgeTypes is the set of recognised edge-case classifications.
var ValidEdgeTypes = map[EdgeType]bool{
	EdgePedestrianLowLight: true, EdgeSlipperyRoad: true,
	EdgeNearMissCutIn: true, EdgeNormalDrive: true,
}

// SceneAttributes is the typed payload stored one-to-one with a scene
// record. It is replaced wholesale on re-ingest, never patched.
type SceneAttributes struct {
	SceneID        string    `json:"scene_id"`
	TS             int64     `json:"ts"` // capture time, epoch seconds
	Lat            float64   `json:"lat"`
	Lon            float64   `json:"lon"`
	LocationBucket string    `json:"location_bucket"`
	Weather        Weather   `json:"weather"`
	TimeOfDay      TimeOfDay `json:"time_of_day"`
	RoadType       RoadType  `json:"road_type"`
	EdgeType       EdgeType  `json:"edge_type"`
	NearMiss       bool      `json:"near_miss"`
	Label          string    `json:"label"`
	Notes          string    `json:"notes"`
}

// FilterCriteria restricts a fused search. Nil fields impose no
// constraint; all present clauses are ANDed. Query-time value only,
// never persisted.
type FilterCriteria struct {
	Weather        *Weather   `json:"weather,omitempty"`
	TimeOfDay      *TimeOfDay `json:"time_of_day,omitempty"`
	RoadType       *RoadType  `json:"road_type,omitempty"`
	LocationBucket *string    `json:"location_bucket,omitempty"`
	TSMin          *int64     `json:"ts_min,omitempty"`
	TSMax          *int64     `json:"ts_max,omitempty"`
}

// Empty reports whether no criterion is present.
func (c FilterCriteria) Empty() bool {
	return c.Weather == nil && c.TimeOfDay == nil && c.RoadType == nil &&
		c.LocationBucket == nil && c.TSMin == nil && c.TSMax == nil
}

// FusionWeights holds one non-negative weight per modality. Weights need
// not sum to 1; relative magnitude determines influence. Always an
// explicit value, never a shared mutable default.
type FusionWeights struct {
	Vision float64 `json:"vision"`
	Lidar  float64 `json:"lidar"`
	Radar  float64 `json:"radar"`
	Text   float64 `json:"text"`
}

// DefaultWeights returns the stock weighting used by the demo tooling.
func DefaultWeights() FusionWeights {
	return FusionWeights{Vision: 0.40, Lidar: 0.30, Radar: 0.15, Text: 0.15}
}

// For returns the weight for a modality; unknown modalities weigh zero.
func (w FusionWeights) For(m Modality) float64 {
	switch m {
	case ModalityVision:
		return w.Vision
	case ModalityLidar:
		return w.Lidar
	case ModalityRadar:
		return w.Radar
	case ModalityText:
		return w.Text
	default:
		return 0
	}
}
