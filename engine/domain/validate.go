package domain

import (
	"fmt"
	"math"
)

// ValidateWeights rejects negative fusion weights. An all-zero weighting
// is allowed; it simply scores every candidate at zero.
func ValidateWeights(w FusionWeights) error {
	for _, m := range Modalities {
		if v := w.For(m); v < 0 {
			return NewConfigError("weights."+string(m), "must be non-negative, got %v", v)
		}
	}
	return nil
}

// ValidateSearchParams rejects non-positive result caps before any store
// call is made.
func ValidateSearchParams(topK, limitPerModality int) error {
	if topK <= 0 {
		return NewConfigError("top_k", "must be > 0, got %d", topK)
	}
	if limitPerModality <= 0 {
		return NewConfigError("limit_per_modality", "must be > 0, got %d", limitPerModality)
	}
	return nil
}

// ValidateAttributes checks a SceneAttributes value before ingest.
func ValidateAttributes(a SceneAttributes) error {
	if a.SceneID == "" {
		return NewValidationError("scene_id", "", ErrMissingSceneID)
	}
	if !ValidWeathers[a.Weather] {
		return NewValidationError("weather", string(a.Weather), ErrUnknownWeather)
	}
	if !ValidTimesOfDay[a.TimeOfDay] {
		return NewValidationError("time_of_day", string(a.TimeOfDay), ErrUnknownTimeOfDay)
	}
	if !ValidRoadTypes[a.RoadType] {
		return NewValidationError("road_type", string(a.RoadType), ErrUnknownRoadType)
	}
	if !ValidEdgeTypes[a.EdgeType] {
		return NewValidationError("edge_type", string(a.EdgeType), ErrUnknownEdgeType)
	}
	return nil
}

// BucketLocation maps coordinates to a coarse geobucket key used for
// payload filtering. Step defaults to 0.01 degrees when non-positive.
func BucketLocation(lat, lon, step float64) string {
	if step <= 0 {
		step = 0.01
	}
	bl := math.Floor(lat/step) * step
	bo := math.Floor(lon/step) * step
	return fmt.Sprintf("%.2f,%.2f", bl, bo)
}
