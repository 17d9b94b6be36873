// Package encode turns raw modality samples into fixed-length, unit-norm
// feature vectors. All encoders are deterministic pure functions over their
// input and the encoder configuration: identical input always produces a
// bit-identical vector, which keeps re-ingest idempotent.
package encode

import (
	"github.com/AVSceneAI/scene-memory/engine/domain"
)

// Config fixes the output dimension of each modality's vector space.
// Dimensions are schema contracts with the store: once a collection exists
// they must not change unless the collection is recreated.
type Config struct {
	VisionDim int `json:"vision_dim"`
	LidarDim  int `json:"lidar_dim"`
	RadarDim  int `json:"radar_dim"`
	TextDim   int `json:"text_dim"`
}

// DefaultConfig returns the stock deployment dimensions.
func DefaultConfig() Config {
	return Config{VisionDim: 256, LidarDim: 128, RadarDim: 128, TextDim: 256}
}

// DimFor returns the configured dimension for a modality, 0 if unknown.
func (c Config) DimFor(m domain.Modality) int {
	switch m {
	case domain.ModalityVision:
		return c.VisionDim
	case domain.ModalityLidar:
		return c.LidarDim
	case domain.ModalityRadar:
		return c.RadarDim
	case domain.ModalityText:
		return c.TextDim
	default:
		return 0
	}
}

// Validate rejects non-positive dimensions.
func (c Config) Validate() error {
	for _, m := range domain.Modalities {
		if d := c.DimFor(m); d <= 0 {
			return domain.NewConfigError(string(m)+"_dim", "must be > 0, got %d", d)
		}
	}
	return nil
}

// Encoder holds the four modality encoders behind one validated config.
type Encoder struct {
	cfg Config
}

// New creates an Encoder, validating the configuration eagerly.
func New(cfg Config) (*Encoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{cfg: cfg}, nil
}

// Config returns the encoder configuration.
func (e *Encoder) Config() Config { return e.cfg }
