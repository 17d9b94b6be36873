package encode

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/AVSceneAI/scene-memory/engine/domain"
)

// radialBins is the fixed bin count for the point-to-origin distance
// histogram.
const radialBins = 64

// Lidar encodes an unordered point cloud, given as packed xyz triples,
// into a unit vector of LidarDim. Features: per-axis mean, standard
// deviation, minimum, and maximum (12 scalars) followed by a
// density-normalized radial-distance histogram. Summary statistics capture
// scene scale and spread without point correspondence.
func (e *Encoder) Lidar(points []float32) ([]float32, error) {
	if len(points) == 0 {
		return nil, domain.NewShapeError(domain.ModalityLidar, "empty point set")
	}
	if len(points)%3 != 0 {
		return nil, domain.NewShapeError(domain.ModalityLidar, "point buffer length %d is not a multiple of 3", len(points))
	}

	n := len(points) / 3
	axes := [3][]float64{}
	for a := range axes {
		axes[a] = make([]float64, n)
	}
	radial := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(points[3*i])
		y := float64(points[3*i+1])
		z := float64(points[3*i+2])
		axes[0][i], axes[1][i], axes[2][i] = x, y, z
		radial[i] = math.Sqrt(x*x + y*y + z*z)
	}

	feats := make([]float64, 0, 12+radialBins)
	for _, axis := range axes {
		feats = append(feats, stat.Mean(axis, nil))
	}
	for _, axis := range axes {
		feats = append(feats, stat.PopStdDev(axis, nil))
	}
	for _, axis := range axes {
		feats = append(feats, floats.Min(axis))
	}
	for _, axis := range axes {
		feats = append(feats, floats.Max(axis))
	}

	rmax := math.Max(1, floats.Max(radial))
	feats = append(feats, histDensity(radial, radialBins, 0, rmax)...)

	return toVector(l2Normalize(fitDim(feats, e.cfg.LidarDim))), nil
}
