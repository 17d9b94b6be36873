package encode

import (
	"image"

	"github.com/AVSceneAI/scene-memory/engine/domain"
)

const (
	// visionSide is the fixed resample resolution.
	visionSide = 128
	// visionBins is the histogram bin count per sub-feature.
	visionBins = 16
)

// edgeKernel is a 3x3 Laplacian edge detector.
var edgeKernel = [3][3]float64{
	{-1, -1, -1},
	{-1, 8, -1},
	{-1, -1, -1},
}

// Vision encodes an RGB image into a unit vector of VisionDim. Features:
// one 16-bin intensity histogram per color channel over the resampled
// pixels, then one 16-bin histogram of an edge-magnitude transform of the
// same pixels. The concatenation captures coarse color/illumination plus
// coarse texture.
func (e *Encoder) Vision(img image.Image) ([]float32, error) {
	if img == nil {
		return nil, domain.NewShapeError(domain.ModalityVision, "nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, domain.NewShapeError(domain.ModalityVision, "zero-area image %dx%d", b.Dx(), b.Dy())
	}

	r, g, bl := resampleRGB(img, visionSide)

	feats := make([]float64, 0, 4*visionBins)
	feats = append(feats, histDensity(r, visionBins, 0, 1)...)
	feats = append(feats, histDensity(g, visionBins, 0, 1)...)
	feats = append(feats, histDensity(bl, visionBins, 0, 1)...)
	feats = append(feats, histDensity(edgeMagnitude(r, g, bl, visionSide), visionBins, 0, 1)...)

	return toVector(l2Normalize(fitDim(feats, e.cfg.VisionDim))), nil
}

// resampleRGB nearest-neighbour samples img to side x side and returns the
// three channels as [0,1] planes in row-major order.
func resampleRGB(img image.Image, side int) (r, g, b []float64) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	r = make([]float64, side*side)
	g = make([]float64, side*side)
	b = make([]float64, side*side)
	for y := 0; y < side; y++ {
		srcY := bounds.Min.Y + y*h/side
		for x := 0; x < side; x++ {
			srcX := bounds.Min.X + x*w/side
			pr, pg, pb, _ := img.At(srcX, srcY).RGBA()
			i := y*side + x
			r[i] = float64(pr) / 0xffff
			g[i] = float64(pg) / 0xffff
			b[i] = float64(pb) / 0xffff
		}
	}
	return r, g, b
}

// edgeMagnitude convolves each channel with the edge kernel, clamps to
// [0,1], and averages across channels. Border samples clamp to the edge.
func edgeMagnitude(r, g, b []float64, side int) []float64 {
	out := make([]float64, side*side)
	conv := func(plane []float64, x, y int) float64 {
		var acc float64
		for ky := -1; ky <= 1; ky++ {
			for kx := -1; kx <= 1; kx++ {
				sx, sy := clampIdx(x+kx, side), clampIdx(y+ky, side)
				acc += edgeKernel[ky+1][kx+1] * plane[sy*side+sx]
			}
		}
		if acc < 0 {
			return 0
		}
		if acc > 1 {
			return 1
		}
		return acc
	}
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			i := y*side + x
			out[i] = (conv(r, x, y) + conv(g, x, y) + conv(b, x, y)) / 3
		}
	}
	return out
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
