package encode

import (
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/AVSceneAI/scene-memory/engine/domain"
)

// spectrumBins is the fixed number of spectrum samples kept, regardless of
// input length.
const spectrumBins = 128

// Radar encodes a 1-D real-valued time series into a unit vector of
// RadarDim. The magnitude spectrum of the real-input DFT is resampled to a
// fixed bin count: index-based downsampling when the spectrum is longer,
// right zero-padding when shorter. This keeps dominant frequency content
// comparable across sweeps of different lengths.
func (e *Encoder) Radar(signal []float32) ([]float32, error) {
	if len(signal) == 0 {
		return nil, domain.NewShapeError(domain.ModalityRadar, "empty signal")
	}

	s := make([]float64, len(signal))
	for i, v := range signal {
		s[i] = float64(v)
	}

	fft := fourier.NewFFT(len(s))
	coeffs := fft.Coefficients(nil, s)
	mag := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mag[i] = cmplx.Abs(c)
	}

	return toVector(l2Normalize(fitDim(resampleSpectrum(mag, spectrumBins), e.cfg.RadarDim))), nil
}

// resampleSpectrum reduces or pads mag to exactly bins samples. When
// downsampling it picks evenly spaced indices rather than averaging, which
// preserves peak bins at the cost of some spectral leakage.
func resampleSpectrum(mag []float64, bins int) []float64 {
	if len(mag) >= bins {
		out := make([]float64, bins)
		if bins == 1 {
			out[0] = mag[0]
			return out
		}
		for i := range out {
			idx := i * (len(mag) - 1) / (bins - 1)
			out[i] = mag[idx]
		}
		return out
	}
	out := make([]float64, bins)
	copy(out, mag)
	return out
}
