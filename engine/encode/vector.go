package encode

import "gonum.org/v1/gonum/floats"

// normEpsilon guards the L2 division so an all-zero feature vector stays
// the zero vector instead of producing NaNs.
const normEpsilon = 1e-12

// fitDim right-pads with zeros or right-truncates v to dim.
func fitDim(v []float64, dim int) []float64 {
	switch {
	case len(v) == dim:
		return v
	case len(v) > dim:
		return v[:dim]
	default:
		out := make([]float64, dim)
		copy(out, v)
		return out
	}
}

// l2Normalize scales v to unit Euclidean norm in place and returns it.
func l2Normalize(v []float64) []float64 {
	n := floats.Norm(v, 2) + normEpsilon
	floats.Scale(1/n, v)
	return v
}

// toVector converts the float64 working representation to the float32
// wire representation used by the store.
func toVector(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// histDensity computes a density-normalized histogram of values over
// [lo, hi] with the given bin count. Values outside the range are ignored.
// The rightmost bin is closed so hi itself is counted.
func histDensity(values []float64, bins int, lo, hi float64) []float64 {
	out := make([]float64, bins)
	if bins <= 0 || hi <= lo {
		return out
	}
	width := (hi - lo) / float64(bins)
	total := 0
	for _, v := range values {
		if v < lo || v > hi {
			continue
		}
		idx := int((v - lo) / width)
		if idx == bins {
			idx = bins - 1
		}
		out[idx]++
		total++
	}
	if total == 0 {
		return out
	}
	norm := 1 / (float64(total) * width)
	for i := range out {
		out[i] *= norm
	}
	return out
}
