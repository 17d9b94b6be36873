package encode

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/AVSceneAI/scene-memory/engine/domain"
)

func newTestEncoder(t *testing.T) *Encoder {
	t.Helper()
	enc, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return enc
}

func vecNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func assertUnit(t *testing.T, v []float32, dim int) {
	t.Helper()
	if len(v) != dim {
		t.Fatalf("got %d dims, want %d", len(v), dim)
	}
	if n := vecNorm(v); math.Abs(n-1) > 1e-5 {
		t.Fatalf("norm = %v, want 1", n)
	}
}

func assertEqualVec(t *testing.T, a, b []float32) {
	t.Helper()
	if len(a) != len(b) {
		t.Fatalf("length mismatch %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x * 255 / max(w-1, 1)),
				G: uint8(y * 255 / max(h-1, 1)),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}
	return img
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func TestNew_BadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RadarDim = 0
	if _, err := New(cfg); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
	cfg = DefaultConfig()
	cfg.TextDim = -5
	if _, err := New(cfg); !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestVision_UnitNormAndDeterminism(t *testing.T) {
	enc := newTestEncoder(t)
	img := testImage(64, 48)

	v1, err := enc.Vision(img)
	if err != nil {
		t.Fatalf("Vision: %v", err)
	}
	assertUnit(t, v1, enc.Config().VisionDim)

	v2, err := enc.Vision(img)
	if err != nil {
		t.Fatalf("Vision: %v", err)
	}
	assertEqualVec(t, v1, v2)
}

func TestVision_ZeroArea(t *testing.T) {
	enc := newTestEncoder(t)
	_, err := enc.Vision(image.NewRGBA(image.Rect(0, 0, 0, 10)))
	if !errors.Is(err, domain.ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape, got %v", err)
	}
	if _, err := enc.Vision(nil); !errors.Is(err, domain.ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape for nil, got %v", err)
	}
}

func TestVision_DistinguishesImages(t *testing.T) {
	enc := newTestEncoder(t)
	dark := image.NewRGBA(image.Rect(0, 0, 32, 32)) // all black
	bright := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			bright.Set(x, y, color.RGBA{R: 240, G: 240, B: 240, A: 255})
		}
	}
	v1, _ := enc.Vision(dark)
	v2, _ := enc.Vision(bright)
	same := true
	for i := range v1 {
		if v1[i] != v2[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("dark and bright images should encode differently")
	}
}

func TestLidar_UnitNormAndDeterminism(t *testing.T) {
	enc := newTestEncoder(t)
	pts := []float32{
		0, 0, 0,
		1, 2, 3,
		-1, -2, -3,
		5, 0, 1,
	}
	v1, err := enc.Lidar(pts)
	if err != nil {
		t.Fatalf("Lidar: %v", err)
	}
	assertUnit(t, v1, enc.Config().LidarDim)

	v2, err := enc.Lidar(pts)
	if err != nil {
		t.Fatalf("Lidar: %v", err)
	}
	assertEqualVec(t, v1, v2)
}

func TestLidar_BadShape(t *testing.T) {
	enc := newTestEncoder(t)
	if _, err := enc.Lidar(nil); !errors.Is(err, domain.ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape for empty, got %v", err)
	}
	if _, err := enc.Lidar([]float32{1, 2}); !errors.Is(err, domain.ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape for non-triple, got %v", err)
	}
	var se *domain.ShapeError
	_, err := enc.Lidar([]float32{1, 2, 3, 4})
	if !errors.As(err, &se) || se.Modality != domain.ModalityLidar {
		t.Fatalf("expected lidar ShapeError, got %v", err)
	}
}

func TestLidar_SinglePoint(t *testing.T) {
	enc := newTestEncoder(t)
	v, err := enc.Lidar([]float32{3, 4, 0})
	if err != nil {
		t.Fatalf("Lidar: %v", err)
	}
	assertUnit(t, v, enc.Config().LidarDim)
}

func TestRadar_UnitNormAndDeterminism(t *testing.T) {
	enc := newTestEncoder(t)
	sig := make([]float32, 512)
	for i := range sig {
		sig[i] = float32(math.Sin(2 * math.Pi * 18 * float64(i) / 512))
	}
	v1, err := enc.Radar(sig)
	if err != nil {
		t.Fatalf("Radar: %v", err)
	}
	assertUnit(t, v1, enc.Config().RadarDim)

	v2, err := enc.Radar(sig)
	if err != nil {
		t.Fatalf("Radar: %v", err)
	}
	assertEqualVec(t, v1, v2)
}

func TestRadar_ShortSignalZeroPads(t *testing.T) {
	enc := newTestEncoder(t)
	v, err := enc.Radar([]float32{1, 0, -1, 0, 1, 0, -1, 0})
	if err != nil {
		t.Fatalf("Radar: %v", err)
	}
	assertUnit(t, v, enc.Config().RadarDim)
	// An 8-sample signal has a 5-bin spectrum; everything past it is padding.
	for i := 5; i < len(v); i++ {
		if v[i] != 0 {
			t.Fatalf("expected zero padding at bin %d, got %v", i, v[i])
		}
	}
}

func TestRadar_Empty(t *testing.T) {
	enc := newTestEncoder(t)
	if _, err := enc.Radar(nil); !errors.Is(err, domain.ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape, got %v", err)
	}
}

func TestRadar_DistinguishesFrequencies(t *testing.T) {
	enc := newTestEncoder(t)
	low := make([]float32, 512)
	high := make([]float32, 512)
	for i := range low {
		low[i] = float32(math.Sin(2 * math.Pi * 8 * float64(i) / 512))
		high[i] = float32(math.Sin(2 * math.Pi * 40 * float64(i) / 512))
	}
	v1, _ := enc.Radar(low)
	v2, _ := enc.Radar(high)
	var dot float64
	for i := range v1 {
		dot += float64(v1[i]) * float64(v2[i])
	}
	if dot > 0.9 {
		t.Fatalf("distinct tones should not be near-identical, cosine=%v", dot)
	}
}

func TestText_UnitNormAndDeterminism(t *testing.T) {
	enc := newTestEncoder(t)
	v1, err := enc.Text("pedestrian detected crossing at night")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	assertUnit(t, v1, enc.Config().TextDim)

	v2, _ := enc.Text("pedestrian detected crossing at night")
	assertEqualVec(t, v1, v2)
}

func TestText_EmptyIsZeroVector(t *testing.T) {
	enc := newTestEncoder(t)
	v, err := enc.Text("")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if len(v) != enc.Config().TextDim {
		t.Fatalf("got %d dims", len(v))
	}
	if n := vecNorm(v); n != 0 {
		t.Fatalf("empty text should be the zero vector, norm=%v", n)
	}
	// Stop words only is just as degenerate.
	v, _ = enc.Text("the and of in")
	if n := vecNorm(v); n != 0 {
		t.Fatalf("stop-word-only text should be the zero vector, norm=%v", n)
	}
}

func TestText_CaseAndPunctuationInsensitive(t *testing.T) {
	enc := newTestEncoder(t)
	v1, _ := enc.Text("Pedestrian crossing!")
	v2, _ := enc.Text("pedestrian, crossing")
	assertEqualVec(t, v1, v2)
}

func TestTokenize(t *testing.T) {
	toks := tokenize("The pedestrian was detected, crossing at x=5.")
	want := []string{"pedestrian", "detected", "crossing"}
	if len(toks) != len(want) {
		t.Fatalf("got %v, want %v", toks, want)
	}
	for i := range want {
		if toks[i] != want[i] {
			t.Fatalf("got %v, want %v", toks, want)
		}
	}
}

func TestFitDim(t *testing.T) {
	v := fitDim([]float64{1, 2, 3}, 5)
	if len(v) != 5 || v[3] != 0 || v[4] != 0 {
		t.Fatalf("pad failed: %v", v)
	}
	v = fitDim([]float64{1, 2, 3}, 2)
	if len(v) != 2 || v[0] != 1 || v[1] != 2 {
		t.Fatalf("truncate failed: %v", v)
	}
	v = fitDim([]float64{1, 2}, 2)
	if len(v) != 2 {
		t.Fatalf("identity failed: %v", v)
	}
}

func TestHistDensity(t *testing.T) {
	// 4 values into 2 bins of width 0.5: densities integrate to 1.
	h := histDensity([]float64{0.1, 0.2, 0.6, 1.0}, 2, 0, 1)
	if len(h) != 2 {
		t.Fatalf("got %d bins", len(h))
	}
	integral := (h[0] + h[1]) * 0.5
	if math.Abs(integral-1) > 1e-12 {
		t.Fatalf("density should integrate to 1, got %v", integral)
	}
	// Out-of-range values are ignored.
	h = histDensity([]float64{-1, 2}, 2, 0, 1)
	if h[0] != 0 || h[1] != 0 {
		t.Fatalf("out-of-range values should be ignored: %v", h)
	}
}

func TestL2Normalize_ZeroStaysZero(t *testing.T) {
	v := l2Normalize(make([]float64, 8))
	for _, x := range v {
		if x != 0 {
			t.Fatalf("zero vector must stay zero, got %v", v)
		}
	}
}
