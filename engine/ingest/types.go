package ingest

import (
	"image"
	"image/color"

	"github.com/AVSceneAI/scene-memory/engine/domain"
)

// RawScene is the wire and file format for one multi-modal scene. Any
// subset of the sensor payloads may be present; absent modalities simply
// produce no vector. Camera pixels travel base64-encoded through JSON.
type RawScene struct {
	Attributes domain.SceneAttributes `json:"attributes"`
	Camera     *CameraFrame           `json:"camera,omitempty"`
	Lidar      []float32              `json:"lidar,omitempty"`
	Radar      []float32              `json:"radar,omitempty"`
}

// CameraFrame is a decoded RGB frame, 3 bytes per pixel, row major.
type CameraFrame struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pixels []byte `json:"pixels"`
}

// Image converts the frame into an image.Image for the vision encoder.
// Returns nil when the buffer does not match Width*Height*3.
func (f *CameraFrame) Image() image.Image {
	if f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Pixels) != f.Width*f.Height*3 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			off := (y*f.Width + x) * 3
			img.SetRGBA(x, y, color.RGBA{
				R: f.Pixels[off],
				G: f.Pixels[off+1],
				B: f.Pixels[off+2],
				A: 255,
			})
		}
	}
	return img
}

// HasPayload reports whether at least one sensor modality or a text note
// is present, i.e. whether encoding can produce any vector at all.
func (s RawScene) HasPayload() bool {
	return s.Camera != nil || len(s.Lidar) > 0 || len(s.Radar) > 0 || s.Attributes.Notes != ""
}
