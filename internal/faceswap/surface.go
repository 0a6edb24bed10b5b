package faceswap

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/faceswap/internal/constants"
)

// Surface is the preview area face markers are placed on.
type Surface struct {
	Width         int       `json:"width"`
	Height        int       `json:"height"`
	NaturalWidth  int       `json:"natural_width,omitempty"`
	NaturalHeight int       `json:"natural_height,omitempty"`
	Timeline      *Timeline `json:"timeline,omitempty"`
}

// Contains reports whether (x, y) lies on the surface.
func (s *Surface) Contains(x, y float64) bool {
	return x >= 0 && y >= 0 && x <= float64(s.Width) && y <= float64(s.Height)
}

// Timeline is the scrubbable range of a video. Duration 0 means unknown.
type Timeline struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Current  float64 `json:"current"`
	Duration float64 `json:"duration"`
}

// Scrub moves the current position, clamped to the selected range.
func (t *Timeline) Scrub(pos float64) {
	t.Current = t.clamp(pos)
}

// SetRange sets the trimmed range and pulls the current position into it.
func (t *Timeline) SetRange(start, end float64) error {
	if start < 0 || end < start || (t.Duration > 0 && end > t.Duration) {
		return fmt.Errorf("%w: %.2f-%.2f", ErrInvalidRange, start, end)
	}
	t.Start = start
	t.End = end
	t.Current = t.clamp(t.Current)
	return nil
}

func (t *Timeline) clamp(pos float64) float64 {
	if pos < t.Start {
		return t.Start
	}
	// end 0 with unknown duration means "until the end of the video"
	if (t.End > 0 || t.Duration > 0) && pos > t.End {
		return t.End
	}
	return pos
}

// fitBox scales w x h to fit into boxW x boxH keeping aspect ratio. Never upscales.
func fitBox(w, h, boxW, boxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return boxW, boxH
	}
	if w <= boxW && h <= boxH {
		return w, h
	}
	scale := min(float64(boxW)/float64(w), float64(boxH)/float64(h))
	return max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))
}

// ImageSurface sizes a surface for an image by reading only its header.
func ImageSurface(r io.Reader, boxW, boxH int) (*Surface, error) {
	cfg, _, err := image.DecodeConfig(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image size: %w", err)
	}
	w, h := fitBox(cfg.Width, cfg.Height, boxW, boxH)
	return &Surface{Width: w, Height: h, NaturalWidth: cfg.Width, NaturalHeight: cfg.Height}, nil
}

// VideoSurface creates a surface for a video. Frames are not decoded, so the
// surface takes the whole preview box and carries a timeline.
func VideoSurface(duration float64, boxW, boxH int) *Surface {
	return &Surface{
		Width:    boxW,
		Height:   boxH,
		Timeline: &Timeline{Start: 0, End: duration, Current: 0, Duration: duration},
	}
}

// RenderPreview decodes an image and re-encodes it as a JPEG of exactly width x height.
func RenderPreview(r io.Reader, width, height int) ([]byte, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	preview := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(preview, preview.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, preview, &jpeg.Options{Quality: constants.PreviewJPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	return buf.Bytes(), nil
}
