//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"damage-detect/internal/domain/entity"
	"damage-detect/internal/domain/port"
)

// ErrProbeUnavailable без OpenCV параметры видео не читаются
var ErrProbeUnavailable = errors.New("gocv build tag is not enabled")

// Renderer рисует рамки без OpenCV, только контуры без подписей.
type Renderer struct {
	Thickness int
}

// NewRenderer создаёт отрисовщик-заглушку (без OpenCV).
func NewRenderer() *Renderer {
	return &Renderer{Thickness: 2}
}

// DrawPredictions обводит найденные повреждения зелёной рамкой.
func (r *Renderer) DrawPredictions(imageData []byte, predictions []entity.Prediction) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(imageData), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.New("failed to decode image")
	}

	canvas := imaging.Clone(src)
	green := color.NRGBA{G: 255, A: 255}
	for _, p := range predictions {
		if !p.BBox.Valid() {
			continue
		}
		strokeRect(canvas, p.BBox.Rect(), r.Thickness, green)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, canvas, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func strokeRect(img *image.NRGBA, rect image.Rectangle, thickness int, c color.NRGBA) {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return
	}
	for t := 0; t < thickness; t++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			img.SetNRGBA(x, rect.Min.Y+t, c)
			img.SetNRGBA(x, rect.Max.Y-1-t, c)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			img.SetNRGBA(rect.Min.X+t, y, c)
			img.SetNRGBA(rect.Max.X-1-t, y, c)
		}
	}
}

// Prober заглушка пробера видео
type Prober struct{}

// NewProber создаёт пробер-заглушку (без OpenCV).
func NewProber() *Prober {
	return &Prober{}
}

// ProbeVideo возвращает ошибку, если сборка без тега gocv.
func (p *Prober) ProbeVideo(ctx context.Context, videoData []byte) (*entity.VideoInfo, error) {
	_ = ctx
	_ = videoData
	return nil, ErrProbeUnavailable
}

var (
	_ port.OverlayRenderer = (*Renderer)(nil)
	_ port.VideoProber     = (*Prober)(nil)
)
