//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"

	"gocv.io/x/gocv"

	"damage-detect/internal/domain/entity"
	"damage-detect/internal/domain/port"
)

// Renderer рисует рамки предсказаний средствами OpenCV.
type Renderer struct {
	Thickness int
	FontScale float64
}

// NewRenderer создаёт отрисовщик с настройками по умолчанию
func NewRenderer() *Renderer {
	return &Renderer{Thickness: 2, FontScale: 0.6}
}

// DrawPredictions обводит найденные повреждения и подписывает класс с уверенностью.
func (r *Renderer) DrawPredictions(imageData []byte, predictions []entity.Prediction) ([]byte, error) {
	mat, err := decodeToMat(imageData)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	green := color.RGBA{G: 255, A: 255}
	for _, p := range predictions {
		if !p.BBox.Valid() {
			continue
		}
		rect := p.BBox.Rect()
		gocv.Rectangle(&mat, rect, green, r.Thickness)

		// подпись над рамкой, у верхнего края внутри неё
		org := image.Pt(rect.Min.X, rect.Min.Y-6)
		if org.Y < 12 {
			org.Y = rect.Min.Y + 16
		}
		gocv.PutText(&mat, label(p), org, gocv.FontHersheySimplex, r.FontScale, green, r.Thickness)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Prober читает параметры видео через OpenCV.
type Prober struct{}

// NewProber создаёт пробер
func NewProber() *Prober {
	return &Prober{}
}

// ProbeVideo сохраняет ролик во временный файл и читает его свойства.
func (p *Prober) ProbeVideo(ctx context.Context, videoData []byte) (*entity.VideoInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(videoData) == 0 {
		return nil, errors.New("empty video")
	}

	tmp, err := os.CreateTemp("", "probe-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(videoData); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	capture, err := gocv.VideoCaptureFile(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	defer capture.Close()

	info := &entity.VideoInfo{
		Width:      int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(capture.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        capture.Get(gocv.VideoCaptureFPS),
		FrameCount: int(capture.Get(gocv.VideoCaptureFrameCount)),
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, errors.New("failed to read video properties")
	}

	return info, nil
}

// decodeToMat превращает байты изображения в gocv.Mat.
func decodeToMat(imageData []byte) (gocv.Mat, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	if !mat.Empty() {
		mat.Close()
	}
	return gocv.NewMat(), errors.New("failed to decode image")
}

var (
	_ port.OverlayRenderer = (*Renderer)(nil)
	_ port.VideoProber     = (*Prober)(nil)
)
