package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"damage-detect/internal/domain/entity"
)

const jpegQuality = 90

// ErrDecode входные байты не являются изображением
var ErrDecode = errors.New("failed to decode image")

// Thumbnail уменьшает изображение до maxSide по большей стороне и кодирует в PNG.
func Thumbnail(imageData []byte, maxSide int) ([]byte, error) {
	img, err := decode(imageData)
	if err != nil {
		return nil, err
	}

	img = shrink(img, maxSide)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Fit готовит изображение к отправке в мессенджер: JPEG не больше maxSide.
// Если картинка уже меньше, байты возвращаются как есть.
func Fit(imageData []byte, maxSide int) ([]byte, error) {
	img, err := decode(imageData)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() <= maxSide && b.Dy() <= maxSide {
		return imageData, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, shrink(img, maxSide), imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Size возвращает размеры изображения.
func Size(imageData []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return 0, 0, ErrDecode
	}
	return cfg.Width, cfg.Height, nil
}

func decode(imageData []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(imageData), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrDecode
	}
	return img, nil
}

func shrink(img image.Image, maxSide int) image.Image {
	b := img.Bounds()
	if maxSide <= 0 || (b.Dx() <= maxSide && b.Dy() <= maxSide) {
		return img
	}
	return imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
}

func label(p entity.Prediction) string {
	return fmt.Sprintf("%s %.1f%%", p.Class, p.Confidence*100)
}
