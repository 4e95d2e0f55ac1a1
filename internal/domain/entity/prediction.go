package entity

import (
	"fmt"
	"image"

	jsoniter "github.com/json-iterator/go"
)

// BoundingBox рамка повреждения в пикселях исходного изображения: [x1, y1, x2, y2].
type BoundingBox [4]float64

// X1 левая граница
func (b BoundingBox) X1() float64 { return b[0] }

// Y1 верхняя граница
func (b BoundingBox) Y1() float64 { return b[1] }

// X2 правая граница
func (b BoundingBox) X2() float64 { return b[2] }

// Y2 нижняя граница
func (b BoundingBox) Y2() float64 { return b[3] }

// Width возвращает ширину рамки
func (b BoundingBox) Width() float64 { return b[2] - b[0] }

// Height возвращает высоту рамки
func (b BoundingBox) Height() float64 { return b[3] - b[1] }

// Center возвращает координаты центра рамки
func (b BoundingBox) Center() (x, y float64) {
	return b[0] + b.Width()/2, b[1] + b.Height()/2
}

// Valid проверяет порядок координат (x1<=x2, y1<=y2).
func (b BoundingBox) Valid() bool {
	return b[0] <= b[2] && b[1] <= b[3]
}

// Rect переводит рамку в целочисленный прямоугольник для отрисовки.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(int(b[0]), int(b[1]), int(b[2]), int(b[3]))
}

// UnmarshalJSON принимает только массив ровно из четырёх чисел.
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("bbox: %w", err)
	}
	if len(coords) != len(b) {
		return fmt.Errorf("bbox: expected %d coordinates, got %d", len(b), len(coords))
	}
	copy(b[:], coords)
	return nil
}

// Prediction одна найденная область повреждения
type Prediction struct {
	Class      string      `json:"class"`
	Confidence float64     `json:"confidence"` // 0..1
	BBox       BoundingBox `json:"bbox"`
}
