package port

import (
	"context"

	"damage-detect/internal/domain/entity"
)

// OverlayRenderer рисует рамки предсказаний поверх исходного изображения
type OverlayRenderer interface {
	DrawPredictions(imageData []byte, predictions []entity.Prediction) ([]byte, error)
}

// VideoProber читает метаданные видео до отправки на сервер
type VideoProber interface {
	ProbeVideo(ctx context.Context, videoData []byte) (*entity.VideoInfo, error)
}
