package port

import (
	"context"

	"damage-detect/internal/domain/entity"
)

// DamageDetector интерфейс удалённого сервиса детекции повреждений
type DamageDetector interface {
	// DetectImage отправляет изображение и возвращает размеченный результат
	DetectImage(ctx context.Context, file *entity.SelectedFile) (*entity.DetectionResult, error)

	// DetectVideo отправляет видео на обработку
	DetectVideo(ctx context.Context, file *entity.SelectedFile) (*entity.UploadResponse, error)

	// CheckHealth проверяет доступность сервиса, никогда не возвращает ошибку
	CheckHealth(ctx context.Context) bool

	// StopLiveFeed останавливает живую трансляцию
	StopLiveFeed(ctx context.Context) error

	// LiveFeedURL адрес живой трансляции
	LiveFeedURL() string

	// ResolveURL превращает относительный путь сервиса в абсолютный адрес
	ResolveURL(rel string) string
}
