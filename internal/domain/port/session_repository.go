package port

import (
	"context"

	"damage-detect/internal/domain/entity"
)

// SessionRepository интерфейс хранилища сессий
type SessionRepository interface {
	// Get возвращает сессию по ключу, создаёт новую если не найдена
	Get(ctx context.Context, sessionID string, chatID int64) (*entity.Session, error)

	// Save сохраняет состояние сессии
	Save(ctx context.Context, session *entity.Session) error

	// UpdateState обновляет состояние сессии
	UpdateState(ctx context.Context, sessionID string, state entity.SessionState) error

	// Delete удаляет сессию; отсутствие сессии не ошибка
	Delete(ctx context.Context, sessionID string) error
}
