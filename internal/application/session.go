package app

import (
	"context"

	"damage-detect/internal/domain/entity"
	"damage-detect/internal/domain/port"
)

type SessionService struct {
	repo port.SessionRepository
}

func NewSessionService(repo port.SessionRepository) *SessionService {
	return &SessionService{repo: repo}
}

func (s *SessionService) Get(ctx context.Context, sessionID string, chatID int64) (*entity.Session, error) {
	return s.repo.Get(ctx, sessionID, chatID)
}

func (s *SessionService) SetState(ctx context.Context, sessionID string, chatID int64, state entity.SessionState) (*entity.Session, error) {
	session, err := s.repo.Get(ctx, sessionID, chatID)
	if err != nil {
		return nil, err
	}

	session.SetState(state)
	if err := s.repo.Save(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Await переводит сессию в ожидание файла для сценария.
func (s *SessionService) Await(ctx context.Context, sessionID string, chatID int64, flow entity.Flow) (*entity.Session, error) {
	return s.SetState(ctx, sessionID, chatID, awaitingState(flow))
}

func (s *SessionService) Cancel(ctx context.Context, sessionID string, chatID int64) (*entity.Session, error) {
	return s.SetState(ctx, sessionID, chatID, entity.StateMainMenu)
}

// Delete забывает сессию
func (s *SessionService) Delete(ctx context.Context, sessionID string) error {
	return s.repo.Delete(ctx, sessionID)
}

func awaitingState(flow entity.Flow) entity.SessionState {
	if flow == entity.FlowVideo {
		return entity.StateAwaitingVideo
	}
	return entity.StateAwaitingImage
}
