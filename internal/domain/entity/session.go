package entity

// SessionState состояние диалога с пользователем
type SessionState string

const (
	StateMainMenu      SessionState = "main_menu"      // В главном меню
	StateAwaitingImage SessionState = "awaiting_image" // Ожидание фото автомобиля
	StateAwaitingVideo SessionState = "awaiting_video" // Ожидание видео
	StateProcessing    SessionState = "processing"     // Запрос к сервису детекции в работе
)

// Session клиент сервиса: чат Telegram или браузер
type Session struct {
	ID     string       // ключ сессии
	ChatID int64        // Telegram Chat ID, 0 для веб-клиента
	State  SessionState // Текущее состояние
}

// NewSession создаёт сессию с начальным состоянием
func NewSession(id string, chatID int64) *Session {
	return &Session{
		ID:     id,
		ChatID: chatID,
		State:  StateMainMenu,
	}
}

// SetState обновляет состояние сессии
func (s *Session) SetState(state SessionState) {
	s.State = state
}

// AwaitedFlow возвращает сценарий, файл для которого ожидается.
func (s *Session) AwaitedFlow() (Flow, bool) {
	switch s.State {
	case StateAwaitingImage:
		return FlowImage, true
	case StateAwaitingVideo:
		return FlowVideo, true
	}
	return "", false
}
