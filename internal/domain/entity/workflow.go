package entity

// Flow сценарий детекции
type Flow string

const (
	FlowImage Flow = "image"
	FlowVideo Flow = "video"
)

// Phase фаза сценария
type Phase string

const (
	PhaseIdle    Phase = "idle"    // запросов ещё не было
	PhaseLoading Phase = "loading" // ровно один запрос в работе
	PhaseSuccess Phase = "success" // результат получен
	PhaseError   Phase = "error"   // запрос завершился ошибкой
)

// WorkflowState снимок состояния одного сценария.
// Результат (Image или Video) и Error взаимоисключающие.
type WorkflowState struct {
	Phase Phase
	Image *DetectionResult
	Video *UploadResponse
	Error string
}

// IdleState начальное состояние
func IdleState() WorkflowState {
	return WorkflowState{Phase: PhaseIdle}
}

// LoadingState состояние ожидания ответа
func LoadingState() WorkflowState {
	return WorkflowState{Phase: PhaseLoading}
}

// ImageSuccess успешный результат по изображению
func ImageSuccess(result *DetectionResult) WorkflowState {
	return WorkflowState{Phase: PhaseSuccess, Image: result}
}

// VideoSuccess успешный результат по видео
func VideoSuccess(result *UploadResponse) WorkflowState {
	return WorkflowState{Phase: PhaseSuccess, Video: result}
}

// ErrorState состояние ошибки с сообщением для пользователя
func ErrorState(message string) WorkflowState {
	return WorkflowState{Phase: PhaseError, Error: message}
}

// HasResult сообщает, заполнен ли результат.
func (s WorkflowState) HasResult() bool {
	return s.Image != nil || s.Video != nil
}

// Consistent проверяет, что фаза согласована с полями.
func (s WorkflowState) Consistent() bool {
	switch s.Phase {
	case PhaseIdle, PhaseLoading:
		return !s.HasResult() && s.Error == ""
	case PhaseSuccess:
		return s.HasResult() && s.Error == ""
	case PhaseError:
		return !s.HasResult() && s.Error != ""
	}
	return false
}
