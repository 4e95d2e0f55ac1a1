package app

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"damage-detect/internal/domain/entity"
	"damage-detect/internal/domain/port"
)

var (
	// ErrNoFile в запросе нет файла
	ErrNoFile = errors.New("no file selected")
	// ErrNoResult у сценария нет результата для отображения
	ErrNoResult = errors.New("no detection result")
	// ErrNoRenderer локальная отрисовка недоступна
	ErrNoRenderer = errors.New("overlay renderer is not configured")
)

// RejectionError файл не прошёл проверку; состояние сценария не меняется.
type RejectionError struct {
	Rejections []entity.Rejection
}

func (e *RejectionError) Error() string {
	var msgs []string
	for _, r := range e.Rejections {
		for _, reason := range r.Reasons {
			msgs = append(msgs, reason.Message)
		}
	}
	return strings.Join(msgs, "; ")
}

// flowSlot сценарий одной сессии вместе с его валидатором и выбранным файлом
type flowSlot struct {
	workflow  *Workflow
	validator *Validator
	gate      sync.Mutex // делает проверку и выключение валидатора атомарными

	mu       sync.RWMutex
	selected *entity.SelectedFile
	info     *entity.VideoInfo
}

type sessionFlows struct {
	image    *flowSlot
	video    *flowSlot
	lastUsed time.Time
}

func (f *sessionFlows) busy() bool {
	return f.image.workflow.InFlight() || f.video.workflow.InFlight()
}

func (f *sessionFlows) slot(flow entity.Flow) *flowSlot {
	if flow == entity.FlowVideo {
		return f.video
	}
	return f.image
}

// DetectionService связывает сессии, валидаторы и сценарии детекции.
// У каждой сессии свои независимые сценарии для изображений и видео.
type DetectionService struct {
	sessions *SessionService
	detector port.DamageDetector
	prober   port.VideoProber
	renderer port.OverlayRenderer
	rules    map[entity.Flow]FileRules
	log      *logrus.Logger
	now      func() time.Time

	mu    sync.Mutex
	flows map[string]*sessionFlows
}

// NewDetectionService создаёт сервис. prober и renderer могут быть nil.
func NewDetectionService(
	sessions *SessionService,
	detector port.DamageDetector,
	prober port.VideoProber,
	renderer port.OverlayRenderer,
	imageRules, videoRules FileRules,
	logger *logrus.Logger,
) *DetectionService {
	return &DetectionService{
		sessions: sessions,
		detector: detector,
		prober:   prober,
		renderer: renderer,
		rules: map[entity.Flow]FileRules{
			entity.FlowImage: imageRules,
			entity.FlowVideo: videoRules,
		},
		log:   logger,
		now:   time.Now,
		flows: make(map[string]*sessionFlows),
	}
}

// Rules возвращает ограничения для сценария
func (s *DetectionService) Rules(flow entity.Flow) FileRules {
	return s.rules[flow]
}

// slot возвращает сценарий сессии, создавая его при первой загрузке файла.
func (s *DetectionService) slot(sessionID string, flow entity.Flow) *flowSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[sessionID]
	if !ok {
		f = &sessionFlows{
			image: s.newSlot(entity.FlowImage),
			video: s.newSlot(entity.FlowVideo),
		}
		s.flows[sessionID] = f
	}
	f.lastUsed = s.now()
	return f.slot(flow)
}

// peek возвращает сценарий без создания; nil если сессия ничего не загружала.
func (s *DetectionService) peek(sessionID string, flow entity.Flow) *flowSlot {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[sessionID]
	if !ok {
		return nil
	}
	f.lastUsed = s.now()
	return f.slot(flow)
}

// Sweep удаляет сессии без активности дольше idle, если у них нет запроса
// в полёте. Возвращает число удалённых сессий.
func (s *DetectionService) Sweep(ctx context.Context, idle time.Duration) int {
	deadline := s.now().Add(-idle)

	s.mu.Lock()
	var stale []string
	for id, f := range s.flows {
		if f.lastUsed.After(deadline) || f.busy() {
			continue
		}
		delete(s.flows, id)
		stale = append(stale, id)
	}
	s.mu.Unlock()

	for _, id := range stale {
		if err := s.sessions.Delete(ctx, id); err != nil {
			s.log.WithError(err).WithField("session", id).Warn("failed to delete session")
		}
	}

	if len(stale) > 0 {
		s.log.WithField("count", len(stale)).Debug("idle sessions removed")
	}
	return len(stale)
}

// RunJanitor периодически вызывает Sweep до отмены контекста.
func (s *DetectionService) RunJanitor(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, idle)
		}
	}
}

// Precheck проверяет файл по метаданным до скачивания. Отказ возвращается
// только при превышении размера; тип уточняется позже по содержимому.
func (s *DetectionService) Precheck(flow entity.Flow, file entity.SelectedFile) []entity.Rejection {
	checked, reasons := s.rules[flow].Check(file)
	for _, r := range reasons {
		if r.Code == entity.RejectTooLarge {
			return []entity.Rejection{{FileName: checked.Name, Reasons: reasons}}
		}
	}
	return nil
}

func (s *DetectionService) newSlot(flow entity.Flow) *flowSlot {
	slot := &flowSlot{workflow: NewWorkflow(flow, s.detector)}
	slot.validator = NewValidator(s.rules[flow], slot.remember)
	return slot
}

// remember сохраняет принятый файл для отображения
func (f *flowSlot) remember(file entity.SelectedFile) {
	f.mu.Lock()
	f.selected = &file
	f.info = nil
	f.mu.Unlock()
}

func (f *flowSlot) clear() {
	f.mu.Lock()
	f.selected = nil
	f.info = nil
	f.mu.Unlock()
}

// Start проверяет файл и запускает детекцию в фоне. Канал получит итог,
// если его не отбросит Reset. Ошибки: *RejectionError, ErrBusy, ErrNoFile.
func (s *DetectionService) Start(ctx context.Context, sessionID string, chatID int64, flow entity.Flow, candidates []entity.SelectedFile) (<-chan entity.WorkflowState, error) {
	slot := s.slot(sessionID, flow)

	file, err := s.accept(slot, candidates)
	if err != nil {
		return nil, err
	}

	// Новый файл заменяет прошлый результат
	if phase := slot.workflow.State().Phase; phase == entity.PhaseSuccess || phase == entity.PhaseError {
		slot.workflow.Reset()
	}

	if flow == entity.FlowVideo {
		s.probe(ctx, slot, file)
	}

	if _, err := s.sessions.SetState(ctx, sessionID, chatID, entity.StateProcessing); err != nil {
		slot.validator.SetDisabled(false)
		return nil, err
	}

	results, err := slot.workflow.Start(ctx, file)
	if err != nil {
		slot.validator.SetDisabled(false)
		return nil, err
	}

	logger := s.log.WithFields(logrus.Fields{
		"session": sessionID,
		"flow":    flow,
		"file":    file.Name,
		"size":    file.Size,
	})
	logger.Info("detection started")

	out := make(chan entity.WorkflowState, 1)
	go func() {
		defer close(out)

		state, ok := <-results
		slot.validator.SetDisabled(false)

		if _, err := s.sessions.Await(context.WithoutCancel(ctx), sessionID, chatID, flow); err != nil {
			logger.WithError(err).Warn("failed to update session state")
		}

		if !ok {
			logger.Info("detection result discarded")
			return
		}

		if state.Phase == entity.PhaseError {
			logger.WithField("error", state.Error).Warn("detection failed")
		} else {
			logger.Info("detection finished")
		}
		out <- state
	}()

	return out, nil
}

// accept валидирует кандидатов и выключает валидатор на время запроса.
func (s *DetectionService) accept(slot *flowSlot, candidates []entity.SelectedFile) (*entity.SelectedFile, error) {
	if len(candidates) == 0 {
		return nil, ErrNoFile
	}

	slot.gate.Lock()
	defer slot.gate.Unlock()

	file, rejections := slot.validator.Select(candidates)
	if len(rejections) > 0 {
		return nil, &RejectionError{Rejections: rejections}
	}
	if file == nil {
		return nil, ErrBusy
	}

	slot.validator.SetDisabled(true)
	return file, nil
}

func (s *DetectionService) probe(ctx context.Context, slot *flowSlot, file *entity.SelectedFile) {
	if s.prober == nil {
		return
	}

	info, err := s.prober.ProbeVideo(ctx, file.Data)
	if err != nil {
		s.log.WithError(err).Debug("video probe skipped")
		return
	}

	slot.mu.Lock()
	slot.info = info
	slot.mu.Unlock()
}

// Submit запускает детекцию и ждёт итог.
func (s *DetectionService) Submit(ctx context.Context, sessionID string, chatID int64, flow entity.Flow, candidates []entity.SelectedFile) (entity.WorkflowState, error) {
	results, err := s.Start(ctx, sessionID, chatID, flow, candidates)
	if err != nil {
		return entity.WorkflowState{}, err
	}

	select {
	case state, ok := <-results:
		if !ok {
			return s.State(sessionID, flow), ErrDiscarded
		}
		return state, nil
	case <-ctx.Done():
		return s.State(sessionID, flow), ctx.Err()
	}
}

// State возвращает снимок состояния сценария.
func (s *DetectionService) State(sessionID string, flow entity.Flow) entity.WorkflowState {
	slot := s.peek(sessionID, flow)
	if slot == nil {
		return entity.IdleState()
	}
	return slot.workflow.State()
}

// View возвращает представление сценария.
func (s *DetectionService) View(sessionID string, flow entity.Flow) View {
	slot := s.peek(sessionID, flow)
	if slot == nil {
		return BuildView(flow, entity.IdleState(), nil, nil, "")
	}

	slot.mu.RLock()
	selected, info := slot.selected, slot.info
	slot.mu.RUnlock()

	return BuildView(flow, slot.workflow.State(), selected, info, slot.workflow.PlaybackURL())
}

// PlaybackURL абсолютный адрес обработанного видео сессии.
func (s *DetectionService) PlaybackURL(sessionID string) string {
	slot := s.peek(sessionID, entity.FlowVideo)
	if slot == nil {
		return ""
	}
	return slot.workflow.PlaybackURL()
}

// Reset возвращает сценарий в idle и забывает выбранный файл.
func (s *DetectionService) Reset(ctx context.Context, sessionID string, chatID int64, flow entity.Flow) View {
	slot := s.peek(sessionID, flow)
	if slot == nil {
		return s.View(sessionID, flow)
	}
	slot.workflow.Reset()
	slot.clear()

	if _, err := s.sessions.Await(ctx, sessionID, chatID, flow); err != nil {
		s.log.WithError(err).Warn("failed to update session state")
	}

	return s.View(sessionID, flow)
}

// AnnotatedImage декодирует размеченное изображение последнего результата.
func (s *DetectionService) AnnotatedImage(sessionID string) ([]byte, error) {
	state := s.State(sessionID, entity.FlowImage)
	if state.Image == nil || state.Image.Image == "" {
		return nil, ErrNoResult
	}
	return base64.StdEncoding.DecodeString(state.Image.Image)
}

// Overlay заново рисует рамки предсказаний на исходном изображении.
func (s *DetectionService) Overlay(sessionID string) ([]byte, error) {
	if s.renderer == nil {
		return nil, ErrNoRenderer
	}

	slot := s.peek(sessionID, entity.FlowImage)
	if slot == nil {
		return nil, ErrNoResult
	}
	state := slot.workflow.State()
	if state.Image == nil {
		return nil, ErrNoResult
	}

	slot.mu.RLock()
	selected := slot.selected
	slot.mu.RUnlock()
	if selected == nil || len(selected.Data) == 0 {
		return nil, ErrNoResult
	}

	return s.renderer.DrawPredictions(selected.Data, state.Image.Predictions)
}

// Healthy проверяет доступность сервиса детекции.
func (s *DetectionService) Healthy(ctx context.Context) bool {
	return s.detector.CheckHealth(ctx)
}

// LiveFeedURL адрес живой трансляции
func (s *DetectionService) LiveFeedURL() string {
	return s.detector.LiveFeedURL()
}

// StopLiveFeed останавливает трансляцию; ошибка только логируется и возвращается.
func (s *DetectionService) StopLiveFeed(ctx context.Context) error {
	if err := s.detector.StopLiveFeed(ctx); err != nil {
		s.log.WithError(err).Warn("failed to stop live feed")
		return err
	}
	return nil
}
