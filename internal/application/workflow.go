package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"damage-detect/internal/domain/entity"
	"damage-detect/internal/domain/port"
)

var (
	// ErrBusy запрос этого сценария уже в работе
	ErrBusy = errors.New("detection request already in flight")
	// ErrDiscarded ответ пришёл после Reset и был отброшен
	ErrDiscarded = errors.New("detection result discarded by reset")
)

const (
	fallbackImageError = "Failed to process image"
	fallbackVideoError = "Failed to process video"
)

// Workflow конечный автомат одного сценария детекции:
// idle -> loading -> success | error, Reset из любого состояния возвращает в idle.
// В работе всегда не больше одного запроса, даже после Reset.
type Workflow struct {
	flow     entity.Flow
	detector port.DamageDetector

	mu       sync.RWMutex
	state    entity.WorkflowState
	gen      uint64
	inflight bool
	done     chan struct{} // закрывается при выходе из loading
}

// NewWorkflow создаёт сценарий в состоянии idle
func NewWorkflow(flow entity.Flow, detector port.DamageDetector) *Workflow {
	return &Workflow{
		flow:     flow,
		detector: detector,
		state:    entity.IdleState(),
	}
}

// Flow возвращает вид сценария
func (w *Workflow) Flow() entity.Flow {
	return w.flow
}

// State возвращает снимок состояния.
func (w *Workflow) State() entity.WorkflowState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// InFlight сообщает, ждёт ли сценарий ответа сервиса.
func (w *Workflow) InFlight() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.inflight
}

// Submit переводит сценарий в loading, вызывает детектор и сохраняет итог.
// Блокирует до ответа сервиса; вызов при запросе в работе возвращает ErrBusy.
func (w *Workflow) Submit(ctx context.Context, file *entity.SelectedFile) (entity.WorkflowState, error) {
	gen, err := w.begin()
	if err != nil {
		return w.State(), err
	}
	return w.complete(gen, w.run(ctx, file))
}

// Start то же, что Submit, но ответ ждёт в фоне. Состояние loading выставляется
// до возврата; итог приходит в канал, если его не отбросил Reset.
func (w *Workflow) Start(ctx context.Context, file *entity.SelectedFile) (<-chan entity.WorkflowState, error) {
	gen, err := w.begin()
	if err != nil {
		return nil, err
	}

	out := make(chan entity.WorkflowState, 1)
	go func() {
		defer close(out)
		if state, err := w.complete(gen, w.run(ctx, file)); err == nil {
			out <- state
		}
	}()

	return out, nil
}

// begin занимает сценарий под новый запрос.
func (w *Workflow) begin() (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.inflight {
		return 0, ErrBusy
	}

	w.gen++
	w.inflight = true
	w.state = entity.LoadingState()
	w.done = make(chan struct{})

	return w.gen, nil
}

// complete сохраняет итог запроса gen, если после него не было Reset.
func (w *Workflow) complete(gen uint64, next entity.WorkflowState) (entity.WorkflowState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.inflight = false
	if gen != w.gen {
		return w.state, ErrDiscarded
	}

	w.state = next
	close(w.done)
	w.done = nil

	return next, nil
}

// run выполняет единственный сетевой вызов и переводит ответ в состояние.
func (w *Workflow) run(ctx context.Context, file *entity.SelectedFile) entity.WorkflowState {
	if w.detector == nil {
		return entity.ErrorState("detector is not configured")
	}

	switch w.flow {
	case entity.FlowImage:
		result, err := w.detector.DetectImage(ctx, file)
		if err != nil {
			return entity.ErrorState(errorMessage(err, fallbackImageError))
		}
		if result == nil {
			return entity.ErrorState(fallbackImageError)
		}
		return entity.ImageSuccess(result)

	case entity.FlowVideo:
		result, err := w.detector.DetectVideo(ctx, file)
		if err != nil {
			return entity.ErrorState(errorMessage(err, fallbackVideoError))
		}
		if result == nil {
			return entity.ErrorState(fallbackVideoError)
		}
		if !result.Success {
			return entity.ErrorState(nonEmpty(result.Message, fallbackVideoError))
		}
		return entity.VideoSuccess(result)
	}

	return entity.ErrorState(fmt.Sprintf("unknown flow %q", w.flow))
}

// Reset безусловно возвращает сценарий в idle. Ответ запроса в работе будет отброшен.
func (w *Workflow) Reset() entity.WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.gen++
	if w.done != nil {
		close(w.done)
		w.done = nil
	}
	w.state = entity.IdleState()

	return w.state
}

// Wait ждёт выхода из loading и возвращает состояние.
func (w *Workflow) Wait(ctx context.Context) (entity.WorkflowState, error) {
	w.mu.RLock()
	done := w.done
	w.mu.RUnlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return w.State(), ctx.Err()
		}
	}

	return w.State(), nil
}

// PlaybackURL абсолютный адрес обработанного видео, пустой если сервер его не вернул.
func (w *Workflow) PlaybackURL() string {
	state := w.State()
	if state.Phase != entity.PhaseSuccess || state.Video == nil || state.Video.VideoURL == "" {
		return ""
	}
	return w.detector.ResolveURL(state.Video.VideoURL)
}

// PlaybackAvailable сообщает, можно ли воспроизвести результат.
func (w *Workflow) PlaybackAvailable() bool {
	return w.PlaybackURL() != ""
}

func errorMessage(err error, fallback string) string {
	return nonEmpty(err.Error(), fallback)
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
