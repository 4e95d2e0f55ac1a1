package app

import (
	"fmt"
	"strings"

	"damage-detect/internal/domain/entity"
)

// PlaybackUnavailable текст вместо адреса видео, если сервер его не вернул
const PlaybackUnavailable = "unavailable"

// FormatPercent форматирует уверенность 0..1 как проценты с одним знаком.
func FormatPercent(confidence float64) string {
	return fmt.Sprintf("%.1f%%", confidence*100)
}

// FormatSeconds форматирует время обработки с двумя знаками.
func FormatSeconds(seconds float64) string {
	return fmt.Sprintf("%.2fs", seconds)
}

// FormatMegabytes форматирует размер файла в мегабайтах.
func FormatMegabytes(bytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(bytes)/1024/1024)
}

// FormatBox форматирует рамку целыми пикселями.
func FormatBox(b entity.BoundingBox) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%.0f", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FileView сведения о выбранном файле
type FileView struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Size       string `json:"size"`
	Resolution string `json:"resolution,omitempty"`
	Duration   string `json:"duration,omitempty"`
	FPS        string `json:"fps,omitempty"`
}

// PredictionView одна найденная область для отображения
type PredictionView struct {
	Class      string             `json:"class"`
	Confidence string             `json:"confidence"`
	Box        string             `json:"box"`
	BBox       entity.BoundingBox `json:"bbox"`
}

// View состояние сценария в виде, готовом для отображения.
type View struct {
	Flow  entity.Flow  `json:"flow"`
	Phase entity.Phase `json:"phase"`
	Error string       `json:"error,omitempty"`
	File  *FileView    `json:"file,omitempty"`

	// изображение
	ImageSrc       string           `json:"image_src,omitempty"`
	Confidence     string           `json:"confidence,omitempty"`
	ProcessingTime string           `json:"processing_time,omitempty"`
	Predictions    []PredictionView `json:"predictions,omitempty"`

	// видео
	Message           string `json:"message,omitempty"`
	OutputPath        string `json:"output_path,omitempty"`
	Playback          string `json:"playback,omitempty"`
	PlaybackAvailable bool   `json:"playback_available"`
}

// BuildView собирает представление из снимка состояния.
func BuildView(flow entity.Flow, state entity.WorkflowState, file *entity.SelectedFile, info *entity.VideoInfo, playbackURL string) View {
	v := View{
		Flow:  flow,
		Phase: state.Phase,
		Error: state.Error,
		File:  buildFileView(file, info),
	}

	if state.Image != nil {
		fillImage(&v, state.Image)
	}

	if state.Video != nil {
		v.Message = state.Video.Message
		v.OutputPath = state.Video.OutputPath
		if state.Video.Data != nil {
			fillImage(&v, state.Video.Data)
		}
		v.Playback = PlaybackUnavailable
		if playbackURL != "" {
			v.Playback = playbackURL
			v.PlaybackAvailable = true
		}
	}

	return v
}

func fillImage(v *View, result *entity.DetectionResult) {
	if result.Image != "" {
		v.ImageSrc = "data:image/png;base64," + result.Image
	}
	if result.Confidence != nil {
		v.Confidence = FormatPercent(*result.Confidence)
	}
	if result.ProcessingTime != nil {
		v.ProcessingTime = FormatSeconds(*result.ProcessingTime)
	}
	for _, p := range result.Predictions {
		v.Predictions = append(v.Predictions, PredictionView{
			Class:      p.Class,
			Confidence: FormatPercent(p.Confidence),
			Box:        FormatBox(p.BBox),
			BBox:       p.BBox,
		})
	}
}

func buildFileView(file *entity.SelectedFile, info *entity.VideoInfo) *FileView {
	if file == nil {
		return nil
	}

	fv := &FileView{
		Name: file.Name,
		Type: file.MIMEType,
		Size: FormatMegabytes(file.Size),
	}

	if info != nil {
		fv.Resolution = fmt.Sprintf("%dx%d", info.Width, info.Height)
		if d := info.DurationSeconds(); d > 0 {
			fv.Duration = FormatSeconds(d)
		}
		if info.FPS > 0 {
			fv.FPS = fmt.Sprintf("%.0f", info.FPS)
		}
	}

	return fv
}
