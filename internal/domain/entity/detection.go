package entity

// DetectionResult итог детекции по изображению. Опциональные поля могут отсутствовать.
type DetectionResult struct {
	Image          string       `json:"image"` // base64 размеченного изображения
	Predictions    []Prediction `json:"predictions,omitempty"`
	Confidence     *float64     `json:"confidence,omitempty"`
	ProcessingTime *float64     `json:"processingTime,omitempty"` // секунды
}

// UploadResponse ответ эндпоинта обработки видео.
type UploadResponse struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message,omitempty"`
	Data       *DetectionResult `json:"data,omitempty"`
	OutputPath string           `json:"output_path,omitempty"`
	VideoURL   string           `json:"video_url,omitempty"` // относительный путь на сервере детекции
}

// VideoInfo метаданные загруженного видео, если их удалось прочитать.
type VideoInfo struct {
	Width      int
	Height     int
	FPS        float64
	FrameCount int
}

// DurationSeconds возвращает длительность ролика, 0 если fps неизвестен.
func (v VideoInfo) DurationSeconds() float64 {
	if v.FPS <= 0 {
		return 0
	}
	return float64(v.FrameCount) / v.FPS
}
