package app

import "damage-detect/internal/domain/entity"

// PerformanceMetrics статичные показатели модели для панели производительности.
// Реальные метрики сервис детекции не отдаёт.
type PerformanceMetrics struct {
	Accuracy             float64 `json:"accuracy"`
	Precision            float64 `json:"precision"`
	Recall               float64 `json:"recall"`
	F1Score              float64 `json:"f1_score"`
	AvgProcessingTime    float64 `json:"avg_processing_time"`
	TotalDetections      int     `json:"total_detections"`
	SuccessfulDetections int     `json:"successful_detections"`
	ModelVersion         string  `json:"model_version"`
	LastUpdated          string  `json:"last_updated"`
}

// Activity запись о недавней детекции
type Activity struct {
	ID         int     `json:"id"`
	Type       string  `json:"type"` // image, video, live
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"` // уже в процентах
	Timestamp  string  `json:"timestamp"`
}

// Dashboard данные панели и производные значения
type Dashboard struct {
	Metrics        PerformanceMetrics `json:"metrics"`
	RecentActivity []Activity         `json:"recent_activity"`
	SuccessRate    string             `json:"success_rate"`
	AvgTime        string             `json:"avg_time"`
}

var defaultMetrics = PerformanceMetrics{
	Accuracy:             94.2,
	Precision:            91.8,
	Recall:               96.5,
	F1Score:              94.1,
	AvgProcessingTime:    2.3,
	TotalDetections:      1247,
	SuccessfulDetections: 1174,
	ModelVersion:         "1.2.0",
	LastUpdated:          "2025-01-15",
}

var defaultActivity = []Activity{
	{ID: 1, Type: string(entity.FlowImage), Status: "success", Confidence: 95.2, Timestamp: "2 minutes ago"},
	{ID: 2, Type: string(entity.FlowVideo), Status: "success", Confidence: 89.7, Timestamp: "15 minutes ago"},
	{ID: 3, Type: string(entity.FlowImage), Status: "success", Confidence: 92.4, Timestamp: "1 hour ago"},
	{ID: 4, Type: "live", Status: "warning", Confidence: 76.3, Timestamp: "2 hours ago"},
	{ID: 5, Type: string(entity.FlowImage), Status: "success", Confidence: 88.9, Timestamp: "3 hours ago"},
}

// NewDashboard возвращает статичную панель
func NewDashboard() Dashboard {
	activity := make([]Activity, len(defaultActivity))
	copy(activity, defaultActivity)

	return Dashboard{
		Metrics:        defaultMetrics,
		RecentActivity: activity,
		SuccessRate:    successRate(defaultMetrics),
		AvgTime:        FormatSeconds(defaultMetrics.AvgProcessingTime),
	}
}

func successRate(m PerformanceMetrics) string {
	if m.TotalDetections == 0 {
		return FormatPercent(0)
	}
	return FormatPercent(float64(m.SuccessfulDetections) / float64(m.TotalDetections))
}
