package web

import (
	app "damage-detect/internal/application"
	"damage-detect/internal/domain/entity"
)

type RejectionResponse struct {
	Error      string             `json:"error"`
	Rejections []entity.Rejection `json:"rejections"`
}

type RulesResponse struct {
	Flow     entity.Flow `json:"flow"`
	Accept   string      `json:"accept"`
	MaxBytes int64       `json:"max_bytes"`
	MaxSize  string      `json:"max_size"`
	Hint     string      `json:"hint"`
}

type HealthResponse struct {
	Healthy bool `json:"healthy"`
}

type LiveFeedResponse struct {
	URL string `json:"url"`
}

type StopResponse struct {
	Stopped bool   `json:"stopped"`
	Error   string `json:"error,omitempty"`
}

func newRulesResponse(flow entity.Flow, rules app.FileRules) RulesResponse {
	return RulesResponse{
		Flow:     flow,
		Accept:   rules.Pattern,
		MaxBytes: rules.MaxBytes,
		MaxSize:  app.FormatMegabytes(rules.MaxBytes),
		Hint:     "Drag & drop a file here, or click to select (" + rules.Pattern + ", max " + app.FormatMegabytes(rules.MaxBytes) + ")",
	}
}
