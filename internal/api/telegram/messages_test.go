package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"

	app "damage-detect/internal/application"
	"damage-detect/internal/domain/entity"
)

func TestFlowForFile(t *testing.T) {
	session := entity.NewSession("tg:1", 1)
	require.Equal(t, entity.FlowVideo, flowForFile(session, "video/mp4"))
	require.Equal(t, entity.FlowImage, flowForFile(session, "application/pdf"))

	session.SetState(entity.StateAwaitingVideo)
	require.Equal(t, entity.FlowVideo, flowForFile(session, "image/png"))

	session.SetState(entity.StateAwaitingImage)
	require.Equal(t, entity.FlowImage, flowForFile(session, "video/mp4"))
}

func TestImageCaption(t *testing.T) {
	result := &entity.DetectionResult{
		Image:          "aGk=",
		Predictions:    []entity.Prediction{{Class: "scratch", Confidence: 0.91, BBox: entity.BoundingBox{1, 2, 3, 4}}},
		Confidence:     func() *float64 { v := 0.93; return &v }(),
		ProcessingTime: func() *float64 { v := 1.8; return &v }(),
	}
	view := app.BuildView(entity.FlowImage, entity.ImageSuccess(result), nil, nil, "")

	caption := imageCaption(view)
	require.Contains(t, caption, "Уверенность: 93.0%")
	require.Contains(t, caption, "Время обработки: 1.80s")
	require.Contains(t, caption, "• scratch 91.0% [1, 2, 3, 4]")

	empty := imageCaption(app.BuildView(entity.FlowImage, entity.ImageSuccess(&entity.DetectionResult{}), nil, nil, ""))
	require.Contains(t, empty, "Повреждения не обнаружены.")
	require.NotContains(t, empty, "Уверенность")
}

func TestVideoText(t *testing.T) {
	state := entity.VideoSuccess(&entity.UploadResponse{Success: true})
	require.Contains(t, videoText(app.BuildView(entity.FlowVideo, state, nil, nil, "")), "Видео: unavailable")
	require.Contains(t, videoText(app.BuildView(entity.FlowVideo, state, nil, nil, "http://x/out.mp4")), "Видео: http://x/out.mp4")
}

func TestRejectionText(t *testing.T) {
	text := rejectionText([]entity.Rejection{{
		FileName: "doc.pdf",
		Reasons: []entity.RejectReason{
			{Code: entity.RejectTooLarge, Message: "file too large: 12.00 MB exceeds 10.00 MB"},
			{Code: entity.RejectInvalidType, Message: "file type must be image/jpeg,image/png"},
		},
	}})
	require.Contains(t, text, "doc.pdf")
	require.Contains(t, text, "• file too large")
	require.Contains(t, text, "• file type must be")
}

func TestStatusAndStats(t *testing.T) {
	idle := app.BuildView(entity.FlowImage, entity.IdleState(), nil, nil, "")
	failed := app.BuildView(entity.FlowVideo, entity.ErrorState("boom"), &entity.SelectedFile{Name: "a.mp4"}, nil, "")

	text := statusText(idle, failed, false)
	require.Contains(t, text, "Фото: ожидание")
	require.Contains(t, text, "Видео: ошибка (a.mp4): boom")
	require.Contains(t, text, "недоступен")

	stats := statsText(app.NewDashboard())
	require.Contains(t, stats, "1.2.0")
	require.Contains(t, stats, "успешных 94.1%")
}

func TestAwaitingText(t *testing.T) {
	text := awaitingText(entity.FlowVideo, app.FileRules{Pattern: "video/mp4", MaxBytes: 100 << 20})
	require.Equal(t, "🎬 Отправьте видео (video/mp4, до 100.00 MB).", text)
}
