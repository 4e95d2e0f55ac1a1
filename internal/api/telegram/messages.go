package telegram

import (
	"fmt"
	"strings"

	app "damage-detect/internal/application"
	"damage-detect/internal/domain/entity"
)

const (
	msgStart = `👋 Привет! Я бот для поиска повреждений автомобиля на фото и видео.

📸 Отправьте фото машины или выберите сценарий командой.

📋 Команды:
/image — проверить фотографию
/video — обработать видео (mp4)
/live — ссылка на живую трансляцию
/status — состояние сценариев
/stats — показатели модели
/help — справка`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Выберите /image или /video
2️⃣ Отправьте файл (фото можно и без команды)
3️⃣ Получите размеченное изображение или ссылку на обработанное видео

💡 Рекомендации:
• Снимайте при хорошем освещении
• Повреждение должно быть в кадре целиком
• Видео принимается только в формате mp4

📋 Команды:
/reset — сбросить результат
/stop — остановить трансляцию
/cancel — отменить текущую операцию`

	msgAwaitingImage  = "📸 Отправьте фото автомобиля (%s, до %s)."
	msgAwaitingVideo  = "🎬 Отправьте видео (%s, до %s)."
	msgCancelled      = "❌ Операция отменена. Отправьте /image или /video для новой проверки."
	msgSendFile       = "📸 Пожалуйста, отправьте фото или видео для проверки."
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing     = "⏳ Обрабатываю файл..."
	msgBusy           = "⏳ Предыдущий файл ещё обрабатывается, подождите."
	msgDiscarded      = "↩️ Результат отброшен после сброса."
	msgReset          = "🔄 Результаты сброшены."
	msgDownloadError  = "⚠️ Не удалось скачать файл. Попробуйте ещё раз."
	msgRejected       = "🚫 Файл %s не принят:\n%s"
	msgFailed         = "⚠️ Ошибка: %s"
	msgLiveFeed       = "📡 Живая трансляция: %s\nОстановить: /stop"
	msgLiveStopped    = "⏹ Трансляция остановлена."
	msgLiveStopFailed = "⚠️ Не удалось остановить трансляцию, попробуйте позже."
	msgVideoDone      = "✅ %s\n▶️ Видео: %s"
)

var phaseNames = map[entity.Phase]string{
	entity.PhaseIdle:    "ожидание",
	entity.PhaseLoading: "обработка",
	entity.PhaseSuccess: "готово",
	entity.PhaseError:   "ошибка",
}

// awaitingText приглашение прислать файл с подсказкой об ограничениях
func awaitingText(flow entity.Flow, rules app.FileRules) string {
	format := msgAwaitingImage
	if flow == entity.FlowVideo {
		format = msgAwaitingVideo
	}
	return fmt.Sprintf(format, rules.Pattern, app.FormatMegabytes(rules.MaxBytes))
}

func rejectionText(rejections []entity.Rejection) string {
	var b strings.Builder
	for i, r := range rejections {
		if i > 0 {
			b.WriteString("\n")
		}
		reasons := make([]string, 0, len(r.Reasons))
		for _, reason := range r.Reasons {
			reasons = append(reasons, "• "+reason.Message)
		}
		fmt.Fprintf(&b, msgRejected, r.FileName, strings.Join(reasons, "\n"))
	}
	return b.String()
}

// imageCaption подпись к размеченному фото.
func imageCaption(v app.View) string {
	lines := []string{"✅ Анализ завершён"}
	if v.Confidence != "" {
		lines = append(lines, "Уверенность: "+v.Confidence)
	}
	if v.ProcessingTime != "" {
		lines = append(lines, "Время обработки: "+v.ProcessingTime)
	}

	if len(v.Predictions) == 0 {
		lines = append(lines, "Повреждения не обнаружены.")
	} else {
		lines = append(lines, fmt.Sprintf("Найдено повреждений: %d", len(v.Predictions)))
		for _, p := range v.Predictions {
			lines = append(lines, fmt.Sprintf("• %s %s %s", p.Class, p.Confidence, p.Box))
		}
	}

	return strings.Join(lines, "\n")
}

func videoText(v app.View) string {
	message := v.Message
	if message == "" {
		message = "Видео обработано"
	}
	return fmt.Sprintf(msgVideoDone, message, v.Playback)
}

func statusText(image, video app.View, healthy bool) string {
	detector := "🟢 доступен"
	if !healthy {
		detector = "🔴 недоступен"
	}

	return fmt.Sprintf("📊 Состояние\nФото: %s\nВидео: %s\nСервис детекции: %s",
		phaseLine(image), phaseLine(video), detector)
}

func phaseLine(v app.View) string {
	line := phaseNames[v.Phase]
	if v.File != nil {
		line += " (" + v.File.Name + ")"
	}
	if v.Error != "" {
		line += ": " + v.Error
	}
	return line
}

func statsText(d app.Dashboard) string {
	m := d.Metrics
	lines := []string{
		"📈 Показатели модели " + m.ModelVersion,
		fmt.Sprintf("Accuracy: %.1f%%", m.Accuracy),
		fmt.Sprintf("Precision: %.1f%%", m.Precision),
		fmt.Sprintf("Recall: %.1f%%", m.Recall),
		fmt.Sprintf("F1: %.1f%%", m.F1Score),
		"Среднее время: " + d.AvgTime,
		fmt.Sprintf("Детекций: %d, успешных %s", m.TotalDetections, d.SuccessRate),
		"Обновлено: " + m.LastUpdated,
	}
	return strings.Join(lines, "\n")
}

// flowForFile выбирает сценарий: ожидаемый сессией, иначе по типу файла.
func flowForFile(session *entity.Session, mimeType string) entity.Flow {
	if flow, ok := session.AwaitedFlow(); ok {
		return flow
	}
	if strings.HasPrefix(mimeType, "video/") {
		return entity.FlowVideo
	}
	return entity.FlowImage
}
