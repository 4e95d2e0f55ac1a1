package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	app "damage-detect/internal/application"
	"damage-detect/internal/domain/entity"
	"damage-detect/internal/infrastructure/vision"
)

const (
	// maxPhotoSide больше Telegram всё равно пережмёт
	maxPhotoSide    = 1280
	downloadTimeout = 60 * time.Second
)

// Bot представляет Telegram-бота
type Bot struct {
	api       *tgbotapi.BotAPI
	sessions  *app.SessionService
	detection *app.DetectionService
	dashboard app.Dashboard
	http      *http.Client
	log       *logrus.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, sessions *app.SessionService, detection *app.DetectionService, dashboard app.Dashboard, logger *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger.Infof("Authorized on account %s", api.Self.UserName)

	return newBot(api, sessions, detection, dashboard, logger), nil
}

func newBot(api *tgbotapi.BotAPI, sessions *app.SessionService, detection *app.DetectionService, dashboard app.Dashboard, logger *logrus.Logger) *Bot {
	return &Bot{
		api:       api,
		sessions:  sessions,
		detection: detection,
		dashboard: dashboard,
		http:      &http.Client{Timeout: downloadTimeout},
		log:       logger,
	}
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func sessionID(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	session, err := b.sessions.Get(ctx, sessionID(chatID), chatID)
	if err != nil {
		b.log.WithError(err).Error("Error getting session")
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, session)
		return
	}

	switch {
	case len(msg.Photo) > 0:
		// Файл с максимальным разрешением
		photo := msg.Photo[len(msg.Photo)-1]
		b.handleFile(ctx, session, entity.FlowImage, photo.FileID, fmt.Sprintf("photo_%d.jpg", msg.MessageID), "image/jpeg", int64(photo.FileSize))

	case msg.Video != nil:
		b.handleFile(ctx, session, entity.FlowVideo, msg.Video.FileID, nonEmpty(msg.Video.FileName, "video.mp4"), msg.Video.MimeType, int64(msg.Video.FileSize))

	case msg.Document != nil:
		doc := msg.Document
		flow := flowForFile(session, doc.MimeType)
		b.handleFile(ctx, session, flow, doc.FileID, doc.FileName, doc.MimeType, int64(doc.FileSize))

	default:
		b.sendMessage(chatID, msgSendFile)
	}
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, session *entity.Session) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.setState(ctx, session, entity.StateMainMenu)
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "image", "check":
		b.await(ctx, session, entity.FlowImage)

	case "video":
		b.await(ctx, session, entity.FlowVideo)

	case "reset":
		b.detection.Reset(ctx, session.ID, chatID, entity.FlowImage)
		b.detection.Reset(ctx, session.ID, chatID, entity.FlowVideo)
		b.setState(ctx, session, entity.StateMainMenu)
		b.sendMessage(chatID, msgReset)

	case "status":
		image := b.detection.View(session.ID, entity.FlowImage)
		video := b.detection.View(session.ID, entity.FlowVideo)
		b.sendMessage(chatID, statusText(image, video, b.detection.Healthy(ctx)))

	case "stats":
		b.sendMessage(chatID, statsText(b.dashboard))

	case "live":
		b.sendMessage(chatID, fmt.Sprintf(msgLiveFeed, b.detection.LiveFeedURL()))

	case "stop":
		if err := b.detection.StopLiveFeed(ctx); err != nil {
			b.sendMessage(chatID, msgLiveStopFailed)
			return
		}
		b.sendMessage(chatID, msgLiveStopped)

	case "cancel":
		b.setState(ctx, session, entity.StateMainMenu)
		b.sendMessage(chatID, msgCancelled)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

func (b *Bot) await(ctx context.Context, session *entity.Session, flow entity.Flow) {
	if _, err := b.sessions.Await(ctx, session.ID, session.ChatID, flow); err != nil {
		b.log.WithError(err).Error("Error saving session")
	}
	b.sendMessage(session.ChatID, awaitingText(flow, b.detection.Rules(flow)))
}

func (b *Bot) setState(ctx context.Context, session *entity.Session, state entity.SessionState) {
	if _, err := b.sessions.SetState(ctx, session.ID, session.ChatID, state); err != nil {
		b.log.WithError(err).Error("Error saving session")
	}
}

// handleFile скачивает файл, отдаёт его валидатору и ждёт итог в фоне.
// Размер, который сообщил Telegram, проверяется до скачивания.
func (b *Bot) handleFile(ctx context.Context, session *entity.Session, flow entity.Flow, fileID, name, mimeType string, size int64) {
	chatID := session.ChatID

	meta := entity.SelectedFile{Name: name, MIMEType: mimeType, Size: size}
	if rejections := b.detection.Precheck(flow, meta); len(rejections) > 0 {
		b.sendMessage(chatID, rejectionText(rejections))
		return
	}

	data, err := b.downloadFile(ctx, fileID)
	if err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("Error downloading file")
		b.sendMessage(chatID, msgDownloadError)
		return
	}
	if size == 0 {
		size = int64(len(data))
	}

	file := entity.SelectedFile{Name: name, MIMEType: mimeType, Size: size, Data: data}
	results, err := b.detection.Start(ctx, session.ID, chatID, flow, []entity.SelectedFile{file})

	var rejected *app.RejectionError
	switch {
	case errors.As(err, &rejected):
		b.sendMessage(chatID, rejectionText(rejected.Rejections))
		return
	case errors.Is(err, app.ErrBusy):
		b.sendMessage(chatID, msgBusy)
		return
	case err != nil:
		b.log.WithError(err).WithField("chat_id", chatID).Error("Error starting detection")
		b.sendMessage(chatID, fmt.Sprintf(msgFailed, err.Error()))
		return
	}

	b.sendMessage(chatID, msgProcessing)

	go b.deliver(session.ID, chatID, flow, results)
}

// deliver отправляет итог детекции, когда он придёт.
func (b *Bot) deliver(sessionID string, chatID int64, flow entity.Flow, results <-chan entity.WorkflowState) {
	state, ok := <-results
	if !ok {
		b.sendMessage(chatID, msgDiscarded)
		return
	}

	if state.Phase == entity.PhaseError {
		b.sendMessage(chatID, fmt.Sprintf(msgFailed, state.Error))
		return
	}

	view := b.detection.View(sessionID, flow)
	if flow == entity.FlowVideo {
		b.sendMessage(chatID, videoText(view))
		return
	}

	b.sendAnnotated(sessionID, chatID, imageCaption(view))
}

func (b *Bot) sendAnnotated(sessionID string, chatID int64, caption string) {
	data, err := b.detection.AnnotatedImage(sessionID)
	if err == nil {
		data, err = vision.Fit(data, maxPhotoSide)
	}
	if err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Warn("Annotated image unavailable")
		b.sendMessage(chatID, caption)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "result.jpg", Bytes: data})
	photo.Caption = caption
	if _, err := b.api.Send(photo); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Error("Error sending photo")
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).WithField("chat_id", chatID).Error("Error sending message")
	}
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
