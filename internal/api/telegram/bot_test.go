package telegram

import (
	"bytes"
	"context"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	app "damage-detect/internal/application"
	"damage-detect/internal/domain/entity"
	"damage-detect/internal/infrastructure/detectapi"
	"damage-detect/internal/infrastructure/storage"
)

const (
	testToken  = "123:TEST"
	testChatID = 5
)

// sent сообщение, которое бот отправил в Telegram
type sent struct {
	Method string
	Text   string
}

// fakeTelegram отвечает на вызовы Bot API и раздаёт файл по file_path
type fakeTelegram struct {
	srv       *httptest.Server
	file      []byte
	downloads int32

	mu   sync.Mutex
	sent []sent
}

func newFakeTelegram(t *testing.T, file []byte) *fakeTelegram {
	t.Helper()
	f := &fakeTelegram{file: file}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTelegram) serve(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/") {
		atomic.AddInt32(&f.downloads, 1)
		_, _ = w.Write(f.file)
		return
	}

	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	switch method {
	case "getMe":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Damage","username":"damage_bot"}}`))
	case "getFile":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"file_id":"f1","file_unique_id":"u1","file_path":"photos/1.jpg"}}`))
	case "sendMessage", "sendPhoto":
		text := r.FormValue("text")
		if method == "sendPhoto" {
			text = r.FormValue("caption")
		}
		f.mu.Lock()
		f.sent = append(f.sent, sent{Method: method, Text: text})
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":5,"type":"private"}}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":false,"error_code":404,"description":"Not Found"}`))
	}
}

func (f *fakeTelegram) messages() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

// waitFor ждёт, пока бот отправит вызов method
func (f *fakeTelegram) waitFor(t *testing.T, method string) sent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, m := range f.messages() {
			if m.Method == method {
				return m
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s was not sent, got %v", method, f.messages())
	return sent{}
}

// hostRewriter направляет скачивание файлов на тестовый сервер
type hostRewriter struct {
	target *url.URL
}

func (h hostRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = h.target.Scheme
	req.URL.Host = h.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(64, 48, color.NRGBA{R: 90, G: 90, B: 90, A: 255}), imaging.PNG))
	return buf.Bytes()
}

func newTestBot(t *testing.T, tg *fakeTelegram, detector http.HandlerFunc) *Bot {
	t.Helper()

	det := httptest.NewServer(detector)
	t.Cleanup(det.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	sessions := app.NewSessionService(storage.NewMemorySessionRepository())
	detection := app.NewDetectionService(
		sessions,
		detectapi.NewClient(det.URL, logger),
		nil,
		nil,
		app.FileRules{Pattern: "image/jpeg,image/png", MaxBytes: 10 << 20},
		app.FileRules{Pattern: "video/mp4", MaxBytes: 10 << 20},
		logger,
	)

	api, err := tgbotapi.NewBotAPIWithClient(testToken, tg.srv.URL+"/bot%s/%s", tg.srv.Client())
	require.NoError(t, err)

	target, err := url.Parse(tg.srv.URL)
	require.NoError(t, err)

	b := newBot(api, sessions, detection, app.NewDashboard(), logger)
	b.http = &http.Client{Transport: hostRewriter{target: target}, Timeout: 5 * time.Second}
	return b
}

func command(text string) *tgbotapi.Message {
	name := strings.Fields(text)[0]
	return &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: testChatID, Type: "private"},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func TestBot_CommandDispatch(t *testing.T) {
	tg := newFakeTelegram(t, nil)
	b := newTestBot(t, tg, func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()

	b.handleMessage(ctx, command("/video"))
	session, err := b.sessions.Get(ctx, sessionID(testChatID), testChatID)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingVideo, session.State)

	b.handleMessage(ctx, command("/status"))
	b.handleMessage(ctx, command("/nope"))
	b.handleMessage(ctx, &tgbotapi.Message{MessageID: 2, Chat: &tgbotapi.Chat{ID: testChatID}, Text: "hello"})

	msgs := tg.messages()
	require.Len(t, msgs, 4)
	require.Equal(t, awaitingText(entity.FlowVideo, b.detection.Rules(entity.FlowVideo)), msgs[0].Text)
	require.Contains(t, msgs[1].Text, "Сервис детекции: 🟢 доступен")
	require.Equal(t, msgUnknownCommand, msgs[2].Text)
	require.Equal(t, msgSendFile, msgs[3].Text)
}

func TestBot_OversizedDocumentRejectedBeforeDownload(t *testing.T) {
	tg := newFakeTelegram(t, []byte("never fetched"))
	var calls int32
	b := newTestBot(t, tg, func(w http.ResponseWriter, r *http.Request) { atomic.AddInt32(&calls, 1) })

	b.handleMessage(context.Background(), &tgbotapi.Message{
		MessageID: 3,
		Chat:      &tgbotapi.Chat{ID: testChatID},
		Document:  &tgbotapi.Document{FileID: "f1", FileName: "clip.avi", MimeType: "video/x-msvideo", FileSize: 15 << 20},
	})

	msgs := tg.messages()
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].Text, "clip.avi")
	require.Contains(t, msgs[0].Text, "file too large")
	require.Contains(t, msgs[0].Text, "file type must be video/mp4")
	require.Zero(t, atomic.LoadInt32(&tg.downloads))
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestBot_PhotoDeliversAnnotatedResult(t *testing.T) {
	tg := newFakeTelegram(t, testPNG(t))
	annotated := testPNG(t)
	b := newTestBot(t, tg, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			return
		}
		_ = jsoniter.NewEncoder(w).Encode(map[string]any{
			"image":       annotated,
			"predictions": []map[string]any{{"class": "dent", "confidence": 0.8, "bbox": []float64{1, 2, 30, 40}}},
			"confidence":  0.8,
		})
	})

	b.handleMessage(context.Background(), &tgbotapi.Message{
		MessageID: 4,
		Chat:      &tgbotapi.Chat{ID: testChatID},
		Photo: []tgbotapi.PhotoSize{
			{FileID: "small", Width: 90, Height: 60, FileSize: 100},
			{FileID: "f1", Width: 640, Height: 480, FileSize: 2048},
		},
	})

	photo := tg.waitFor(t, "sendPhoto")
	require.Contains(t, photo.Text, "Найдено повреждений: 1")
	require.EqualValues(t, 1, atomic.LoadInt32(&tg.downloads))
	require.Equal(t, msgProcessing, tg.messages()[0].Text)

	view := b.detection.View(sessionID(testChatID), entity.FlowImage)
	require.Equal(t, entity.PhaseSuccess, view.Phase)
	require.Equal(t, "photo_4.jpg", view.File.Name)
}

func TestBot_DeliverAfterReset(t *testing.T) {
	tg := newFakeTelegram(t, nil)
	b := newTestBot(t, tg, func(w http.ResponseWriter, r *http.Request) {})

	results := make(chan entity.WorkflowState)
	close(results)
	b.deliver(sessionID(testChatID), testChatID, entity.FlowImage, results)

	msgs := tg.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, msgDiscarded, msgs[0].Text)
}
