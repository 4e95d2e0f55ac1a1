package detectapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"damage-detect/internal/domain/entity"
	"damage-detect/internal/domain/port"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// RequestTimeout общий таймаут запроса, повторов нет
	RequestTimeout = 30 * time.Second

	pathPredictImage = "/predict"
	pathPredictVideo = "/predict_img"
	pathLiveFeed     = "/video_feed"
	pathStop         = "/stop"
	pathHealth       = "/"

	formField = "file"

	FallbackImageMessage = "Failed to process image"
	FallbackVideoMessage = "Failed to process video"

	maxErrorBody = 64 << 10
)

// Error ошибка обращения к сервису детекции с сообщением для пользователя.
type Error struct {
	Status  int // HTTP-статус, 0 если ответа не было
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// errorBody тело ошибки сервиса: поддерживаем оба варианта поля
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client HTTP-клиент сервиса детекции повреждений
type Client struct {
	baseURL string
	http    *http.Client
	log     *logrus.Logger
}

// Option настройка клиента
type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент (для тестов)
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// NewClient создаёт клиент с фиксированным таймаутом запроса.
func NewClient(baseURL string, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: RequestTimeout},
		log:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL адрес сервиса без завершающего слэша
func (c *Client) BaseURL() string {
	return c.baseURL
}

// DetectImage отправляет изображение на POST /predict.
func (c *Client) DetectImage(ctx context.Context, file *entity.SelectedFile) (*entity.DetectionResult, error) {
	var result entity.DetectionResult
	if err := c.upload(ctx, pathPredictImage, file, FallbackImageMessage, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DetectVideo отправляет видео на POST /predict_img.
func (c *Client) DetectVideo(ctx context.Context, file *entity.SelectedFile) (*entity.UploadResponse, error) {
	var result entity.UploadResponse
	if err := c.upload(ctx, pathPredictVideo, file, FallbackVideoMessage, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckHealth возвращает true на любой 2xx ответ корня сервиса.
func (c *Client) CheckHealth(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathHealth, nil)
	if err != nil {
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).Debug("detector health check failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	return isSuccess(resp.StatusCode)
}

// StopLiveFeed вызывает POST /stop. Ошибку вызывающий только логирует.
func (c *Client) StopLiveFeed(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathStop, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("stop live feed: %w", err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return c.responseError(resp, "Failed to stop live feed")
	}
	return nil
}

// LiveFeedURL адрес MJPEG-трансляции, сам клиент её не читает
func (c *Client) LiveFeedURL() string {
	return c.baseURL + pathLiveFeed
}

// ResolveURL склеивает базовый адрес и относительный путь из ответа сервиса.
func (c *Client) ResolveURL(rel string) string {
	if rel == "" {
		return ""
	}
	if strings.HasPrefix(rel, "http://") || strings.HasPrefix(rel, "https://") {
		return rel
	}
	return c.baseURL + "/" + strings.TrimLeft(rel, "/")
}

// upload выполняет ровно один multipart POST с полем file и разбирает ответ в out.
func (c *Client) upload(ctx context.Context, path string, file *entity.SelectedFile, fallback string, out any) error {
	body, contentType, err := encodeFile(file)
	if err != nil {
		return &Error{Message: fallback, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return &Error{Message: fallback, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"path":  path,
			"file":  file.Name,
			"error": err.Error(),
		}).Warn("detector request failed")
		return &Error{Message: fallback, Err: fmt.Errorf("send request: %w", err)}
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"path":       path,
		"file":       file.Name,
		"size":       file.Size,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(started).Milliseconds(),
	}).Debug("detector responded")

	if !isSuccess(resp.StatusCode) {
		return c.responseError(resp, fallback)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Status: resp.StatusCode, Message: fallback, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}

// responseError достаёт сообщение сервиса: сначала message, затем error.
func (c *Client) responseError(resp *http.Response, fallback string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := fallback
	var payload errorBody
	if err := json.Unmarshal(raw, &payload); err == nil {
		switch {
		case payload.Message != "":
			message = payload.Message
		case payload.Error != "":
			message = payload.Error
		}
	}

	return &Error{
		Status:  resp.StatusCode,
		Message: message,
		Err:     fmt.Errorf("detector returned status %d", resp.StatusCode),
	}
}

func encodeFile(file *entity.SelectedFile) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, formField, escapeQuotes(file.Name)))
	contentType := file.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}

	if _, err := io.Copy(part, bytes.NewReader(file.Data)); err != nil {
		return nil, "", fmt.Errorf("copy file data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// Проверка реализации интерфейса
var _ port.DamageDetector = (*Client)(nil)
