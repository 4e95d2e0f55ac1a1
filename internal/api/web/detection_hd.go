package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	app "damage-detect/internal/application"
	"damage-detect/internal/domain/entity"
	"damage-detect/internal/infrastructure/vision"
	"damage-detect/internal/middleware"
)

const (
	formField        = "file"
	defaultThumbSide = 320
	maxThumbSide     = 1024
)

// DetectionHandler HTTP-представление сценариев детекции.
type DetectionHandler struct {
	ctx        context.Context
	log        *logrus.Logger
	middleware middleware.Middleware
	detection  *app.DetectionService
	dashboard  app.Dashboard
}

// NewDetectionHandler создаёт обработчик. ctx живёт дольше запросов: в нём идут фоновые детекции.
func NewDetectionHandler(
	ctx context.Context,
	log *logrus.Logger,
	middleware middleware.Middleware,
	detection *app.DetectionService,
	dashboard app.Dashboard,
) *DetectionHandler {
	return &DetectionHandler{
		ctx:        ctx,
		log:        log,
		middleware: middleware,
		detection:  detection,
		dashboard:  dashboard,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	for _, flow := range []entity.Flow{entity.FlowImage, entity.FlowVideo} {
		group := srv.Group("/" + string(flow))
		group.Get("/", h.GetView(flow))
		group.Get("/rules", h.GetRules(flow))
		group.Post("/detect", h.middleware.NewRateLimiter, h.Detect(flow))
		group.Post("/reset", h.Reset(flow))
	}

	srv.Get("/image/preview", h.Preview)
	srv.Get("/image/overlay", h.Overlay)

	srv.Get("/dashboard", h.Dashboard)
	srv.Get("/health", h.Health)

	live := srv.Group("/live")
	live.Get("/", h.LiveFeed)
	live.Post("/stop", h.StopLiveFeed)
}

// Detect принимает файл и запускает детекцию в фоне, отвечая представлением loading.
func (h *DetectionHandler) Detect(flow entity.Flow) fiber.Handler {
	return func(c *fiber.Ctx) error {
		candidates, err := readCandidates(c)
		if err != nil {
			return err
		}

		sessionID := h.middleware.GetSessionID(c)
		_, err = h.detection.Start(h.ctx, sessionID, 0, flow, candidates)

		var rejected *app.RejectionError
		if errors.As(err, &rejected) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(RejectionResponse{
				Error:      rejected.Error(),
				Rejections: rejected.Rejections,
			})
		}
		if err != nil {
			return mapError(err)
		}

		return c.Status(fiber.StatusAccepted).JSON(h.detection.View(sessionID, flow))
	}
}

func (h *DetectionHandler) GetView(flow entity.Flow) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(h.detection.View(h.middleware.GetSessionID(c), flow))
	}
}

func (h *DetectionHandler) GetRules(flow entity.Flow) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(newRulesResponse(flow, h.detection.Rules(flow)))
	}
}

func (h *DetectionHandler) Reset(flow entity.Flow) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(h.detection.Reset(c.UserContext(), h.middleware.GetSessionID(c), 0, flow))
	}
}

// Preview уменьшенная копия размеченного изображения в PNG.
func (h *DetectionHandler) Preview(c *fiber.Ctx) error {
	side := c.QueryInt("size", defaultThumbSide)
	if side <= 0 || side > maxThumbSide {
		side = defaultThumbSide
	}

	data, err := h.detection.AnnotatedImage(h.middleware.GetSessionID(c))
	if err != nil {
		return mapError(err)
	}

	thumb, err := vision.Thumbnail(data, side)
	if err != nil {
		return mapError(err)
	}

	c.Type("png")
	return c.Send(thumb)
}

// Overlay рамки предсказаний, нарисованные локально поверх исходного файла.
func (h *DetectionHandler) Overlay(c *fiber.Ctx) error {
	data, err := h.detection.Overlay(h.middleware.GetSessionID(c))
	if err != nil {
		if errors.Is(err, app.ErrNoResult) || errors.Is(err, app.ErrNoRenderer) {
			return mapError(err)
		}
		h.log.WithError(err).WithField("request_id", h.middleware.GetRequestID(c)).Warn("overlay failed")
		return ErrOverlayFailed
	}

	c.Type("jpg")
	return c.Send(data)
}

func (h *DetectionHandler) Dashboard(c *fiber.Ctx) error {
	return c.JSON(h.dashboard)
}

func (h *DetectionHandler) Health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Healthy: h.detection.Healthy(c.UserContext())})
}

func (h *DetectionHandler) LiveFeed(c *fiber.Ctx) error {
	return c.JSON(LiveFeedResponse{URL: h.detection.LiveFeedURL()})
}

// StopLiveFeed останавливает трансляцию; сбой не превращается в ошибку ответа.
func (h *DetectionHandler) StopLiveFeed(c *fiber.Ctx) error {
	resp := StopResponse{Stopped: true}
	if err := h.detection.StopLiveFeed(c.UserContext()); err != nil {
		resp = StopResponse{Stopped: false, Error: err.Error()}
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// readCandidates читает все файлы поля file; выбирает из них валидатор.
func readCandidates(c *fiber.Ctx) ([]entity.SelectedFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, ErrNoFile
	}

	headers := form.File[formField]
	if len(headers) == 0 {
		return nil, ErrNoFile
	}

	candidates := make([]entity.SelectedFile, 0, len(headers))
	for _, fh := range headers {
		file, err := readFile(fh)
		if err != nil {
			return nil, ErrBadUpload
		}
		candidates = append(candidates, file)
	}

	return candidates, nil
}

func readFile(fh *multipart.FileHeader) (entity.SelectedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return entity.SelectedFile{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return entity.SelectedFile{}, fmt.Errorf("read upload: %w", err)
	}

	return entity.SelectedFile{
		Name:     fh.Filename,
		MIMEType: fh.Header.Get(fiber.HeaderContentType),
		Size:     fh.Size,
		Data:     data,
	}, nil
}
