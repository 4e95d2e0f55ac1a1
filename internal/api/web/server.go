package web

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	app "damage-detect/internal/application"
	"damage-detect/internal/middleware"
)

type ServerOption func(*Server) error

type Server struct {
	ctx        context.Context
	engine     *fiber.App
	log        *logrus.Logger
	middleware middleware.Middleware
	detection  *app.DetectionService
	dashboard  app.Dashboard
	handlers   []handler
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{ctx: context.Background()}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}
	if server.detection == nil {
		return nil, fmt.Errorf("detection service is required")
	}

	return server, nil
}

// WithContext задаёт контекст фоновых детекций.
func WithContext(ctx context.Context) ServerOption {
	return func(s *Server) error {
		s.ctx = ctx
		return nil
	}
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithMiddleware(reqRate float64, burst int) ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log, reqRate, burst)
		return nil
	}
}

func WithDetectionService(svc *app.DetectionService, dashboard app.Dashboard) ServerOption {
	return func(s *Server) error {
		s.detection = svc
		s.dashboard = dashboard
		return nil
	}
}

// RegisterHandler подключает middleware и маршруты. Вызывается один раз до Run.
func (s *Server) RegisterHandler() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())

	s.setupHealthCheck()

	detection := NewDetectionHandler(s.ctx, s.log, s.middleware, s.detection, s.dashboard)
	s.handlers = append(s.handlers, detection)

	router := s.engine.Group("/api/v1", s.middleware.NewSessionMiddleware())
	for _, h := range s.handlers {
		h.Start(router)
	}
}

// App отдаёт fiber-приложение (для тестов).
func (s *Server) App() *fiber.App {
	return s.engine
}

func (s *Server) Run(port string) error {
	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.engine.ShutdownWithContext(ctx)
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Damage detection service is running",
		})
	})
}
