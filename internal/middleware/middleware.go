package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type Middleware interface {
	NewRateLimiter(ctx *fiber.Ctx) error
	NewRequestIDMiddleware() fiber.Handler
	NewSessionMiddleware() fiber.Handler
	NewLoggingMiddleware() fiber.Handler
	GetRequestID(ctx *fiber.Ctx) string
	GetSessionID(ctx *fiber.Ctx) string
}

type middleware struct {
	rateLimiter *rateLimiter
	requestID   fiber.Handler
	session     fiber.Handler
	logging     fiber.Handler
	log         *logrus.Logger
}

// New собирает middleware; reqRate запросов в секунду на IP с запасом burst.
func New(logger *logrus.Logger, reqRate float64, burst int) Middleware {
	return &middleware{
		rateLimiter: newRateLimiter(rate.Limit(reqRate), burst),
		requestID:   newRequestIDMiddleware(),
		session:     newSessionMiddleware(),
		logging:     newLoggingMiddleware(logger),
		log:         logger,
	}
}

func (m *middleware) GetRequestID(ctx *fiber.Ctx) string {
	requestID, ok := ctx.Locals(RequestIDKey).(string)
	if !ok || requestID == "" {
		return "unknown"
	}
	return requestID
}

func (m *middleware) GetSessionID(ctx *fiber.Ctx) string {
	sessionID, _ := ctx.Locals(SessionIDKey).(string)
	return sessionID
}

func (m *middleware) NewRequestIDMiddleware() fiber.Handler {
	return m.requestID
}

func (m *middleware) NewSessionMiddleware() fiber.Handler {
	return m.session
}

func (m *middleware) NewLoggingMiddleware() fiber.Handler {
	return m.logging
}
