package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SessionIDKey заголовок, которым клиент удерживает свою сессию
const SessionIDKey = "X-Session-ID"

// newSessionMiddleware выдаёт новую сессию, если клиент не прислал свою или прислал мусор.
func newSessionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Get(SessionIDKey)

		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = uuid.NewString()
		}

		c.Locals(SessionIDKey, sessionID)
		c.Set(SessionIDKey, sessionID)

		return c.Next()
	}
}
