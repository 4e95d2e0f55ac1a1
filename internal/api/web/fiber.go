package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"damage-detect/pkg/response"
)

const (
	// bodyLimitFactor во сколько раз тело запроса может превышать лимит валидатора
	bodyLimitFactor = 4
	// bodyOverhead запас на multipart-обёртку
	bodyOverhead = 1 << 20
)

// BodyLimit лимит тела запроса для набора правил. Он заметно больше любого
// MaxBytes, чтобы слишком большой файл дошёл до валидатора и получил
// отказ file-too-large, а не обрыв на уровне fasthttp.
func BodyLimit(maxBytes ...int64) int {
	var largest int64
	for _, b := range maxBytes {
		largest = max(largest, b)
	}
	return int(largest*bodyLimitFactor) + bodyOverhead
}

// NewFiber создаёт fiber-приложение; bodyLimit считается через BodyLimit.
func NewFiber(logger *logrus.Logger, bodyLimit int) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:               "Damage Detect",
			BodyLimit:             bodyLimit,
			CaseSensitive:         true,
			DisableStartupMessage: true,
			JSONEncoder:           jsoniter.Marshal,
			JSONDecoder:           jsoniter.Unmarshal,
			ErrorHandler:          errorHandler(logger),
		})

	return app
}

func errorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var respErr *response.Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &respErr):
			code = respErr.Code
			message = respErr.Error()
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
		default:
			logger.WithError(err).WithField("path", c.Path()).Error("unhandled error")
		}

		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}
