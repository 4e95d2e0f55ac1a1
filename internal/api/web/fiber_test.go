package web

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	app "damage-detect/internal/application"
	"damage-detect/internal/infrastructure/vision"
	"damage-detect/pkg/response"
)

func TestErrorHandler(t *testing.T) {
	f := NewFiber(quietLogger(), 1<<20)
	f.Get("/busy", func(c *fiber.Ctx) error { return mapError(app.ErrBusy) })
	f.Get("/plain", func(c *fiber.Ctx) error { return errors.New("secret detail") })

	resp, err := f.Test(httptest.NewRequest(fiber.MethodGet, "/busy", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.JSONEq(t, `{"error":"detection already in progress"}`, string(body))

	resp, err = f.Test(httptest.NewRequest(fiber.MethodGet, "/plain", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body, _ = io.ReadAll(resp.Body)
	require.NotContains(t, string(body), "secret detail")

	resp, err = f.Test(httptest.NewRequest(fiber.MethodGet, "/missing", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestMapError_DecodeFailureKeepsCause(t *testing.T) {
	err := mapError(fmt.Errorf("preview: %w", vision.ErrDecode))

	var coded *response.Error
	require.True(t, errors.As(err, &coded))
	require.Equal(t, fiber.StatusUnprocessableEntity, coded.Code)
	require.ErrorIs(t, err, vision.ErrDecode)

	f := NewFiber(quietLogger(), 1<<20)
	f.Get("/preview", func(c *fiber.Ctx) error { return err })

	resp, err := f.Test(httptest.NewRequest(fiber.MethodGet, "/preview", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.JSONEq(t, `{"error":"preview: failed to decode image"}`, string(body))
}

func TestBodyLimit_LeavesRoomAboveRules(t *testing.T) {
	limit := BodyLimit(10<<20, 2<<20)

	require.Equal(t, 41<<20, limit)
	require.Greater(t, limit, 15<<20)
	require.Equal(t, 1<<20, BodyLimit())
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(WithLogger(quietLogger()))
	require.Error(t, err)

	_, err = NewServer(WithMiddleware(1, 1))
	require.Error(t, err)
}
