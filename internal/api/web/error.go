package web

import (
	"errors"
	"net/http"

	app "damage-detect/internal/application"
	"damage-detect/internal/infrastructure/vision"
	"damage-detect/pkg/response"
)

var (
	ErrNoFile        = response.NewError(http.StatusBadRequest, "no file uploaded")
	ErrBadUpload     = response.NewError(http.StatusBadRequest, "failed to read uploaded file")
	ErrBusy          = response.NewError(http.StatusConflict, "detection already in progress")
	ErrNoResult      = response.NewError(http.StatusNotFound, "no detection result")
	ErrNoRenderer    = response.NewError(http.StatusNotImplemented, "overlay rendering is not available")
	ErrOverlayFailed = response.NewError(http.StatusInternalServerError, "failed to render overlay")
)

// mapError переводит ошибки сервиса в ответы с кодом.
func mapError(err error) error {
	switch {
	case errors.Is(err, app.ErrNoFile):
		return ErrNoFile
	case errors.Is(err, app.ErrBusy):
		return ErrBusy
	case errors.Is(err, app.ErrNoResult):
		return ErrNoResult
	case errors.Is(err, app.ErrNoRenderer):
		return ErrNoRenderer
	case errors.Is(err, vision.ErrDecode):
		return response.Wrap(http.StatusUnprocessableEntity, err)
	}
	return err
}
