package handler

import (
	"errors"
	"net/http"

	"github.com/google/logger"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fest-registration/internal/apperr"
)

// statusOf maps the apperr taxonomy onto HTTP status codes. A full event is
// a state conflict; every other ValidationError is a bad request.
func statusOf(err error) int {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		if ve.Reason == apperr.EventFull {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondErr writes err as {"error": ..., "reason": ...}. Internal errors are
// logged and answered with a generic message.
func respondErr(c echo.Context, err error) error {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	body := echo.Map{"error": err.Error()}
	if reason, ok := apperr.ReasonOf(err); ok {
		body["reason"] = reason
	}
	return c.JSON(status, body)
}
