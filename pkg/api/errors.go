package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/chatrelay/chatrelay/pkg/ingest"
	"github.com/chatrelay/chatrelay/pkg/models"
	"github.com/chatrelay/chatrelay/pkg/session"
)

// mapSessionError maps admission and generation errors to HTTP error responses.
func mapSessionError(err error) *echo.HTTPError {
	if errors.Is(err, session.ErrBusy) {
		return echo.NewHTTPError(http.StatusConflict, "a completion is already being generated")
	}
	if errors.Is(err, session.ErrShuttingDown) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "service is shutting down")
	}
	if errors.Is(err, ingest.ErrNoBrowser) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no browser attached to the generation surface")
	}
	if errors.Is(err, models.ErrQuotaExceeded) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "upstream quota exceeded")
	}

	// Unexpected error
	slog.Error("Unexpected completion error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
