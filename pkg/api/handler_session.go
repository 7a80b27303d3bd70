package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// CancelResponse is the DELETE /v1/sessions/active response body.
type CancelResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// cancelSessionHandler handles DELETE /v1/sessions/active.
// Force-cancels the in-flight generation; its completions request observes
// the cancellation as an aborted stream.
func (s *Server) cancelSessionHandler(c *echo.Context) error {
	id, ok := s.sessions.ActiveID()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no active session")
	}
	s.sessions.CancelActive()
	return c.JSON(http.StatusAccepted, &CancelResponse{ID: id, Status: "cancelling"})
}
