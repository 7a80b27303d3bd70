package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/chatrelay/chatrelay/pkg/version"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
)

// HealthCheck is one component entry in the health response.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the GET /health response body.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// healthHandler handles GET /health.
// A missing browser degrades the service rather than failing the probe:
// restarting the relay would not bring the browser back.
func (s *Server) healthHandler(c *echo.Context) error {
	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	if s.hub.Attached() {
		checks["browser"] = HealthCheck{Status: healthStatusHealthy}
	} else {
		status = healthStatusDegraded
		checks["browser"] = HealthCheck{
			Status:  healthStatusDegraded,
			Message: "no browser attached",
		}
	}

	if id, ok := s.sessions.ActiveID(); ok {
		checks["session"] = HealthCheck{Status: healthStatusHealthy, Message: "generating " + id}
	} else {
		checks["session"] = HealthCheck{Status: healthStatusHealthy, Message: "idle"}
	}

	return c.JSON(http.StatusOK, &HealthResponse{
		Status:  status,
		Version: version.GitCommit,
		Checks:  checks,
	})
}
