package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_DegradedWithoutBrowser(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	require.NoError(t, s.healthHandler(c))
	assert.Equal(t, http.StatusOK, rec.Code, "a missing browser degrades, it does not fail the probe")

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusDegraded, resp.Status)
	assert.Equal(t, healthStatusDegraded, resp.Checks["browser"].Status)
	assert.Equal(t, "idle", resp.Checks["session"].Message)
	assert.NotEmpty(t, resp.Version)
}

func TestHealthHandler_ReportsActiveSession(t *testing.T) {
	s := testServer()
	sess, err := s.sessions.Begin("m", nil)
	require.NoError(t, err)
	defer s.sessions.End(sess)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	require.NoError(t, s.healthHandler(c))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Checks["session"].Message, sess.ID)
}
