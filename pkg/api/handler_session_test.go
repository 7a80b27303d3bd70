package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelSessionHandler_NoActiveSession(t *testing.T) {
	s := testServer()

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/active", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	err := s.cancelSessionHandler(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Code)
}

func TestCancelSessionHandler_CancelsActive(t *testing.T) {
	s := testServer()
	cancelled := false
	sess, err := s.sessions.Begin("m", func() { cancelled = true })
	require.NoError(t, err)
	defer s.sessions.End(sess)

	req := httptest.NewRequest(http.MethodDelete, "/v1/sessions/active", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	require.NoError(t, s.cancelSessionHandler(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, cancelled)

	var resp CancelResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, sess.ID, resp.ID)
	assert.Equal(t, "cancelling", resp.Status)
}
