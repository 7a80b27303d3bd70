package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/chatrelay/pkg/config"
	"github.com/chatrelay/chatrelay/pkg/ingest"
	"github.com/chatrelay/chatrelay/pkg/session"
)

func testServer() *Server {
	cfg := &config.Config{
		Server: config.DefaultServerConfig(),
		Stream: &config.StreamConfig{
			PollInterval:       time.Millisecond,
			TTFBTimeout:        100 * time.Millisecond,
			SilenceThreshold:   50 * time.Millisecond,
			SilenceMinItems:    1,
			MaxEmptyPolls:      10000,
			BoundaryWindowSize: 100,
			RecoveryAttempts:   2,
			RecoveryInterval:   time.Millisecond,
		},
	}
	return NewServer(cfg, ingest.NewHub(0), session.NewManager())
}

func postCompletions(s *Server, body string) (*echo.Context, *httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	return c, rec, s.completionsHandler(c)
}

func TestCompletionsHandler_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr int
		errMsg  string
	}{
		{
			name:    "malformed json",
			body:    `{"messages": [`,
			wantErr: http.StatusBadRequest,
		},
		{
			name:    "missing messages",
			body:    `{"model":"m"}`,
			wantErr: http.StatusBadRequest,
			errMsg:  "messages is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testServer()
			_, _, err := postCompletions(s, tt.body)
			require.Error(t, err)
			he, ok := err.(*echo.HTTPError)
			require.True(t, ok, "expected echo.HTTPError")
			assert.Equal(t, tt.wantErr, he.Code)
			if tt.errMsg != "" {
				assert.Contains(t, he.Message, tt.errMsg)
			}
		})
	}
}

func TestCompletionsHandler_NoBrowser(t *testing.T) {
	s := testServer()
	_, _, err := postCompletions(s, `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, he.Code)

	// The admission slot must be released on the error path.
	_, active := s.sessions.ActiveID()
	assert.False(t, active)
}

func TestCompletionsHandler_Busy(t *testing.T) {
	s := testServer()
	held, err := s.sessions.Begin("m", nil)
	require.NoError(t, err)
	defer s.sessions.End(held)

	_, _, err = postCompletions(s, `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Code)
}

func TestCompletionsHandler_ShuttingDown(t *testing.T) {
	s := testServer()
	s.sessions.Shutdown()

	_, _, err := postCompletions(s, `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, he.Code)
}
