package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/chatrelay/chatrelay/pkg/ingest"
	"github.com/chatrelay/chatrelay/pkg/models"
	"github.com/chatrelay/chatrelay/pkg/session"
	"github.com/chatrelay/chatrelay/pkg/stream"
)

// defaultModel is reported back when the client does not name one; the
// generation surface decides what actually runs.
const defaultModel = "chatrelay"

// completionsHandler handles POST /v1/chat/completions.
// One completion is generated at a time: the request is admitted through the
// session manager, the prompt is submitted to the attached browser, and the
// stream engine reconciles the fragment queue into the response.
func (s *Server) completionsHandler(c *echo.Context) error {
	var req models.ChatCompletionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "messages is required")
	}

	model := req.Model
	if model == "" {
		model = defaultModel
	}

	reqCtx := c.Request().Context()
	ctx, cancel := context.WithCancel(reqCtx)
	defer cancel()

	sess, err := s.sessions.Begin(model, cancel)
	if err != nil {
		return mapSessionError(err)
	}
	defer s.sessions.End(sess)

	if !s.hub.Attached() {
		return mapSessionError(ingest.ErrNoBrowser)
	}

	log := slog.With("req_id", sess.ID)
	log.Info("Completion request admitted",
		"model", model, "stream", req.Stream, "messages", len(req.Messages))

	if err := s.hub.Generate(ctx, req.Prompt()); err != nil {
		log.Error("Failed to submit prompt to the generation surface", "error", err)
		if errors.Is(err, ingest.ErrNoBrowser) {
			return mapSessionError(err)
		}
		return echo.NewHTTPError(http.StatusBadGateway, "failed to submit prompt to the generation surface")
	}

	engine := stream.NewEngine(sess.ID, s.hub.Queue(), s.cfg.Stream, stream.Options{
		Flags:     s.sessions.Flags(),
		Liveness:  s.hub,
		TextProbe: s.hub,
		Reloader:  s.hub,
		StartTime: sess.StartedAt,
		CheckDisconnected: func(stage string) error {
			select {
			case <-reqCtx.Done():
				return fmt.Errorf("%s: %w", stage, models.ErrClientDisconnected)
			default:
				return nil
			}
		},
	})

	events, errs := engine.Run(ctx)
	if req.Stream {
		return s.streamCompletion(c, log, sess, model, events, errs)
	}
	return s.aggregateCompletion(c, log, sess, model, events, errs)
}

// streamCompletion delivers the session as SSE chunks. The response status
// is committed before the first event, so late failures are reported as an
// in-stream error frame rather than an HTTP error.
func (s *Server) streamCompletion(c *echo.Context, log *slog.Logger, sess *session.Session, model string, events <-chan stream.Event, errs <-chan error) error {
	w := newSSEWriter(c.Response())
	enc := newChunkEncoder(sess.ID, model)

	for ev := range events {
		chunk := enc.next(ev)
		if chunk == nil {
			continue
		}
		if err := w.send(chunk); err != nil {
			log.Info("Client write failed mid-stream, abandoning session", "error", err)
			// Keep consuming so the engine observes the disconnect and
			// shuts down cleanly.
			for range events {
			}
			<-errs
			return nil
		}
	}

	if err := <-errs; err != nil {
		if errors.Is(err, models.ErrClientDisconnected) {
			log.Info("Client disconnected before completion finished")
			return nil
		}
		log.Error("Session aborted mid-stream", "error", err)
		he := mapSessionError(err)
		_ = w.send(map[string]any{
			"error": map[string]any{"message": he.Message, "type": "relay_error"},
		})
	}
	return w.done()
}

// aggregateCompletion consumes the whole session and responds with a single
// completion object.
func (s *Server) aggregateCompletion(c *echo.Context, log *slog.Logger, sess *session.Session, model string, events <-chan stream.Event, errs <-chan error) error {
	enc := newChunkEncoder(sess.ID, model)
	var reason, content strings.Builder
	for ev := range events {
		chunk := enc.next(ev)
		if chunk == nil {
			continue
		}
		reason.WriteString(chunk.Choices[0].Delta.ReasoningContent)
		content.WriteString(chunk.Choices[0].Delta.Content)
	}

	if err := <-errs; err != nil {
		if errors.Is(err, models.ErrClientDisconnected) {
			log.Info("Client disconnected before completion finished")
			return nil
		}
		return mapSessionError(err)
	}

	return c.JSON(http.StatusOK, &models.ChatCompletion{
		ID:      "chatcmpl-" + sess.ID,
		Object:  "chat.completion",
		Created: sess.StartedAt.Unix(),
		Model:   model,
		Choices: []models.CompletionChoice{{
			Index: 0,
			Message: models.AssistantMessage{
				Role:             models.RoleAssistant,
				Content:          content.String(),
				ReasoningContent: reason.String(),
			},
			FinishReason: "stop",
		}},
	})
}
