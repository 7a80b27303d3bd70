package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chatrelay/chatrelay/pkg/models"
	"github.com/chatrelay/chatrelay/pkg/stream"
)

// sseWriter writes server-sent events with an immediate flush per frame.
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (s *sseWriter) done() error {
	if _, err := io.WriteString(s.w, "data: [DONE]\n\n"); err != nil {
		return err
	}
	return s.rc.Flush()
}

// chunkEncoder turns the engine's cumulative events into OpenAI-style
// incremental chunks. The engine guarantees both fields only ever grow, so
// the undelivered suffix of each field is always a valid delta. The one
// exception is a late boundary split, where reasoning already delivered may
// be reclassified as answer content; the encoder never retracts, so those
// characters repeat inside the first answer delta.
type chunkEncoder struct {
	id      string
	model   string
	created int64

	sentRole   bool
	sentReason int
	sentBody   int
}

func newChunkEncoder(sessionID, model string) *chunkEncoder {
	return &chunkEncoder{
		id:      "chatcmpl-" + sessionID,
		model:   model,
		created: time.Now().Unix(),
	}
}

// next returns the chunk for one event, or nil when the event adds nothing
// visible and does not finish the stream.
func (e *chunkEncoder) next(ev stream.Event) *models.ChatCompletionChunk {
	var delta models.ChunkDelta

	if ev.Opaque {
		// Undecodable producer text bypasses reconciliation; deliver as-is.
		delta.Content = ev.Body
	} else {
		if len(ev.Reason) > e.sentReason {
			delta.ReasoningContent = ev.Reason[e.sentReason:]
			e.sentReason = len(ev.Reason)
		}
		if len(ev.Body) > e.sentBody {
			delta.Content = ev.Body[e.sentBody:]
			e.sentBody = len(ev.Body)
		}
	}

	if delta == (models.ChunkDelta{}) && !ev.Done {
		return nil
	}
	if !e.sentRole {
		delta.Role = models.RoleAssistant
		e.sentRole = true
	}

	var finish *string
	if ev.Done {
		fr := "stop"
		finish = &fr
	}
	return &models.ChatCompletionChunk{
		ID:      e.id,
		Object:  "chat.completion.chunk",
		Created: e.created,
		Model:   e.model,
		Choices: []models.ChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}},
	}
}
