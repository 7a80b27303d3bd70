// Package ingest accepts the browser-side WebSocket channel that feeds the
// stream engine. A userscript running inside the generation surface connects
// here, pushes partial-generation fragments as they render, and executes
// commands (submit a prompt, probe liveness, extract rendered text, reload)
// on behalf of the server.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/chatrelay/chatrelay/pkg/stream"
)

// ErrNoBrowser is returned by command calls when no browser is attached or
// the attached browser went away mid-call.
var ErrNoBrowser = errors.New("no browser connection attached")

const defaultWriteTimeout = 10 * time.Second

// Hub owns the single browser channel and the long-lived fragment queue
// behind it. At most one browser is attached at a time; a newer connection
// replaces the current one, which covers the reconnect after a surface
// reload. The queue deliberately outlives individual connections and
// sessions, so consumers must tolerate stale residue.
type Hub struct {
	queue        *stream.Queue
	writeTimeout time.Duration

	mu   sync.RWMutex
	conn *browserConn
}

// NewHub creates a hub with an empty fragment queue.
func NewHub(writeTimeout time.Duration) *Hub {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Hub{
		queue:        stream.NewQueue(),
		writeTimeout: writeTimeout,
	}
}

// Queue returns the shared fragment queue fed by the attached browser.
func (h *Hub) Queue() *stream.Queue {
	return h.queue
}

// Attached reports whether a browser is currently connected.
func (h *Hub) Attached() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn != nil
}

// HandleConnection manages the lifecycle of one browser WebSocket. Called by
// the HTTP handler after upgrade; blocks until the connection closes.
func (h *Hub) HandleConnection(parentCtx context.Context, ws *websocket.Conn) {
	c := newBrowserConn(parentCtx, socketLink{ws: ws}, h.writeTimeout)
	h.attach(c)
	defer h.detach(c)

	if err := c.writeJSON(c.ctx, map[string]string{
		"type":          "attached",
		"connection_id": c.id,
	}); err != nil {
		slog.Warn("Failed to send attach confirmation", "connection_id", c.id, "error", err)
		return
	}

	for {
		data, err := c.link.Read(c.ctx)
		if err != nil {
			slog.Info("Browser connection closed", "connection_id", c.id, "error", err)
			return
		}
		h.handleMessage(c, data)
	}
}

// handleMessage dispatches one inbound browser message.
func (h *Hub) handleMessage(c *browserConn, data []byte) {
	var msg browserMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		slog.Warn("Invalid browser message", "connection_id", c.id, "error", err)
		return
	}

	switch msg.Type {
	case msgFragment:
		h.enqueueFragment(c, &msg)

	case msgTerminate:
		slog.Info("Browser signalled generation termination", "connection_id", c.id)
		h.queue.PutTerminate()

	case msgResult:
		if msg.ID == "" {
			slog.Warn("Result message without an id", "connection_id", c.id)
			return
		}
		c.resolve(msg.ID, msg.Value, msg.Error)

	default:
		slog.Warn("Unknown browser message type", "connection_id", c.id, "type", msg.Type)
	}
}

// enqueueFragment pushes one fragment payload onto the shared queue,
// preserving the producer timestamp when present. A fragment without data is
// dropped: a nil queue payload is reserved for the termination sentinel.
func (h *Hub) enqueueFragment(c *browserConn, msg *browserMessage) {
	if len(msg.Data) == 0 {
		slog.Warn("Fragment message without data, dropping", "connection_id", c.id)
		return
	}
	if msg.TS == 0 {
		h.queue.Put(msg.Data)
		return
	}
	payload, err := json.Marshal(fragmentEnvelope{TS: msg.TS, Data: msg.Data})
	if err != nil {
		slog.Warn("Failed to re-encode fragment envelope, enqueueing bare data",
			"connection_id", c.id, "error", err)
		h.queue.Put(msg.Data)
		return
	}
	h.queue.Put(payload)
}

// call executes a method against the attached browser.
func (h *Hub) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	h.mu.RLock()
	c := h.conn
	h.mu.RUnlock()
	if c == nil {
		return nil, ErrNoBrowser
	}
	return c.call(ctx, method, params)
}

func (h *Hub) attach(c *browserConn) {
	h.mu.Lock()
	old := h.conn
	h.conn = c
	h.mu.Unlock()

	if old != nil {
		slog.Warn("Replacing existing browser connection",
			"old_connection_id", old.id, "new_connection_id", c.id)
		old.close(websocket.StatusPolicyViolation, "replaced by a newer browser connection")
	}
	slog.Info("Browser attached", "connection_id", c.id)
}

func (h *Hub) detach(c *browserConn) {
	h.mu.Lock()
	if h.conn == c {
		h.conn = nil
	}
	h.mu.Unlock()
	c.cancel()
	slog.Info("Browser detached", "connection_id", c.id)
}
