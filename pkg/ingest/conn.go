package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// wsLink abstracts the raw socket so the command plumbing is testable
// without a live WebSocket.
type wsLink interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// socketLink adapts a coder/websocket connection to wsLink. All traffic on
// the browser channel is text-framed JSON.
type socketLink struct {
	ws *websocket.Conn
}

func (l socketLink) Read(ctx context.Context) ([]byte, error) {
	_, data, err := l.ws.Read(ctx)
	return data, err
}

func (l socketLink) Write(ctx context.Context, data []byte) error {
	return l.ws.Write(ctx, websocket.MessageText, data)
}

func (l socketLink) Close(code websocket.StatusCode, reason string) error {
	return l.ws.Close(code, reason)
}

type rpcResult struct {
	value json.RawMessage
	err   error
}

// browserConn is one attached browser script. Command calls are correlated
// by ID: call registers a pending slot, writes the command, and blocks until
// the matching result message arrives on the read loop.
type browserConn struct {
	id           string
	link         wsLink
	ctx          context.Context
	cancel       context.CancelFunc
	writeTimeout time.Duration

	pendingMu sync.Mutex
	pending   map[string]chan rpcResult
}

func newBrowserConn(parent context.Context, link wsLink, writeTimeout time.Duration) *browserConn {
	ctx, cancel := context.WithCancel(parent)
	return &browserConn{
		id:           uuid.New().String(),
		link:         link,
		ctx:          ctx,
		cancel:       cancel,
		writeTimeout: writeTimeout,
		pending:      make(map[string]chan rpcResult),
	}
}

// call executes one method against the browser script and waits for its
// result. It fails when the caller's context expires or the connection
// closes while waiting.
func (c *browserConn) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := uuid.New().String()
	ch := make(chan rpcResult, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	data, err := json.Marshal(browserCommand{Type: msgCall, ID: id, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s command: %w", method, err)
	}
	if err := c.write(ctx, data); err != nil {
		return nil, fmt.Errorf("failed to send %s command: %w", method, err)
	}

	select {
	case r := <-ch:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, ErrNoBrowser
	}
}

// resolve delivers a result message to its waiting caller. Unknown IDs are
// dropped: the caller may have timed out and unregistered already.
func (c *browserConn) resolve(id string, value json.RawMessage, errMsg string) {
	c.pendingMu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
	if !ok {
		return
	}
	if errMsg != "" {
		ch <- rpcResult{err: fmt.Errorf("browser call failed: %s", errMsg)}
		return
	}
	ch <- rpcResult{value: value}
}

// write sends raw bytes with the per-connection write timeout.
func (c *browserConn) write(ctx context.Context, data []byte) error {
	wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return c.link.Write(wctx, data)
}

// writeJSON marshals and sends a message, logging nothing on its own; the
// caller decides whether a failure matters.
func (c *browserConn) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(ctx, data)
}

// close tears the connection down and fails every in-flight call.
func (c *browserConn) close(code websocket.StatusCode, reason string) {
	c.cancel()
	_ = c.link.Close(code, reason)
}
