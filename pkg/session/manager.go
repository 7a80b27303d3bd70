// Package session tracks in-flight generation requests and owns the shared
// control flags read by every stream engine.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatrelay/chatrelay/pkg/stream"
)

// ErrBusy is returned when a generation is already in progress. The hub
// drives a single generation surface, so concurrent sessions would
// interleave on the same fragment queue.
var ErrBusy = errors.New("another generation is already in progress")

// ErrShuttingDown is returned once shutdown has been requested.
var ErrShuttingDown = errors.New("server is shutting down")

// Session is one admitted generation request.
type Session struct {
	ID        string
	Model     string
	StartedAt time.Time

	cancel context.CancelFunc
}

// Manager is the single-slot admission gate for generation sessions.
type Manager struct {
	flags *stream.ControlFlags

	mu     sync.Mutex
	active *Session
}

// NewManager creates a manager with fresh control flags.
func NewManager() *Manager {
	return &Manager{flags: &stream.ControlFlags{}}
}

// Flags returns the shared control flags. The manager owns the shutdown
// write; the quota flag is written by whoever detects the quota condition.
func (m *Manager) Flags() *stream.ControlFlags {
	return m.flags
}

// Begin admits a new session. cancel is retained so the session can be
// aborted externally; it may be nil.
func (m *Manager) Begin(model string, cancel context.CancelFunc) (*Session, error) {
	if m.flags.ShuttingDown() {
		return nil, ErrShuttingDown
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return nil, ErrBusy
	}

	s := &Session{
		ID:        uuid.New().String(),
		Model:     model,
		StartedAt: time.Now(),
		cancel:    cancel,
	}
	m.active = s
	return s, nil
}

// End releases the admission slot. Ending a session that is no longer
// active is a no-op.
func (m *Manager) End(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == s {
		m.active = nil
	}
}

// ActiveID returns the id of the in-flight session, if any.
func (m *Manager) ActiveID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return "", false
	}
	return m.active.ID, true
}

// Shutdown sets the shared shutdown flag. Running sessions observe it on
// their next poll and end with a global_shutdown terminal event.
func (m *Manager) Shutdown() {
	m.flags.SetShuttingDown()
}

// CancelActive force-cancels the in-flight session, if any. Used as the
// hard stop after the graceful shutdown grace period.
func (m *Manager) CancelActive() {
	m.mu.Lock()
	s := m.active
	m.mu.Unlock()
	if s != nil && s.cancel != nil {
		s.cancel()
	}
}
