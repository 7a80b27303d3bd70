package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerSingleSlot(t *testing.T) {
	m := NewManager()

	s, err := m.Begin("gemini-pro", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)

	_, err = m.Begin("gemini-pro", nil)
	assert.ErrorIs(t, err, ErrBusy)

	id, ok := m.ActiveID()
	require.True(t, ok)
	assert.Equal(t, s.ID, id)

	m.End(s)
	_, ok = m.ActiveID()
	assert.False(t, ok)

	s2, err := m.Begin("gemini-pro", nil)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID, s2.ID)
}

func TestManagerEndStaleSessionIsNoOp(t *testing.T) {
	m := NewManager()

	s1, err := m.Begin("m", nil)
	require.NoError(t, err)
	m.End(s1)

	s2, err := m.Begin("m", nil)
	require.NoError(t, err)

	m.End(s1) // already ended; must not release s2's slot
	id, ok := m.ActiveID()
	require.True(t, ok)
	assert.Equal(t, s2.ID, id)
}

func TestManagerShutdownRejectsNewSessions(t *testing.T) {
	m := NewManager()
	m.Shutdown()

	_, err := m.Begin("m", nil)
	assert.ErrorIs(t, err, ErrShuttingDown)
	assert.True(t, m.Flags().ShuttingDown())
}

func TestManagerCancelActive(t *testing.T) {
	m := NewManager()

	cancelled := false
	s, err := m.Begin("m", func() { cancelled = true })
	require.NoError(t, err)

	m.CancelActive()
	assert.True(t, cancelled)

	m.End(s)
	m.CancelActive() // nothing active; must not panic
}
