package stream

import "context"

// Source is a queue-like non-blocking fragment source. A session treats the
// source as exclusively owned until its drain procedure has run.
type Source interface {
	// TryTake performs a non-blocking read. ok is false when the source is
	// currently empty. A nil payload with ok=true is the hard termination
	// sentinel.
	TryTake() (payload []byte, ok bool)

	// Drain discards everything currently buffered and reports the count.
	// Calling Drain on an empty source is a no-op.
	Drain() int
}

// LivenessProbe reports whether the generation surface is still visibly
// producing output. Implementations must return within about a second and
// degrade to false on any probe-surface failure.
type LivenessProbe interface {
	IsGenerating(ctx context.Context) bool
}

// TextProbe extracts rendered answer text directly from the generation
// surface. Used only by the thinking-only recovery procedure; an empty
// string means nothing is available yet.
type TextProbe interface {
	BodyText(ctx context.Context) (string, error)
}

// SurfaceReloader requests a reload of the generation surface. Invoked only
// on the time-to-first-byte abort path; failures are logged and swallowed.
type SurfaceReloader interface {
	Reload(ctx context.Context) error
}

// DisconnectCheck reports whether the downstream client has gone away.
// Invoked once per poll iteration with a short stage description for
// logging; a non-nil error (normally wrapping models.ErrClientDisconnected)
// aborts the session immediately.
type DisconnectCheck func(stage string) error
