package models

import "errors"

// Sentinel errors surfaced to callers of the stream engine. Everything else
// the engine encounters resolves to a terminal event instead of an error.
var (
	// ErrClientDisconnected indicates the downstream API client went away
	// mid-session. The session is aborted entirely; cleanup still runs.
	ErrClientDisconnected = errors.New("client disconnected")

	// ErrQuotaExceeded indicates the shared quota-exceeded flag was set while
	// a session was waiting on stream data.
	ErrQuotaExceeded = errors.New("quota exceeded")
)
