package stream

// Fragment is one normalized unit of partial output from the generation
// surface. The producer may send either cumulative snapshots or incremental
// deltas in Reason/Body without declaring which; the reconciler accepts both.
type Fragment struct {
	Reason string `json:"reason"`
	Body   string `json:"body"`
	Done   bool   `json:"done"`
}

// Cause tags the terminal Event of a session.
type Cause string

// Terminal causes. Exactly one terminal event is emitted per session and it
// carries one of these.
const (
	// CauseCompleted marks normal upstream completion (done signal or
	// termination sentinel).
	CauseCompleted Cause = "completed"

	// CauseSilence marks a stream that went quiet after delivering data.
	// This is a success-shaped termination: many producers omit an explicit
	// done signal when generation finishes.
	CauseSilence Cause = "silence_detected"

	// CauseTTFBTimeout marks a session that never received a single fragment.
	CauseTTFBTimeout Cause = "ttfb_timeout"

	// CauseInternalTimeout marks the hard empty-poll ceiling.
	CauseInternalTimeout Cause = "internal_timeout"

	// CauseGlobalShutdown marks a session ended by the shared shutdown flag.
	CauseGlobalShutdown Cause = "global_shutdown"
)

// Event is the authoritative-to-date cumulative view of the session emitted
// to the consumer. It is never a delta: Body length is monotonically
// non-decreasing for the whole session, Reason length is non-decreasing
// while the session is still in thinking mode and frozen once the answer
// boundary is found.
type Event struct {
	Reason string
	Body   string
	Done   bool

	// Cause is set only on the terminal event.
	Cause Cause

	// Opaque marks the degraded compatibility path: Body holds producer text
	// that could not be decoded and bypassed reconciliation entirely.
	Opaque bool
}
