package stream

import "strings"

// accumulator holds the per-session reconciliation state: the two growing
// text buffers, the one-way thinking/answering mode flag, the frozen split
// index, and the sliding window used by boundary detection. It is owned by a
// single engine run and never shared.
type accumulator struct {
	reason string
	body   string

	// answering flips to true exactly once per session, when the boundary
	// detector finds the start of structured answer content inside the
	// reasoning stream. splitIndex is meaningful only while answering.
	answering  bool
	splitIndex int

	window     string
	windowSize int
}

func newAccumulator(windowSize int) *accumulator {
	return &accumulator{windowSize: windowSize}
}

// mergeField applies the shape-agnostic merge rule to one field: an incoming
// value that extends the accumulated value is a cumulative snapshot and
// replaces it, anything else is a delta and is appended. The returned
// effective delta is the genuinely new suffix, used only for boundary
// scanning. Content is never discarded or truncated.
func mergeField(state, incoming string) (merged, delta string) {
	if incoming == "" {
		return state, ""
	}
	if state != "" && strings.HasPrefix(incoming, state) {
		return incoming, incoming[len(state):]
	}
	return state + incoming, incoming
}

// apply merges one fragment into the accumulated state and returns the
// cumulative view to emit for it. While still in thinking mode the new
// reasoning text is scanned for the answer boundary; once found, everything
// at or after the split is routed into the answer field on this and every
// later event.
func (a *accumulator) apply(frag Fragment) Event {
	var reasonDelta string
	a.reason, reasonDelta = mergeField(a.reason, frag.Reason)
	a.body, _ = mergeField(a.body, frag.Body)

	if !a.answering {
		a.scanBoundary(reasonDelta)
	}

	ev := a.view()
	ev.Done = frag.Done
	return ev
}

// view returns the current cumulative event fields with the split applied.
func (a *accumulator) view() Event {
	if a.answering {
		return Event{
			Reason: a.reason[:a.splitIndex],
			Body:   a.body + a.reason[a.splitIndex:],
		}
	}
	return Event{Reason: a.reason, Body: a.body}
}

// thinkingOnly reports whether the session accumulated reasoning but no
// visible answer content, the trigger for the recovery procedure.
func (a *accumulator) thinkingOnly() bool {
	v := a.view()
	return v.Reason != "" && v.Body == ""
}
