// Package stream implements the streaming reconciliation engine at the heart
// of chatrelay: it consumes an unordered, possibly duplicated, possibly stale
// sequence of partial-generation fragments from the browser channel and turns
// it into a well-formed, monotonically growing assistant response, enforcing
// liveness guarantees and recovering from streams that only ever deliver
// thinking content.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chatrelay/chatrelay/pkg/config"
	"github.com/chatrelay/chatrelay/pkg/models"
)

// Options carries the optional external collaborators of an Engine. Any field
// may be nil or zero; the engine degrades rather than fails.
type Options struct {
	// Flags are the shared quota/shutdown signals. Nil disables both checks.
	Flags *ControlFlags

	// Liveness is consulted for diagnostics while waiting and when the hard
	// ceiling trips. The ceiling wins regardless of what it reports.
	Liveness LivenessProbe

	// TextProbe backs the thinking-only recovery procedure.
	TextProbe TextProbe

	// Reloader is the TTFB corrective action.
	Reloader SurfaceReloader

	// CheckDisconnected is invoked once per poll iteration.
	CheckDisconnected DisconnectCheck

	// StartTime is the logical session start used by the stale-fragment
	// filter. Zero means time.Now at construction.
	StartTime time.Time
}

// Engine reconciles one generation session's fragment stream. An Engine is
// single-use: construct one per request and call Run once.
type Engine struct {
	source    Source
	cfg       *config.StreamConfig
	flags     *ControlFlags
	liveness  LivenessProbe
	textProbe TextProbe
	reloader  SurfaceReloader
	checkDisc DisconnectCheck
	startUnix float64
	log       *slog.Logger
}

// NewEngine creates an engine for one session over the given source.
func NewEngine(reqID string, source Source, cfg *config.StreamConfig, opts Options) *Engine {
	start := opts.StartTime
	if start.IsZero() {
		start = time.Now()
	}
	return &Engine{
		source:    source,
		cfg:       cfg,
		flags:     opts.Flags,
		liveness:  opts.Liveness,
		textProbe: opts.TextProbe,
		reloader:  opts.Reloader,
		checkDisc: opts.CheckDisconnected,
		startUnix: float64(start.UnixNano()) / float64(time.Second),
		log:       slog.With("req_id", reqID),
	}
}

// Run executes the reconciliation loop in a goroutine. Events arrive on the
// returned channel in poll order and the channel closes when the session
// ends. The error channel delivers at most one error, and only for
// client-disconnect or quota-exceeded aborts; every other outcome resolves
// to a terminal event with Done=true and a cause tag.
//
// The drain procedure runs on every exit path, including cancellation, so
// residual items cannot leak into a later session on the same channel.
func (e *Engine) Run(ctx context.Context) (<-chan Event, <-chan error) {
	events := make(chan Event, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(errs)
		defer close(events)
		defer e.drain()
		if err := e.run(ctx, events); err != nil {
			errs <- err
		}
	}()

	return events, errs
}

// run is the reconciliation loop proper. The poll backoff sleep is the only
// yield point; everything else in an iteration is effectively atomic with
// respect to other sessions.
func (e *Engine) run(ctx context.Context, out chan<- Event) error {
	acc := newAccumulator(e.cfg.BoundaryWindowSize)
	wd := newWatchdog(e.cfg)

	hasContent := false
	staleDoneIgnored := false

	emit := func(ev Event) error {
		select {
		case out <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		// Shared abort signals bypass watchdog logic entirely.
		if e.flags != nil && e.flags.QuotaExceeded() {
			e.log.Warn("Quota flag set during stream wait, aborting")
			return fmt.Errorf("stream wait aborted: %w", models.ErrQuotaExceeded)
		}
		if e.flags != nil && e.flags.ShuttingDown() {
			e.log.Warn("Shutdown flag set during stream wait, ending session")
			return emit(Event{Done: true, Cause: CauseGlobalShutdown})
		}
		if e.checkDisc != nil {
			if err := e.checkDisc("stream poll"); err != nil {
				e.log.Info("Client disconnected during stream wait")
				return err
			}
		}

		payload, ok := e.source.TryTake()
		if !ok {
			if done, err := e.handleEmptyPoll(ctx, emit, acc, wd); done || err != nil {
				return err
			}
			continue
		}

		if payload == nil {
			// Hard termination sentinel: immediate exit, no recovery pass.
			e.log.Info("Received stream termination sentinel")
			ev := acc.view()
			ev.Done = true
			ev.Cause = CauseCompleted
			return emit(ev)
		}

		wd.observeItem()

		n := e.normalize(payload)
		switch n.kind {
		case rawStale:
			e.log.Warn("Discarding stale stream data from a previous session")
			continue

		case rawOpaque:
			hasContent = true
			staleDoneIgnored = false
			if err := emit(Event{Body: n.text, Opaque: true}); err != nil {
				return err
			}

		case rawFragment:
			ev := acc.apply(n.frag)
			if ev.Reason != "" || ev.Body != "" {
				hasContent = true
			}

			if n.frag.Done {
				if !hasContent && wd.items == 1 && !staleDoneIgnored {
					// Residue from a prior session reusing the channel:
					// ignore the first empty done exactly once.
					e.log.Warn("First received item is an empty done signal, ignoring once and continuing")
					staleDoneIgnored = true
					continue
				}
				e.log.Info("Upstream done signal received",
					"reason_chars", len(ev.Reason), "body_chars", len(ev.Body))
				return e.terminate(ctx, emit, acc, ev, CauseCompleted)
			}

			staleDoneIgnored = false
			if err := emit(ev); err != nil {
				return err
			}
		}
	}
}

// handleEmptyPoll evaluates the watchdog set, emits any terminal outcome,
// logs wait diagnostics, and sleeps the poll backoff. done reports that the
// session ended normally.
func (e *Engine) handleEmptyPoll(ctx context.Context, emit func(Event) error, acc *accumulator, wd *watchdog) (done bool, err error) {
	switch wd.observeEmpty() {
	case verdictSilence:
		e.log.Info("Stream silence threshold reached, treating generation as complete",
			"silent_for", wd.silentFor(), "items", wd.items)
		return true, e.terminate(ctx, emit, acc, Event{}, CauseSilence)

	case verdictTTFB:
		e.log.Error("No stream data before TTFB deadline, aborting",
			"deadline", e.cfg.TTFBTimeout)
		e.requestReload(ctx)
		return true, emit(Event{Done: true, Cause: CauseTTFBTimeout})

	case verdictCeiling:
		// Network state is authoritative over UI-visible state: the probe
		// result is logged but never extends the deadline.
		if e.probeLiveness(ctx) {
			e.log.Warn("Empty-poll ceiling reached while the surface still looks active, forcing completion",
				"empty_polls", wd.emptyPolls)
		} else {
			e.log.Warn("Empty-poll ceiling reached, ending stream",
				"empty_polls", wd.emptyPolls, "items", wd.items)
		}
		return true, e.terminate(ctx, emit, acc, Event{}, CauseInternalTimeout)
	}

	if e.cfg.WaitLogEvery > 0 && wd.emptyPolls%e.cfg.WaitLogEvery == 0 {
		e.log.Debug("Waiting for stream data",
			"empty_polls", wd.emptyPolls, "max", e.cfg.MaxEmptyPolls, "items", wd.items)
	}
	if e.cfg.LivenessLogEvery > 0 && wd.emptyPolls%e.cfg.LivenessLogEvery == 0 {
		e.log.Debug("Surface liveness check", "generating", e.probeLiveness(ctx))
	}

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(e.cfg.PollInterval):
	}
	return false, nil
}

// terminate ends a naturally-completed session: it runs the thinking-only
// recovery pass when eligible, then emits the terminal event.
func (e *Engine) terminate(ctx context.Context, emit func(Event) error, acc *accumulator, ev Event, cause Cause) error {
	if acc.thinkingOnly() {
		if rec := e.recoverThinkingOnly(ctx, acc); rec != nil {
			if err := emit(*rec); err != nil {
				return err
			}
		}
	}
	ev.Done = true
	ev.Cause = cause
	return emit(ev)
}

// probeLiveness consults the UI liveness probe with a bounded timeout.
// Diagnostic only; failures degrade to false.
func (e *Engine) probeLiveness(ctx context.Context) bool {
	if e.liveness == nil {
		return false
	}
	pctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return e.liveness.IsGenerating(pctx)
}

// requestReload fires the TTFB corrective action. Failures are logged and
// swallowed.
func (e *Engine) requestReload(ctx context.Context) {
	if e.reloader == nil {
		return
	}
	if err := e.reloader.Reload(ctx); err != nil {
		e.log.Error("Surface reload request failed", "error", err)
		return
	}
	e.log.Info("Requested surface reload after TTFB timeout")
}

// drain empties residual items off the source so they cannot leak into a
// later session on the same channel. Runs on every exit path; never fails.
func (e *Engine) drain() {
	if e.source == nil {
		return
	}
	if discarded := e.source.Drain(); discarded > 0 {
		e.log.Warn("Drained residual stream items", "count", discarded)
	} else {
		e.log.Debug("Stream source already empty at cleanup")
	}
}
