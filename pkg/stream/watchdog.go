package stream

import (
	"time"

	"github.com/chatrelay/chatrelay/pkg/config"
)

// verdict is the outcome of one empty-poll watchdog evaluation.
type verdict int

const (
	verdictNone verdict = iota
	verdictTTFB
	verdictSilence
	verdictCeiling
)

// watchdog layers the three liveness policies over the engine's poll loop:
// time-to-first-byte, inter-packet silence, and the hard empty-poll ceiling.
// All three are evaluated only on empty polls; any accepted item resets the
// ceiling counter and the silence clock.
type watchdog struct {
	cfg *config.StreamConfig
	now func() time.Time

	start      time.Time
	lastPacket time.Time
	items      int
	emptyPolls int
}

func newWatchdog(cfg *config.StreamConfig) *watchdog {
	w := &watchdog{cfg: cfg, now: time.Now}
	w.start = w.now()
	w.lastPacket = w.start
	return w
}

// observeItem records an accepted packet.
func (w *watchdog) observeItem() {
	w.items++
	w.emptyPolls = 0
	w.lastPacket = w.now()
}

// observeEmpty records an empty poll and evaluates the three policies.
// Silence is checked first: a quietly-finished generation must win over the
// hard ceiling so it terminates as a success, not a timeout.
func (w *watchdog) observeEmpty() verdict {
	w.emptyPolls++
	now := w.now()

	if w.items >= w.cfg.SilenceMinItems && now.Sub(w.lastPacket) > w.cfg.SilenceThreshold {
		return verdictSilence
	}
	if w.items == 0 && now.Sub(w.start) > w.cfg.TTFBTimeout {
		return verdictTTFB
	}
	if w.emptyPolls >= w.cfg.MaxEmptyPolls {
		return verdictCeiling
	}
	return verdictNone
}

// silentFor reports the time since the last accepted packet.
func (w *watchdog) silentFor() time.Duration {
	return w.now().Sub(w.lastPacket)
}
