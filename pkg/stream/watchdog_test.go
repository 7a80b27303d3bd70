package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chatrelay/chatrelay/pkg/config"
)

// fakeClockWatchdog returns a watchdog driven by a settable clock.
func fakeClockWatchdog(cfg *config.StreamConfig) (*watchdog, *time.Time) {
	base := time.Unix(1_700_000_000, 0)
	cur := base
	w := newWatchdog(cfg)
	w.now = func() time.Time { return cur }
	w.start = base
	w.lastPacket = base
	return w, &cur
}

func TestWatchdogTTFB(t *testing.T) {
	cfg := config.DefaultStreamConfig()
	w, clock := fakeClockWatchdog(cfg)

	*clock = clock.Add(cfg.TTFBTimeout - time.Millisecond)
	assert.Equal(t, verdictNone, w.observeEmpty())

	*clock = clock.Add(2 * time.Millisecond)
	assert.Equal(t, verdictTTFB, w.observeEmpty())
}

func TestWatchdogTTFBDisarmedAfterFirstItem(t *testing.T) {
	cfg := config.DefaultStreamConfig()
	w, clock := fakeClockWatchdog(cfg)

	w.observeItem()
	*clock = clock.Add(cfg.TTFBTimeout * 2)
	// Past the TTFB deadline but an item has arrived; silence is not armed
	// yet either, so nothing fires.
	assert.Equal(t, verdictNone, w.observeEmpty())
}

func TestWatchdogSilence(t *testing.T) {
	cfg := config.DefaultStreamConfig()
	w, clock := fakeClockWatchdog(cfg)

	for i := 0; i < cfg.SilenceMinItems; i++ {
		w.observeItem()
	}
	*clock = clock.Add(cfg.SilenceThreshold - time.Millisecond)
	assert.Equal(t, verdictNone, w.observeEmpty())

	*clock = clock.Add(2 * time.Millisecond)
	assert.Equal(t, verdictSilence, w.observeEmpty())
}

func TestWatchdogSilenceNotArmedBelowMinItems(t *testing.T) {
	cfg := config.DefaultStreamConfig()
	w, clock := fakeClockWatchdog(cfg)

	for i := 0; i < cfg.SilenceMinItems-1; i++ {
		w.observeItem()
	}
	*clock = clock.Add(cfg.SilenceThreshold * 3)
	assert.Equal(t, verdictNone, w.observeEmpty())
}

func TestWatchdogCeiling(t *testing.T) {
	cfg := config.DefaultStreamConfig()
	w, _ := fakeClockWatchdog(cfg)

	w.observeItem()
	for i := 0; i < cfg.MaxEmptyPolls-1; i++ {
		assert.Equal(t, verdictNone, w.observeEmpty())
	}
	assert.Equal(t, verdictCeiling, w.observeEmpty())
}

// A quiet finish and the hard ceiling tripping on the same poll must resolve
// as silence so the session ends as a success.
func TestWatchdogSilenceWinsOverCeiling(t *testing.T) {
	cfg := config.DefaultStreamConfig()
	w, clock := fakeClockWatchdog(cfg)

	for i := 0; i < cfg.SilenceMinItems; i++ {
		w.observeItem()
	}
	w.emptyPolls = cfg.MaxEmptyPolls - 1
	*clock = clock.Add(cfg.SilenceThreshold + time.Second)
	assert.Equal(t, verdictSilence, w.observeEmpty())
}

func TestWatchdogItemResetsCounters(t *testing.T) {
	cfg := config.DefaultStreamConfig()
	w, clock := fakeClockWatchdog(cfg)

	for i := 0; i < cfg.SilenceMinItems; i++ {
		w.observeItem()
	}
	w.emptyPolls = cfg.MaxEmptyPolls - 1
	*clock = clock.Add(cfg.SilenceThreshold + time.Second)

	w.observeItem()
	assert.Equal(t, 0, w.emptyPolls)
	assert.Equal(t, verdictNone, w.observeEmpty())
	assert.Less(t, w.silentFor(), cfg.SilenceThreshold)
}
