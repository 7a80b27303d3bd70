package stream

import (
	"context"
	"strings"
	"time"
)

// recoverThinkingOnly polls the text probe for rendered answer text after a
// session terminated with reasoning but no visible answer. Best effort: the
// probe budget is bounded and a nil return means nothing was recovered. Any
// text already covered by the accumulated answer buffer is deduplicated away
// so the caller never double-delivers.
func (e *Engine) recoverThinkingOnly(ctx context.Context, acc *accumulator) *Event {
	if e.textProbe == nil || e.cfg.RecoveryAttempts <= 0 {
		return nil
	}

	e.log.Info("Stream ended with reasoning only, polling surface for rendered answer text",
		"attempts", e.cfg.RecoveryAttempts, "interval", e.cfg.RecoveryInterval)

	for attempt := 1; attempt <= e.cfg.RecoveryAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(e.cfg.RecoveryInterval):
		}

		text, err := e.textProbe.BodyText(ctx)
		if err != nil {
			e.log.Debug("Recovery text probe failed", "attempt", attempt, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		if acc.body != "" && strings.HasPrefix(text, acc.body) {
			text = text[len(acc.body):]
		}
		if text == "" {
			return nil
		}

		e.log.Info("Recovered rendered answer text", "attempt", attempt, "chars", len(text))
		return &Event{Body: text}
	}

	e.log.Warn("Recovery budget exhausted without rendered answer text")
	return nil
}
