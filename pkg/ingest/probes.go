package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chatrelay/chatrelay/pkg/stream"
)

// The hub is the stream engine's window into the generation surface.
var (
	_ stream.LivenessProbe   = (*Hub)(nil)
	_ stream.TextProbe       = (*Hub)(nil)
	_ stream.SurfaceReloader = (*Hub)(nil)
)

// Generate asks the browser script to submit a prompt to the generation
// surface. Fragments start arriving on the queue once the surface begins
// rendering output.
func (h *Hub) Generate(ctx context.Context, prompt string) error {
	_, err := h.call(ctx, "generate", map[string]string{"prompt": prompt})
	if err != nil {
		return fmt.Errorf("generate command failed: %w", err)
	}
	return nil
}

// IsGenerating reports whether the surface is visibly producing output.
// Degrades to false on any failure; the caller treats it as diagnostic.
func (h *Hub) IsGenerating(ctx context.Context) bool {
	raw, err := h.call(ctx, "is_generating", nil)
	if err != nil {
		return false
	}
	var generating bool
	if err := json.Unmarshal(raw, &generating); err != nil {
		return false
	}
	return generating
}

// BodyText extracts the rendered answer text from the surface.
func (h *Hub) BodyText(ctx context.Context) (string, error) {
	raw, err := h.call(ctx, "body_text", nil)
	if err != nil {
		return "", err
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("body_text returned a non-string value: %w", err)
	}
	return text, nil
}

// Reload asks the browser script to reload the generation surface. The
// socket usually drops shortly after; the script reconnects on its own.
func (h *Hub) Reload(ctx context.Context) error {
	if _, err := h.call(ctx, "reload", nil); err != nil {
		return fmt.Errorf("reload command failed: %w", err)
	}
	return nil
}
