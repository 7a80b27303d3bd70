// Package models defines the HTTP API data model and the sentinel errors
// shared between the stream engine and its callers.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message roles accepted on the completions endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one conversation turn in a completion request.
// Content accepts either a plain string or the structured content-part array
// some clients send; both decode to a flat string.
type ChatMessage struct {
	Role    string      `json:"role"`
	Content FlatContent `json:"content"`
}

// FlatContent is a message content field flattened to plain text.
type FlatContent string

// UnmarshalJSON accepts "text" or [{"type":"text","text":"..."}...].
func (f *FlatContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlatContent(s)
		return nil
	}
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or an array of text parts: %w", err)
	}
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "" || p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	*f = FlatContent(b.String())
	return nil
}

// ChatCompletionRequest is the OpenAI-shaped request body for
// POST /v1/chat/completions. Sampling parameters are forwarded to the
// generation surface as-is; unknown fields are ignored.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

// Prompt flattens the conversation into the single text blob the generation
// surface accepts, one role-tagged block per message.
func (r *ChatCompletionRequest) Prompt() string {
	var b strings.Builder
	for i, m := range r.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(string(m.Content))
	}
	return b.String()
}

// ChunkDelta is the incremental payload of one streamed chunk.
// ReasoningContent carries model deliberation text separately from the
// user-facing answer, mirroring the reasoning-capable provider APIs.
type ChunkDelta struct {
	Role             string `json:"role,omitempty"`
	Content          string `json:"content,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// ChunkChoice is one choice entry of a streamed chunk.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChatCompletionChunk is one SSE frame of a streamed completion.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// AssistantMessage is the message body of a non-streamed completion.
type AssistantMessage struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// CompletionChoice is one choice entry of a non-streamed completion.
type CompletionChoice struct {
	Index        int              `json:"index"`
	Message      AssistantMessage `json:"message"`
	FinishReason string           `json:"finish_reason"`
}

// ChatCompletion is the non-streamed response body.
type ChatCompletion struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
}
