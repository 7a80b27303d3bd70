package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/chatrelay/pkg/ingest"
	"github.com/chatrelay/chatrelay/pkg/models"
)

// runBrowserScript emulates the userscript side of the ingest socket: it
// attaches, answers command calls, and streams the given fragments after
// each generate call.
func runBrowserScript(t *testing.T, ctx context.Context, wsURL string, fragments []string) {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg struct {
				Type   string `json:"type"`
				ID     string `json:"id"`
				Method string `json:"method"`
			}
			if json.Unmarshal(data, &msg) != nil || msg.Type != "call" {
				continue
			}

			reply := map[string]any{"type": "result", "id": msg.ID}
			switch msg.Method {
			case "is_generating":
				reply["value"] = false
			case "body_text":
				reply["value"] = ""
			}
			out, _ := json.Marshal(reply)
			if conn.Write(ctx, websocket.MessageText, out) != nil {
				return
			}

			if msg.Method == "generate" {
				for _, f := range fragments {
					frame, _ := json.Marshal(map[string]any{
						"type": "fragment",
						"data": json.RawMessage(f),
					})
					if conn.Write(ctx, websocket.MessageText, frame) != nil {
						return
					}
				}
			}
		}
	}()
}

func waitForAttach(t *testing.T, hub *ingest.Hub) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !hub.Attached() {
		if time.Now().After(deadline) {
			t.Fatal("browser never attached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCompletionsEndToEnd(t *testing.T) {
	s := testServer()
	ts := httptest.NewServer(s.echo)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/browser"
	runBrowserScript(t, ctx, wsURL, []string{
		`{"reason":"Let me think.\n"}`,
		`{"reason":"Let me think.\nDone thinking."}`,
		`{"body":"The answer is 42."}`,
		`{"body":"The answer is 42.","done":true}`,
	})
	waitForAttach(t, s.hub)

	t.Run("streaming", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json",
			strings.NewReader(`{"model":"m","stream":true,"messages":[{"role":"user","content":"q"}]}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		var reason, content strings.Builder
		var sawDone, sawFinish, sawRole bool
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				sawDone = true
				break
			}
			var chunk models.ChatCompletionChunk
			require.NoError(t, json.Unmarshal([]byte(payload), &chunk))
			require.Len(t, chunk.Choices, 1)
			if chunk.Choices[0].Delta.Role == models.RoleAssistant {
				sawRole = true
			}
			reason.WriteString(chunk.Choices[0].Delta.ReasoningContent)
			content.WriteString(chunk.Choices[0].Delta.Content)
			if chunk.Choices[0].FinishReason != nil {
				sawFinish = true
			}
		}
		require.NoError(t, scanner.Err())

		assert.True(t, sawDone, "stream must end with [DONE]")
		assert.True(t, sawFinish, "terminal chunk must carry finish_reason")
		assert.True(t, sawRole, "first chunk must carry the assistant role")
		assert.Equal(t, "Let me think.\nDone thinking.", reason.String())
		assert.Equal(t, "The answer is 42.", content.String())
	})

	t.Run("non-streaming", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json",
			strings.NewReader(`{"model":"m","messages":[{"role":"user","content":"q"}]}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var completion models.ChatCompletion
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&completion))
		require.Len(t, completion.Choices, 1)
		assert.Equal(t, "chat.completion", completion.Object)
		assert.Equal(t, models.RoleAssistant, completion.Choices[0].Message.Role)
		assert.Equal(t, "The answer is 42.", completion.Choices[0].Message.Content)
		assert.Equal(t, "Let me think.\nDone thinking.", completion.Choices[0].Message.ReasoningContent)
		assert.Equal(t, "stop", completion.Choices[0].FinishReason)
	})
}
