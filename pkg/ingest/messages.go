package ingest

import "encoding/json"

// Message types sent by the browser script.
const (
	// msgFragment carries one partial-generation record.
	msgFragment = "fragment"
	// msgTerminate signals a hard end of the current generation.
	msgTerminate = "terminate"
	// msgResult answers an earlier command call.
	msgResult = "result"
)

// msgCall is the only server-to-browser message type.
const msgCall = "call"

// browserMessage is the inbound wire shape. Fields are populated depending
// on Type: fragments carry TS and Data, results carry ID plus Value or Error.
type browserMessage struct {
	Type  string          `json:"type"`
	TS    float64         `json:"ts,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	ID    string          `json:"id,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	Error string          `json:"error,omitempty"`
}

// browserCommand is the outbound call envelope. The browser script executes
// Method against the generation surface and replies with a result message
// carrying the same ID.
type browserCommand struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// fragmentEnvelope is the timestamped payload shape handed to the stream
// queue. The timestamp lets a later session reject residue produced before
// it started.
type fragmentEnvelope struct {
	TS   float64         `json:"ts"`
	Data json.RawMessage `json:"data"`
}
