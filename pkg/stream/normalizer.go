package stream

import (
	"encoding/json"

	"github.com/kaptinlin/jsonrepair"
)

// normalizedKind classifies the outcome of normalizing one raw queue item.
type normalizedKind int

const (
	// rawFragment is a decoded {reason, body, done} record.
	rawFragment normalizedKind = iota
	// rawOpaque is legacy producer text that could not be decoded; it is
	// passed through without reconciliation rather than treated as an error.
	rawOpaque
	// rawStale is a wrapped fragment whose timestamp predates the session.
	rawStale
	// rawTerminate is the hard termination sentinel.
	rawTerminate
)

type normalized struct {
	kind normalizedKind
	frag Fragment
	text string
}

// envelope is the wrapped wire shape: the producer timestamps each fragment
// so a session can reject residue from a previous request on the same
// channel. The bare legacy shape (a fragment with no envelope) must also be
// accepted.
type envelope struct {
	TS   *float64        `json:"ts"`
	Data json.RawMessage `json:"data"`
}

// normalize reduces one raw queue payload to a fragment, an opaque text
// event, a stale discard, or the termination sentinel.
func (e *Engine) normalize(payload []byte) normalized {
	if payload == nil {
		return normalized{kind: rawTerminate}
	}

	var env envelope
	if err := json.Unmarshal(payload, &env); err == nil && env.TS != nil && env.Data != nil {
		if *env.TS < e.startUnix {
			return normalized{kind: rawStale}
		}
		payload = env.Data
	}

	var frag Fragment
	if err := json.Unmarshal(payload, &frag); err == nil {
		return normalized{kind: rawFragment, frag: frag}
	}

	// Double-encoded legacy shape: a JSON string whose contents are the
	// actual record.
	var inner string
	if err := json.Unmarshal(payload, &inner); err == nil {
		if err := json.Unmarshal([]byte(inner), &frag); err == nil {
			return normalized{kind: rawFragment, frag: frag}
		}
		return normalized{kind: rawOpaque, text: inner}
	}

	// Last resort before the opaque path: the producer scrapes its payloads
	// out of a browser, so near-JSON (single quotes, trailing commas) shows
	// up in practice and is usually repairable.
	if fixed, err := jsonrepair.JSONRepair(string(payload)); err == nil {
		if err := json.Unmarshal([]byte(fixed), &frag); err == nil {
			return normalized{kind: rawFragment, frag: frag}
		}
	}

	return normalized{kind: rawOpaque, text: string(payload)}
}
