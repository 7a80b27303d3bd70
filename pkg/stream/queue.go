package stream

import "sync"

// Queue is the in-memory fragment source fed by the browser ingest channel.
// It outlives individual sessions: the channel is reused across requests,
// which is why the engine carries a stale-fragment filter and a drain
// procedure. Safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items [][]byte
}

// NewQueue returns an empty fragment queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Put enqueues one raw fragment payload.
func (q *Queue) Put(payload []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, payload)
}

// PutTerminate enqueues the hard termination sentinel.
func (q *Queue) PutTerminate() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, nil)
}

// TryTake performs a non-blocking read. ok is false when the queue is empty;
// a nil payload with ok=true is the termination sentinel.
func (q *Queue) TryTake() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	payload := q.items[0]
	q.items = q.items[1:]
	return payload, true
}

// Drain discards everything currently buffered and reports the count.
func (q *Queue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Len reports the number of buffered items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
