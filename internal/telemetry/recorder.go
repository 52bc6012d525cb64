package telemetry

import (
	"sync"
	"time"
)

const defaultCapacity = 500

// Record is one agent turn's accounting: which model answered, how long it
// took, and roughly how much text moved.
type Record struct {
	SessionID  string    `json:"session_id"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Actor      string    `json:"actor,omitempty"`
	PromptLen  int       `json:"prompt_len"`
	OutputLen  int       `json:"output_len"`
	DurationMS int64     `json:"duration_ms"`
	Streamed   bool      `json:"streamed"`
	Mentions   []string  `json:"mentions,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder keeps the most recent turn records in a fixed-size ring.
type Recorder struct {
	mu    sync.Mutex
	ring  []Record
	next  int
	count int
}

func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Recorder{ring: make([]Record, capacity)}
}

func (r *Recorder) Add(rec Record) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	r.mu.Lock()
	r.ring[r.next] = rec
	r.next = (r.next + 1) % len(r.ring)
	if r.count < len(r.ring) {
		r.count++
	}
	r.mu.Unlock()
}

// Recent returns up to limit records, newest first, optionally filtered by
// session.
func (r *Recorder) Recent(limit int, sessionID string) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > r.count {
		limit = r.count
	}
	out := make([]Record, 0, limit)
	for i := 1; i <= r.count && len(out) < limit; i++ {
		idx := (r.next - i + len(r.ring)) % len(r.ring)
		rec := r.ring[idx]
		if sessionID != "" && rec.SessionID != sessionID {
			continue
		}
		out = append(out, rec)
	}
	return out
}
