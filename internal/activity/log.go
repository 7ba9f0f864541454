// Package activity keeps the most recent OSC sends for the status display.
package activity

import (
	"sync"
	"time"

	"github.com/edirooss/logickeys/internal/mixer"
)

// Capacity is the number of entries retained.
const Capacity = 500

// Entry is one send attempt.
type Entry struct {
	At     time.Time    `json:"at"`
	Path   string       `json:"path"`
	Value  int32        `json:"value"`
	OK     bool         `json:"ok"`
	Status mixer.Status `json:"status"` // Link status right after the attempt
}

// Log is a thread-safe circular buffer with O(1) append and O(N) read.
type Log struct {
	entries [Capacity]Entry // Fixed-size circular buffer
	head    int             // Next write position
	size    int             // Current number of entries
	mu      sync.RWMutex    // Protects all fields
	now     func() time.Time
}

func New() *Log {
	return &Log{now: time.Now}
}

// Record appends a send outcome stamped with the current time.
func (b *Log) Record(path string, value int32, ok bool, status mixer.Status) {
	b.Append(Entry{At: b.now(), Path: path, Value: value, OK: ok, Status: status})
}

// Append adds an entry, overwriting the oldest when full.
func (b *Log) Append(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.head] = e
	b.head = (b.head + 1) % Capacity
	if b.size < Capacity {
		b.size++
	}
}

// Read returns the last n entries, newest → oldest, in a new non-nil slice.
// n <= 0 or n > Capacity means everything available.
func (b *Log) Read(n int) []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n <= 0 || n > b.size {
		n = b.size
	}

	out := make([]Entry, n)
	newest := (b.head - 1 + Capacity) % Capacity
	for i := 0; i < n; i++ {
		out[i] = b.entries[(newest-i+Capacity)%Capacity]
	}
	return out
}

// Len returns the number of retained entries.
func (b *Log) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}
