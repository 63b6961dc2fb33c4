// Package history records navigation URLs the way a browser history stack
// would, so the navigator's push/replace semantics are observable.
package history

import (
	"sync"

	"hexmap/internal/ports"
)

// Recorder is an in-memory history stack.
type Recorder struct {
	mu      sync.Mutex
	entries []string
}

var _ ports.History = (*Recorder)(nil)

// New creates an empty recorder.
func New() *Recorder {
	return &Recorder{}
}

// Push appends a new entry.
func (r *Recorder) Push(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, url)
}

// Replace overwrites the current entry, or starts the stack when empty.
func (r *Recorder) Replace(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		r.entries = []string{url}
		return
	}
	r.entries[len(r.entries)-1] = url
}

// Current returns the top entry, or "" when empty.
func (r *Recorder) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return ""
	}
	return r.entries[len(r.entries)-1]
}

// Len returns the stack depth.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
