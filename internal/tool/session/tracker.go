package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Tracker holds the single current session. Starting a new session replaces
// the previous one; there is no error for that.
type Tracker struct {
	mu      sync.RWMutex
	current *Record
	now     func() time.Time
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Start begins a new session and returns a copy of it.
func (t *Tracker) Start(description, branch string) *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current = &Record{
		ID:           uuid.NewString(),
		Description:  description,
		StartTime:    t.now(),
		Branch:       branch,
		CommitHashes: []string{},
		Active:       true,
	}
	return t.current.clone()
}

// RecordCommit appends hash to the active session. It reports whether a
// session was active.
func (t *Tracker) RecordCommit(hash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil || !t.current.Active {
		return false
	}
	t.current.CommitHashes = append(t.current.CommitHashes, hash)
	return true
}

// End marks the current session inactive and returns it, or nil if there
// was no active session.
func (t *Tracker) End() *Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil || !t.current.Active {
		return nil
	}
	end := t.now()
	t.current.Active = false
	t.current.EndTime = &end
	return t.current.clone()
}

// Current returns a copy of the latest session, active or ended, or nil.
func (t *Tracker) Current() *Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.current == nil {
		return nil
	}
	return t.current.clone()
}

// ActiveID returns the id of the active session, or "".
func (t *Tracker) ActiveID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.current == nil || !t.current.Active {
		return ""
	}
	return t.current.ID
}
