package scheduler

import (
	"sync"
	"time"
)

type entry struct {
	timer  *time.Timer
	fireAt time.Time
}

// Registry holds at most one live timer per user. It is owned by the
// composition root and torn down with ClearAll on shutdown.
type Registry struct {
	mu     sync.Mutex
	timers map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{timers: make(map[string]*entry)}
}

// Set arms fn to run after delay, replacing any timer already held for userID.
func (r *Registry) Set(userID string, delay time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.timers[userID]; ok {
		old.timer.Stop()
	}

	e := &entry{fireAt: time.Now().Add(delay)}
	e.timer = time.AfterFunc(delay, func() {
		// A timer that was cancelled, cleared or replaced after it started
		// firing must not run.
		r.mu.Lock()
		current, ok := r.timers[userID]
		if !ok || current != e {
			r.mu.Unlock()
			return
		}
		delete(r.timers, userID)
		r.mu.Unlock()

		fn()
	})
	r.timers[userID] = e
}

// Cancel drops the user's timer and reports whether one was armed.
func (r *Registry) Cancel(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.timers[userID]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(r.timers, userID)
	return true
}

// ClearAll cancels every outstanding timer and returns how many there were.
func (r *Registry) ClearAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.timers)
	for userID, e := range r.timers {
		e.timer.Stop()
		delete(r.timers, userID)
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// FireAt returns when the user's timer is due.
func (r *Registry) FireAt(userID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.timers[userID]
	if !ok {
		return time.Time{}, false
	}
	return e.fireAt, true
}
