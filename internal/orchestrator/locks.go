package orchestrator

import "sync"

// scopeLocks is the in-process advisory lock set keyed on ats_type+company.
// TryLock never blocks: a pass that cannot take the lock is skipped, not
// queued.
type scopeLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{held: make(map[string]bool)}
}

func (l *scopeLocks) TryLock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false
	}
	l.held[key] = true
	return true
}

func (l *scopeLocks) Unlock(key string) {
	l.mu.Lock()
	delete(l.held, key)
	l.mu.Unlock()
}
