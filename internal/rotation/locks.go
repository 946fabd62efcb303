package rotation

import "sync"

// DateLocks serializes engine runs per date. The engine itself takes no
// locks: two concurrent runs for the same date could both observe the same
// free seat and double-book it, so every caller must hold the date's lock
// around a run.
type DateLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewDateLocks() *DateLocks {
	return &DateLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock for a date and returns the unlock func.
func (l *DateLocks) Lock(date string) func() {
	l.mu.Lock()
	m, ok := l.locks[date]
	if !ok {
		m = &sync.Mutex{}
		l.locks[date] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
