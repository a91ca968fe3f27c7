package storage

import "sync"

// keyLocks is the in-process stand-in for advisory locks used by the
// single-node backends.
type keyLocks struct {
	mu   sync.Mutex
	held map[int64]bool
}

func (l *keyLocks) try(key int64) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[int64]bool)
	}
	if l.held[key] {
		return nil, false
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true
}
