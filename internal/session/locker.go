package session

import "sync"

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out one mutex per user key. Entries are released when the
// last holder unlocks, so idle users cost nothing.
type Locker struct {
	mu    sync.Mutex
	locks map[int64]*keyLock
}

// NewLocker creates a Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[int64]*keyLock)}
}

// Lock blocks until the key is free and returns the matching unlock func.
func (l *Locker) Lock(key int64) (unlock func()) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	kl.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			kl.mu.Unlock()
			l.mu.Lock()
			kl.refs--
			if kl.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}

// Held returns the number of keys currently locked or waited on.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
