package media

import (
	"sort"
	"sync"
)

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

// KeyLock provides mutual exclusion per entity id without serialising
// unrelated entities against each other. Multi-key acquisition always locks
// in ascending key order so that two operations touching the same pair of
// entities cannot deadlock.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyLockEntry
}

// NewKeyLock constructs an empty keyed lock map.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyLockEntry)}
}

// Lock acquires the lock for a single key and returns the release function.
func (l *KeyLock) Lock(key string) func() {
	return l.LockKeys(key)
}

// LockKeys acquires the locks for every distinct key, in ascending order, and
// returns a function releasing them all.
func (l *KeyLock) LockKeys(keys ...string) func() {
	distinct := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		distinct = append(distinct, key)
	}
	sort.Strings(distinct)

	entries := make([]*keyLockEntry, 0, len(distinct))
	for _, key := range distinct {
		entries = append(entries, l.acquire(key))
	}
	for _, entry := range entries {
		entry.mu.Lock()
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
		l.mu.Lock()
		for _, key := range distinct {
			entry := l.locks[key]
			entry.refs--
			if entry.refs == 0 {
				delete(l.locks, key)
			}
		}
		l.mu.Unlock()
	}
}

func (l *KeyLock) acquire(key string) *keyLockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.locks[key]
	if !ok {
		entry = &keyLockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	return entry
}
