// internal/ledger/keyed_mutex.go
package ledger

import (
	"sort"
	"sync"
)

// keyedMutex serializes writers per (item, location) key. Writes to different
// keys proceed in parallel.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	return lock
}

// Lock acquires the lock for one key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	lock := k.get(key)
	lock.Lock()
	return lock.Unlock
}

// LockPair acquires two keys in sorted order so that concurrent transfers
// touching the same pair cannot deadlock.
func (k *keyedMutex) LockPair(a, b string) func() {
	if a == b {
		return k.Lock(a)
	}
	keys := []string{a, b}
	sort.Strings(keys)
	first := k.get(keys[0])
	second := k.get(keys[1])
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}
