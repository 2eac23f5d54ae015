package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	keys := newKeyedMutex()

	const writers = 50
	counter := 0
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			unlock := keys.Lock("flour|walk-in")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, writers, counter)
}

func TestKeyedMutexLockPairOrdering(t *testing.T) {
	keys := newKeyedMutex()

	// Opposite argument orders acquire the same two locks; without sorted
	// acquisition this interleaving could deadlock.
	const rounds = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			unlock := keys.LockPair("flour|walk-in", "flour|bar")
			unlock()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			unlock := keys.LockPair("flour|bar", "flour|walk-in")
			unlock()
		}
	}()
	wg.Wait()
}

func TestKeyedMutexLockPairSameKey(t *testing.T) {
	keys := newKeyedMutex()

	unlock := keys.LockPair("flour|walk-in", "flour|walk-in")
	unlock()
	unlock = keys.Lock("flour|walk-in")
	unlock()
}
