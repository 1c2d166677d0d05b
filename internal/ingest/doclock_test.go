package ingest

import (
	"sync"
	"testing"
)

func TestDocLocks_SerializesSameDocument(t *testing.T) {
	locks := newDocLocks()

	const workers = 8
	const iterations = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				unlock := locks.Lock(42)
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	if counter != workers*iterations {
		t.Fatalf("counter = %d, want %d", counter, workers*iterations)
	}
}

func TestDocLocks_DifferentDocumentsDoNotBlock(t *testing.T) {
	locks := newDocLocks()

	unlockA := locks.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock(2)
		unlockB()
		close(done)
	}()
	<-done
}

func TestDocLocks_EntriesAreReleased(t *testing.T) {
	locks := newDocLocks()

	unlock := locks.Lock(7)
	unlock()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.locks) != 0 {
		t.Fatalf("expected lock table to be empty, have %d entries", len(locks.locks))
	}
}
