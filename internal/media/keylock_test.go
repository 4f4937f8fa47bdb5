package media

import (
	"sync"
	"testing"
	"time"
)

func TestKeyLockMutualExclusion(t *testing.T) {
	locks := NewKeyLock()

	const goroutines = 32
	const iterations = 200

	counter := 0
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				release := locks.Lock("shared")
				counter++
				release()
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*iterations {
		t.Fatalf("expected %d increments, got %d", goroutines*iterations, counter)
	}
}

func TestKeyLockIndependentKeysDoNotBlock(t *testing.T) {
	locks := NewKeyLock()

	releaseA := locks.Lock("a")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		release := locks.Lock("b")
		release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on independent key blocked")
	}
}

func TestKeyLockKeysDeduplicates(t *testing.T) {
	locks := NewKeyLock()

	// Duplicate keys must collapse to one acquisition or this deadlocks.
	release := locks.LockKeys("a", "b", "a", "b")
	release()

	release = locks.Lock("a")
	release()
}

func TestKeyLockKeysOrderIndependent(t *testing.T) {
	locks := NewKeyLock()

	const iterations = 500

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			release := locks.LockKeys("a", "b")
			release()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			release := locks.LockKeys("b", "a")
			release()
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("opposite-order acquisitions deadlocked")
	}
}

func TestKeyLockReleaseIsReusable(t *testing.T) {
	locks := NewKeyLock()

	for i := 0; i < 3; i++ {
		release := locks.LockKeys("x", "y")
		release()
	}
}
