package service

import (
	"sync"
	"testing"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	k := newKeyLock()
	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("u1")
			defer unlock()
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("%d goroutines held the same key", maxSeen)
	}
	if k.size() != 0 {
		t.Fatalf("locks not released: %d", k.size())
	}
}

func TestKeyLockIndependentKeys(t *testing.T) {
	k := newKeyLock()
	unlockA := k.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("b")
		unlockB()
		close(done)
	}()
	<-done
	if k.size() != 1 {
		t.Fatalf("size = %d, want 1", k.size())
	}
	unlockA()
	if k.size() != 0 {
		t.Fatalf("size = %d, want 0", k.size())
	}
}
