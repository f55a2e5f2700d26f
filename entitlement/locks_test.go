package entitlement

import (
	"sync"
	"testing"
)

func TestUserLocks_SerializeAndRelease(t *testing.T) {
	var l userLocks
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.lock("u1")
			counter++
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Errorf("expected 50 increments, got %d", counter)
	}
	if len(l.locks) != 0 {
		t.Errorf("expected idle locks to be dropped, %d left", len(l.locks))
	}
}
