package services

import (
	"sync"
	"testing"
)

func TestUserLocksSerialisePerUser(t *testing.T) {
	locks := newUserLocks()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("u")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("Expected 100 increments, got %d", counter)
	}
	if len(locks.locks) != 0 {
		t.Errorf("Expected released locks to be dropped, got %d entries", len(locks.locks))
	}
}

func TestUserLocksIndependentUsers(t *testing.T) {
	locks := newUserLocks()
	unlockA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()
	<-done
	unlockA()
}
