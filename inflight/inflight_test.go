package inflight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestGuard_RejectsSecondAcquire(t *testing.T) {
	g := New()
	release, err := g.Acquire("conv-1")
	if err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	if _, err := g.Acquire("conv-1"); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	if _, err := g.Acquire("conv-2"); err != nil {
		t.Errorf("Other keys should be independent: %v", err)
	}

	release()
	release()
	if g.Busy("conv-1") {
		t.Error("Key still busy after release")
	}
	if _, err := g.Acquire("conv-1"); err != nil {
		t.Errorf("Acquire after release failed: %v", err)
	}
}

func TestGuard_ConcurrentAcquireAdmitsOne(t *testing.T) {
	g := New()
	var admitted int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := g.Acquire("same"); err == nil {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	close(start)
	wg.Wait()
	if admitted != 1 {
		t.Errorf("Expected exactly 1 admitted, got %d", admitted)
	}
}
