package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBarrier_OpensOnce(t *testing.T) {
	b := newInitBarrier()
	if b.opened() {
		t.Fatal("new barrier must start closed")
	}

	b.open()
	if !b.opened() {
		t.Fatal("barrier should be open after open()")
	}

	// Opening again is a no-op, not a panic.
	b.open()
	if !b.opened() {
		t.Fatal("barrier must stay open")
	}
}

func TestBarrier_WaitReturnsImmediatelyWhenOpen(t *testing.T) {
	b := newInitBarrier()
	b.open()

	start := time.Now()
	if !b.wait(context.Background(), time.Hour) {
		t.Error("wait on an open barrier should succeed")
	}
	if time.Since(start) > time.Second {
		t.Error("wait on an open barrier should not block")
	}
}

func TestBarrier_WaitTimesOut(t *testing.T) {
	b := newInitBarrier()
	if b.wait(context.Background(), 20*time.Millisecond) {
		t.Error("wait on a closed barrier should time out")
	}
}

func TestBarrier_WaitHonorsContext(t *testing.T) {
	b := newInitBarrier()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if b.wait(ctx, time.Hour) {
		t.Error("wait should report failure when the context is done")
	}
}

func TestBarrier_ConcurrentWaiters(t *testing.T) {
	b := newInitBarrier()

	var wg sync.WaitGroup
	results := make([]bool, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = b.wait(context.Background(), 5*time.Second)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	b.open()
	wg.Wait()

	for i, ok := range results {
		if !ok {
			t.Errorf("waiter %d should have been released", i)
		}
	}
}
