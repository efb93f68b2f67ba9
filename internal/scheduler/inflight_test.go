package scheduler_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Stepanishin/telepublisher-be/internal/scheduler"
)

func TestInFlight_SecondAcquireFails(t *testing.T) {
	f := scheduler.NewInFlight()

	if !f.TryAcquire("X") {
		t.Fatal("first acquire must succeed")
	}
	if f.TryAcquire("X") {
		t.Fatal("second acquire must fail while held")
	}
}

func TestInFlight_ReleaseAllowsReacquire(t *testing.T) {
	f := scheduler.NewInFlight()

	f.TryAcquire("X")
	f.Release("X")

	if !f.TryAcquire("X") {
		t.Fatal("acquire after release must succeed")
	}
}

func TestInFlight_IndependentIDs(t *testing.T) {
	f := scheduler.NewInFlight()

	if !f.TryAcquire("X") || !f.TryAcquire("Y") {
		t.Fatal("distinct ids must not contend")
	}
}

func TestInFlight_ConcurrentAcquireExactlyOneWins(t *testing.T) {
	for i := 0; i < 100; i++ {
		f := scheduler.NewInFlight()

		var wins atomic.Int32
		var wg sync.WaitGroup
		start := make(chan struct{})

		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if f.TryAcquire("X") {
					wins.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		if wins.Load() != 1 {
			t.Fatalf("expected exactly one winner, got %d", wins.Load())
		}
	}
}
