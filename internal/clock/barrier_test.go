package clock

import (
	"testing"
	"time"
)

func TestBarrierPacesWaits(t *testing.T) {
	b := New(200) // 5ms frames
	b.Start()
	defer b.Stop()

	start := time.Now()
	for i := 0; i < 10; i++ {
		b.Wait()
	}
	elapsed := time.Since(start)
	if elapsed < 40*time.Millisecond {
		t.Fatalf("10 frames at 5ms finished too fast: %v", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("10 frames at 5ms took too long: %v", elapsed)
	}
}

func TestBarrierSelfCorrects(t *testing.T) {
	b := New(100) // 10ms frames
	b.Start()
	defer b.Stop()

	b.Wait()
	// Simulate one slow frame; the schedule must re-anchor instead of
	// bursting zero-length waits forever.
	time.Sleep(35 * time.Millisecond)
	start := time.Now()
	b.Wait()
	b.Wait()
	if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
		t.Fatalf("expected pacing to resume after falling behind, got %v for 2 frames", elapsed)
	}
}

func TestBarrierWaitWithoutStartReturns(t *testing.T) {
	b := New(1) // 1s frames; must not actually block
	done := make(chan struct{})
	go func() {
		b.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Wait blocked on a stopped barrier")
	}
}
