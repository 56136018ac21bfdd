package semaphore

import (
	"testing"
	"time"
)

func TestNewStartsAtZero(t *testing.T) {
	s := New()
	if s.count != 0 {
		t.Fatalf("New() count = %d, want 0", s.count)
	}
}

func TestWaitReturnsImmediatelyAtZero(t *testing.T) {
	s := New()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Wait did not return immediately when count starts at 0")
	}
}

func TestAddIncrementsCount(t *testing.T) {
	s := New()
	s.Add(1)
	if s.count != 1 {
		t.Fatalf("count = %d, want 1 after Add(1)", s.count)
	}
}

func TestDoneDecrementsCount(t *testing.T) {
	s := New()
	s.Add(1)
	s.Done()
	if s.count != 0 {
		t.Fatalf("count = %d, want 0 after Add(1) then Done()", s.count)
	}
}

func TestWaitBlocksUntilDone(t *testing.T) {
	s := New()
	s.Add(1)
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before the outstanding Add was matched by Done")
	case <-time.After(20 * time.Millisecond):
	}

	s.Done()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Wait did not return after Done brought the count back to 0")
	}
}

func TestResetUnblocksWaiters(t *testing.T) {
	s := New()
	s.Add(100)
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Reset")
	case <-time.After(20 * time.Millisecond):
	}

	s.Reset()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Wait did not return after Reset brought the count to 0")
	}
}

// TestBatchedMerges mirrors how webgraph's merge step bounds concurrency:
// Add(1) per launched worker, Wait() once all of them have called Done.
func TestBatchedMerges(t *testing.T) {
	s := New()
	const workers = 20
	results := make(chan int, workers)
	for i := 0; i < workers; i++ {
		s.Add(1)
		go func(n int) {
			results <- n * n
			s.Done()
		}(i)
	}

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after all workers called Done")
	}
	if len(results) != workers {
		t.Fatalf("got %d results, want %d", len(results), workers)
	}
}
