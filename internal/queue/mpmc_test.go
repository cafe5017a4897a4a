package queue

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMPMC_PushTryPopOrderSingleProducer(t *testing.T) {
	q := NewMPMC[int](8)
	for i := 0; i < 5; i++ {
		if err := q.Push(nil, i); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}
	for i := 0; i < 5; i++ {
		v, ok := q.TryPop()
		if !ok {
			t.Fatalf("TryPop() #%d: ok=false", i)
		}
		if v != i {
			t.Errorf("TryPop() #%d = %d, want %d", i, v, i)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Errorf("TryPop() on empty queue: ok=true")
	}
}

func TestMPMC_CapacityRoundsUpToPowerOfTwo(t *testing.T) {
	q := NewMPMC[int](5)
	if len(q.ring) != 8 {
		t.Fatalf("ring len = %d, want 8", len(q.ring))
	}
}

func TestMPMC_PushBlocksUntilRoomFreedByPop(t *testing.T) {
	q := NewMPMC[int](4)
	for i := 0; i < 4; i++ {
		if err := q.Push(nil, i); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- q.Push(nil, 99)
	}()

	select {
	case err := <-done:
		t.Fatalf("Push on full ring returned early (err=%v), want it to block", err)
	case <-time.After(20 * time.Millisecond):
	}

	if _, err := q.Pop(context.Background()); err != nil {
		t.Fatalf("Pop: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Push after room freed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Push never returned after Pop freed a slot")
	}
}

func TestMPMC_PushUnblocksWithErrClosedWhenQueueClosesWhileFull(t *testing.T) {
	q := NewMPMC[int](4)
	for i := 0; i < 4; i++ {
		if err := q.Push(nil, i); err != nil {
			t.Fatalf("Push(%d): %v", i, err)
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- q.Push(nil, 99)
	}()

	q.Close()

	select {
	case err := <-done:
		if err != ErrClosed {
			t.Fatalf("Push on full+closed ring = %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Push never returned after Close")
	}
}

func TestMPMC_PopBlocksUntilPushed(t *testing.T) {
	q := NewMPMC[int](4)
	done := make(chan int, 1)
	go func() {
		v, err := q.Pop(context.Background())
		if err != nil {
			t.Errorf("Pop: %v", err)
			return
		}
		done <- v
	}()

	if err := q.Push(nil, 42); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if got := <-done; got != 42 {
		t.Fatalf("Pop() = %d, want 42", got)
	}
}

func TestMPMC_CloseDrainsBacklogThenReturnsErrClosed(t *testing.T) {
	q := NewMPMC[int](4)
	for i := 0; i < 3; i++ {
		_ = q.Push(nil, i)
	}
	q.Close()

	for i := 0; i < 3; i++ {
		v, err := q.Pop(context.Background())
		if err != nil {
			t.Fatalf("Pop #%d: %v", i, err)
		}
		if v != i {
			t.Errorf("Pop #%d = %d, want %d", i, v, i)
		}
	}

	if _, err := q.Pop(context.Background()); err != ErrClosed {
		t.Fatalf("Pop on drained closed queue = %v, want ErrClosed", err)
	}
}

func TestMPMC_ConcurrentProducersConsumersDeliverEveryValue(t *testing.T) {
	const producers = 4
	const perProducer = 500
	const total = producers * perProducer

	q := NewMPMC[int](64)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		p := p
		wg.Go(func() {
			for i := 0; i < perProducer; i++ {
				if err := q.Push(nil, p*perProducer+i); err != nil {
					t.Errorf("Push: %v", err)
					return
				}
			}
		})
	}

	seen := make([]bool, total)
	var mu sync.Mutex
	var consumers sync.WaitGroup
	for c := 0; c < 4; c++ {
		consumers.Go(func() {
			for {
				v, err := q.Pop(context.Background())
				if err != nil {
					return
				}
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		})
	}

	wg.Wait()
	q.Close()
	consumers.Wait()

	for i, ok := range seen {
		if !ok {
			t.Errorf("value %d was never delivered", i)
		}
	}
}
