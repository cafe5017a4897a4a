package queue

import (
	"context"
	"testing"
)

func TestSPSC_PushTryPopPreservesOrder(t *testing.T) {
	q := NewSPSC[int](8)
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

func TestSPSC_PopBlocksUntilPushed(t *testing.T) {
	q := NewSPSC[int](4)
	done := make(chan int, 1)
	go func() {
		v, err := q.Pop(context.Background())
		if err != nil {
			t.Errorf("Pop: %v", err)
			return
		}
		done <- v
	}()

	if err := q.Push(nil, 7); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if got := <-done; got != 7 {
		t.Fatalf("Pop() = %d, want 7", got)
	}
}

func TestSPSC_ProducerConsumerPipelineDeliversAllInOrder(t *testing.T) {
	const n = 2000
	q := NewSPSC[int](64)

	go func() {
		for i := 0; i < n; i++ {
			if err := q.Push(nil, i); err != nil {
				return
			}
		}
		q.Close()
	}()

	for i := 0; i < n; i++ {
		v, err := q.Pop(context.Background())
		if err != nil {
			t.Fatalf("Pop #%d: %v", i, err)
		}
		if v != i {
			t.Fatalf("Pop #%d = %d, want %d", i, v, i)
		}
	}

	if _, err := q.Pop(context.Background()); err != ErrClosed {
		t.Fatalf("Pop on drained closed queue = %v, want ErrClosed", err)
	}
}

func TestSPSC_CloseUnblocksWaitingConsumer(t *testing.T) {
	q := NewSPSC[int](4)
	done := make(chan error, 1)
	go func() {
		_, err := q.Pop(context.Background())
		done <- err
	}()
	q.Close()
	if err := <-done; err != ErrClosed {
		t.Fatalf("Pop after Close on empty queue = %v, want ErrClosed", err)
	}
}
