// Package queue provides the lock-free ring buffers that back the
// per-worker task queues of the central schedulers (blocking-queue and
// SPSC variants). Both ring buffers are adapted from the worker-pool
// scheduling substrate: sequence-tagged slots with cache-line padding to
// keep producer and consumer cursors from false-sharing a cache line.
package queue

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
)

var (
	// ErrClosed is returned by Push once the queue has been closed, and by
	// Pop once it has been closed and drained.
	ErrClosed = errors.New("queue: closed")
)

const (
	cacheLinePad    = 128
	maxSpinAttempts = 10
)

// mpmcSlot is a single ring slot. The sequence number, not a head/tail
// pointer pair, tells producers and consumers whether a slot is free,
// filled, or still being drained; this is what lets Push and Pop
// avoid taking a lock against each other.
type mpmcSlot[T any] struct {
	sequence uint64
	value    T
	_        [cacheLinePad - 16]byte
}

// MPMC is a bounded, lock-free multi-producer multi-consumer queue. It
// backs the blocking-queue central scheduler (C9): each worker owns one
// MPMC queue as its private inbox, and the driver pushes update/query/sync
// tasks into it in submission order.
type MPMC[T any] struct {
	ring []mpmcSlot[T]
	mask uint64

	_    [cacheLinePad]byte
	head uint64
	_    [cacheLinePad - 8]byte
	tail uint64
	_    [cacheLinePad - 8]byte

	closed  atomic.Bool
	notifyC chan struct{}
	closeC  chan struct{}
}

// NewMPMC creates a bounded queue whose capacity is rounded up to the next
// power of two so index arithmetic can use a mask instead of modulo.
func NewMPMC[T any](capacity int) *MPMC[T] {
	if capacity <= 0 {
		capacity = 1
	}
	capacity = nextPowerOfTwo(capacity)

	ring := make([]mpmcSlot[T], capacity)
	for i := range ring {
		ring[i].sequence = uint64(i)
	}

	return &MPMC[T]{
		ring:    ring,
		mask:    uint64(capacity - 1),
		notifyC: make(chan struct{}, 1),
		closeC:  make(chan struct{}),
	}
}

// Push enqueues a value, blocking until space is available, the queue is
// closed, or quit fires. quit lets a driver abandon an enqueue during
// shutdown without needing a context on every call site.
func (q *MPMC[T]) Push(quit <-chan struct{}, value T) error {
	if q.closed.Load() {
		return ErrClosed
	}

	spins := 0
	for {
		select {
		case <-quit:
			return ErrClosed
		default:
		}

		tail := atomic.LoadUint64(&q.tail)
		idx := tail & q.mask
		slot := &q.ring[idx]
		seq := atomic.LoadUint64(&slot.sequence)
		diff := int64(seq) - int64(tail)

		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&q.tail, tail, tail+1) {
				slot.value = value
				atomic.StoreUint64(&slot.sequence, tail+1)
				select {
				case q.notifyC <- struct{}{}:
				default:
				}
				return nil
			}
		case diff < 0:
			// Ring full: spin-then-yield until the consumer frees a slot,
			// matching SPSC.Push rather than failing the enqueue.
			if q.closed.Load() {
				return ErrClosed
			}
			spins++
			if spins > maxSpinAttempts {
				runtime.Gosched()
				spins = 0
			}
		default:
			spins++
			if spins > maxSpinAttempts {
				runtime.Gosched()
				spins = 0
			}
		}
	}
}

// Pop dequeues a value, blocking until one is available, the queue closes
// and drains, or ctx is cancelled.
func (q *MPMC[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	spins := 0

	for {
		if q.isDrained() {
			return zero, ErrClosed
		}

		head := atomic.LoadUint64(&q.head)
		idx := head & q.mask
		slot := &q.ring[idx]
		seq := atomic.LoadUint64(&slot.sequence)
		diff := int64(seq) - int64(head+1)

		if diff == 0 {
			if atomic.CompareAndSwapUint64(&q.head, head, head+1) {
				value := slot.value
				slot.value = zero
				atomic.StoreUint64(&slot.sequence, head+q.mask+1)
				return value, nil
			}
			continue
		}

		spins++
		if spins < maxSpinAttempts {
			runtime.Gosched()
			continue
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-q.closeC:
			if q.isDrained() {
				return zero, ErrClosed
			}
		case <-q.notifyC:
		}
		spins = 0
	}
}

// TryPop dequeues without blocking; ok is false if the queue is empty.
func (q *MPMC[T]) TryPop() (value T, ok bool) {
	head := atomic.LoadUint64(&q.head)
	idx := head & q.mask
	slot := &q.ring[idx]
	seq := atomic.LoadUint64(&slot.sequence)

	if int64(seq)-int64(head+1) != 0 {
		return value, false
	}
	if !atomic.CompareAndSwapUint64(&q.head, head, head+1) {
		return value, false
	}

	value = slot.value
	var zero T
	slot.value = zero
	atomic.StoreUint64(&slot.sequence, head+q.mask+1)
	return value, true
}

func (q *MPMC[T]) isDrained() bool {
	if !q.closed.Load() {
		return false
	}
	return atomic.LoadUint64(&q.head) >= atomic.LoadUint64(&q.tail)
}

// Close marks the queue closed. Consumers still drain whatever was
// enqueued before Close; Pop only starts returning ErrClosed once the
// backlog is empty.
func (q *MPMC[T]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.closeC)
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	if n&(n-1) == 0 {
		return n
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
