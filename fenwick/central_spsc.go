package fenwick

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/utkarsh5026/fenwick-lab/internal/algorithms"
	"github.com/utkarsh5026/fenwick-lab/internal/cpu"
	"github.com/utkarsh5026/fenwick-lab/internal/queue"
)

// CentralSchedulerSPSC is C10: identical contract to CentralScheduler, but
// each worker's inbox is a single-producer/single-consumer ring instead of
// an MPMC queue. The driver is the sole producer for every queue (it is
// the only goroutine ever calling Push), and each worker is the sole
// consumer of its own queue — exactly the shape queue.SPSC requires.
type CentralSchedulerSPSC struct {
	n      int
	w      int
	queues []*queue.SPSC[task]
	wg     sync.WaitGroup

	counter atomic.Uint64
	syncCtr atomic.Int32

	currentResults atomic.Pointer[resultsHolder]
	pinCores       bool
	batchLimiter   *rate.Limiter
}

// NewCentralSchedulerSPSC builds an SPSC-ring scheduler with W workers.
func NewCentralSchedulerSPSC(n int, opts ...Option) (*CentralSchedulerSPSC, error) {
	if n <= 0 {
		return nil, badConfig("n must be > 0")
	}
	cfg := applyOptions(opts)

	s := &CentralSchedulerSPSC{
		n:            n,
		w:            cfg.workers,
		queues:       make([]*queue.SPSC[task], cfg.workers),
		pinCores:     cfg.pinCores,
		batchLimiter: cfg.batchLimiter,
	}

	for w := 0; w < cfg.workers; w++ {
		s.queues[w] = queue.NewSPSC[task](cfg.taskBuffer)
		tree, err := NewFenwickSequential(n)
		if err != nil {
			return nil, err
		}
		s.wg.Add(1)
		go s.runWorker(w, tree)
	}

	return s, nil
}

func (s *CentralSchedulerSPSC) runWorker(w int, tree *FenwickSequential) {
	defer s.wg.Done()

	if s.pinCores {
		defer cpu.SetupWorkerAffinity(w)()
	}

	q := s.queues[w]
	backoff := algorithms.NewBackoff(algorithms.BackoffExponential, 50*time.Microsecond, 2*time.Millisecond, 0)
	misses := 0

	for {
		t, ok := q.TryPop()
		if !ok {
			time.Sleep(backoff.NextDelay(misses))
			misses++
			continue
		}
		misses = 0
		backoff.Reset()

		switch t.kind {
		case taskUpdate:
			tree.Add(t.index, t.value)
		case taskQuery:
			if holder := s.currentResults.Load(); holder != nil {
				holder.values[t.pos].Add(tree.Sum(t.index))
			}
		case taskSync:
			s.syncCtr.Add(1)
		case taskFinish:
			return
		}
	}
}

// Execute has the same contract as CentralScheduler.Execute, including the
// optional batch rate limit.
func (s *CentralSchedulerSPSC) Execute(batch []Op) ([]int32, error) {
	if s.batchLimiter != nil {
		if err := s.batchLimiter.Wait(context.Background()); err != nil {
			return nil, err
		}
	}

	holder := &resultsHolder{values: make([]atomic.Int32, len(batch))}
	s.currentResults.Store(holder)

	for pos, op := range batch {
		switch op.Kind {
		case Update:
			w := int(s.counter.Add(1)-1) % s.w
			_ = s.queues[w].Push(nil, task{kind: taskUpdate, index: op.Index, value: op.Value})
		case Query:
			for w := 0; w < s.w; w++ {
				_ = s.queues[w].Push(nil, task{kind: taskQuery, index: op.Index, pos: pos})
			}
		}
	}

	s.sync()

	out := make([]int32, len(batch))
	for i := range out {
		out[i] = holder.values[i].Load()
	}
	return out, nil
}

func (s *CentralSchedulerSPSC) sync() {
	for w := 0; w < s.w; w++ {
		_ = s.queues[w].Push(nil, task{kind: taskSync})
	}
	for s.syncCtr.Load() != int32(s.w) {
		runtime.Gosched()
	}
	s.syncCtr.Store(0)
}

// Shutdown broadcasts Finish and waits for every worker to exit.
func (s *CentralSchedulerSPSC) Shutdown() {
	for w := 0; w < s.w; w++ {
		_ = s.queues[w].Push(nil, task{kind: taskFinish})
	}
	s.wg.Wait()
	for w := range s.queues {
		s.queues[w].Close()
	}
}
