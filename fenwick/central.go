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

// resultsHolder carries the in-flight batch's results vector. The driver
// publishes a fresh holder before submitting any task for a batch so every
// worker's Query handler can find it without a data race.
type resultsHolder struct {
	values []atomic.Int32
}

// CentralScheduler is the blocking-queue task-dispatch scheduler (C9):
// each worker owns a private FenwickSequential sub-tree and a bounded
// MPMC inbox. Updates round-robin across workers; queries broadcast to
// every worker, whose partial sums are aggregated into the shared results
// vector with atomic adds.
type CentralScheduler struct {
	n      int
	w      int
	queues []*queue.MPMC[task]
	wg     sync.WaitGroup

	counter atomic.Uint64 // driver-side round-robin update counter
	syncCtr atomic.Int32

	currentResults atomic.Pointer[resultsHolder]
	pinCores       bool
	batchLimiter   *rate.Limiter
}

// NewCentralScheduler builds a blocking-queue scheduler with W workers,
// each holding a private FenwickSequential over [0, n).
func NewCentralScheduler(n int, opts ...Option) (*CentralScheduler, error) {
	if n <= 0 {
		return nil, badConfig("n must be > 0")
	}
	cfg := applyOptions(opts)

	s := &CentralScheduler{
		n:            n,
		w:            cfg.workers,
		queues:       make([]*queue.MPMC[task], cfg.workers),
		pinCores:     cfg.pinCores,
		batchLimiter: cfg.batchLimiter,
	}

	for w := 0; w < cfg.workers; w++ {
		s.queues[w] = queue.NewMPMC[task](cfg.taskBuffer)
		tree, err := NewFenwickSequential(n)
		if err != nil {
			return nil, err
		}
		s.wg.Add(1)
		go s.runWorker(w, tree)
	}

	return s, nil
}

// runWorker polls its queue without blocking and sleeps after every empty
// poll, for an exponential backoff delay (50µs doubling up to 2ms) that
// resets once a task arrives: short waits when busy, little wasted CPU once
// idle. This is the
// same shape of tradeoff LazyBatchDriver's flush avoids needing entirely,
// but C9's workers are long-lived across many batches and genuinely idle
// between them.
func (s *CentralScheduler) runWorker(w int, tree *FenwickSequential) {
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

// Execute submits the batch, routing updates round-robin and broadcasting
// queries, then syncs before returning the aggregated results. If a batch
// rate limit was configured, Execute blocks until the limiter admits this
// batch before submitting any task.
func (s *CentralScheduler) Execute(batch []Op) ([]int32, error) {
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

// sync broadcasts a Sync task and spins until every worker has acknowledged
// it, then resets the counter for the next batch. Because the driver
// enqueues sequentially and each per-worker FIFO preserves that order, the
// Sync task reaching a worker implies every update and query routed to it
// beforehand has already been applied.
func (s *CentralScheduler) sync() {
	for w := 0; w < s.w; w++ {
		_ = s.queues[w].Push(nil, task{kind: taskSync})
	}
	for s.syncCtr.Load() != int32(s.w) {
		runtime.Gosched()
	}
	s.syncCtr.Store(0)
}

// Shutdown broadcasts Finish and waits for every worker to exit. The
// driver must sync (Execute always does) before Shutdown.
func (s *CentralScheduler) Shutdown() {
	for w := 0; w < s.w; w++ {
		_ = s.queues[w].Push(nil, task{kind: taskFinish})
	}
	s.wg.Wait()
	for w := range s.queues {
		s.queues[w].Close()
	}
}
