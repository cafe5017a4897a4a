package fenwick

import (
	"sync"
	"sync/atomic"
)

// DecentralizedDriver is C11: no queues at all. Every worker scans the
// same batch vector; each independently counts updates in iteration order
// so all workers agree on which updates route to which worker (update_count
// mod W) without any coordination. Queries are handled by every worker
// computing its own sub-tree's partial sum and atomically adding it into
// the shared results vector.
//
// Unlike C9/C10, workers here are not long-lived: sync() is a fork/join
// barrier per batch, so there is no idle interval between batches for an
// idle-poll backoff to manage — each Execute call spawns fresh per-worker
// goroutines that run for exactly the batch's duration.
type DecentralizedDriver struct {
	n     int
	w     int
	trees []*FenwickSequential
}

// NewDecentralizedDriver builds a decentralized driver with W private
// sub-trees over [0, n).
func NewDecentralizedDriver(n int, opts ...Option) (*DecentralizedDriver, error) {
	if n <= 0 {
		return nil, badConfig("n must be > 0")
	}
	cfg := applyOptions(opts)

	trees := make([]*FenwickSequential, cfg.workers)
	for i := range trees {
		tree, err := NewFenwickSequential(n)
		if err != nil {
			return nil, err
		}
		trees[i] = tree
	}

	return &DecentralizedDriver{n: n, w: cfg.workers, trees: trees}, nil
}

// Execute forks one goroutine per worker, each scanning the whole batch,
// and joins them before returning the aggregated results.
func (d *DecentralizedDriver) Execute(batch []Op) ([]int32, error) {
	results := make([]atomic.Int32, len(batch))

	var wg sync.WaitGroup
	for w := 0; w < d.w; w++ {
		w := w
		wg.Go(func() {
			d.runWorker(w, batch, results)
		})
	}
	wg.Wait()

	out := make([]int32, len(batch))
	for i := range out {
		out[i] = results[i].Load()
	}
	return out, nil
}

func (d *DecentralizedDriver) runWorker(w int, batch []Op, results []atomic.Int32) {
	tree := d.trees[w]
	updateCount := 0
	for pos, op := range batch {
		switch op.Kind {
		case Update:
			if updateCount%d.w == w {
				tree.Add(op.Index, op.Value)
			}
			updateCount++
		case Query:
			results[pos].Add(tree.Sum(op.Index))
		}
	}
}
