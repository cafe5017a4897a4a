package fenwick

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// FenwickLazyAtomic is a Fenwick tree of atomic cells: Add is lock-free
// (fetch_add on every visited cell), Sum is a plain atomic-load traversal.
// It's only ever driven by LazyBatchDriver, which guarantees no Sum is
// concurrent with any Add — the lock-free Add is there so that many
// updates in the same flush window can run concurrently with each other,
// not so a Sum can race a write.
type FenwickLazyAtomic struct {
	n    int
	tree []atomic.Int32
}

// NewFenwickLazyAtomic builds an atomic-cell tree over [0, n).
func NewFenwickLazyAtomic(n int) (*FenwickLazyAtomic, error) {
	if n <= 0 {
		return nil, badConfig("n must be > 0")
	}
	return &FenwickLazyAtomic{n: n, tree: make([]atomic.Int32, n+1)}, nil
}

// Add performs a lock-free fetch-add on every cell the update walk visits.
func (t *FenwickLazyAtomic) Add(i int, v int32) {
	assertIndex(i, t.n)
	for k := i + 1; k <= t.n; k += lowbit(k) {
		t.tree[k].Add(v)
	}
}

// Sum performs a plain atomic-load traversal.
func (t *FenwickLazyAtomic) Sum(i int) int32 {
	assertIndex(i, t.n)
	var s int32
	for k := i + 1; k > 0; k -= lowbit(k) {
		s += t.tree[k].Load()
	}
	return s
}

// LazyBatchDriver consumes a mixed batch by buffering consecutive updates
// into a window and, whenever a query is encountered, parallel-flushing
// that window before serving the query sequentially — so every query sees
// exactly the updates that precede it in the batch and none that follow,
// matching sequential order.
type LazyBatchDriver struct {
	tree    *FenwickLazyAtomic
	workers int
}

// NewLazyBatchDriver builds a driver over a fresh FenwickLazyAtomic tree.
func NewLazyBatchDriver(n int, opts ...Option) (*LazyBatchDriver, error) {
	cfg := applyOptions(opts)
	tree, err := NewFenwickLazyAtomic(n)
	if err != nil {
		return nil, err
	}
	return &LazyBatchDriver{tree: tree, workers: cfg.workers}, nil
}

// Execute implements Executor.
func (d *LazyBatchDriver) Execute(batch []Op) ([]int32, error) {
	results := make([]int32, len(batch))
	left := 0

	for right := 0; right < len(batch); right++ {
		if batch[right].Kind != Query {
			continue
		}
		d.flush(batch[left:right])
		results[right] = d.tree.Sum(batch[right].Index)
		left = right + 1
	}

	d.flush(batch[left:])
	return results, nil
}

// flush parallel-applies a window of updates. The flush contains no reads,
// so there is nothing for the concurrent fetch_adds across workers to race
// against besides each other, which FenwickLazyAtomic.Add already handles.
func (d *LazyBatchDriver) flush(window []Op) {
	if len(window) == 0 {
		return
	}
	workers := min(d.workers, len(window))
	if workers <= 1 {
		for _, op := range window {
			d.tree.Add(op.Index, op.Value)
		}
		return
	}

	var g errgroup.Group
	chunk := (len(window) + workers - 1) / workers
	for start := 0; start < len(window); start += chunk {
		end := min(start+chunk, len(window))
		slice := window[start:end]
		g.Go(func() error {
			for _, op := range slice {
				d.tree.Add(op.Index, op.Value)
			}
			return nil
		})
	}
	_ = g.Wait()
}
