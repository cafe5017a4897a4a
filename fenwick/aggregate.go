package fenwick

import "golang.org/x/sync/errgroup"

// FenwickPipelineAggregate is FenwickPipeline's sibling that trades
// latency-per-op for amortized work: instead of walking the full update
// chain for every operation, each worker deposits into a private local
// buffer L_w at the single entry point into its stripe, then performs one
// linear propagation pass over its own range at the end of the batch.
type FenwickPipelineAggregate struct {
	n      int
	w      int
	tree   []int32
	ranges []Range
	local  [][]int32 // L_w, one full-length buffer per worker
}

// NewFenwickPipelineAggregate builds an aggregate-pipeline tree over [0,n).
func NewFenwickPipelineAggregate(n int, opts ...Option) (*FenwickPipelineAggregate, error) {
	cfg := applyOptions(opts)
	if n <= 0 {
		return nil, badConfig("n must be > 0")
	}
	ranges, err := PartitionRanges(n, cfg.workers)
	if err != nil {
		return nil, err
	}

	bufLen := n + 1
	if cfg.aggregateStripeLen > bufLen {
		bufLen = cfg.aggregateStripeLen
	}

	local := make([][]int32, len(ranges))
	for i := range local {
		local[i] = make([]int32, bufLen)
	}

	return &FenwickPipelineAggregate{
		n:      n,
		w:      len(ranges),
		tree:   make([]int32, n+1),
		ranges: ranges,
		local:  local,
	}, nil
}

// Ranges returns the current partition.
func (a *FenwickPipelineAggregate) Ranges() []Range { return append([]Range(nil), a.ranges...) }

func (a *FenwickPipelineAggregate) sum(i int) int32 {
	var s int32
	for k := i + 1; k > 0; k -= lowbit(k) {
		s += a.tree[k]
	}
	return s
}

// Execute deposits every Update into the owning worker's local buffer,
// propagates each worker's stripe into the shared tree, resets every
// L_w cell to zero, and then serves queries sequentially.
func (a *FenwickPipelineAggregate) Execute(batch []Op) ([]int32, error) {
	updates := make([]Op, 0, len(batch))
	for _, op := range batch {
		if op.Kind == Update {
			updates = append(updates, op)
		}
	}

	if len(updates) > 0 {
		var g errgroup.Group
		for w := 0; w < a.w; w++ {
			w := w
			r := a.ranges[w]
			buf := a.local[w]
			g.Go(func() error {
				for _, op := range updates {
					k := jumpIntoRange(op.Index+1, r.Lo)
					if k < r.Hi {
						buf[k] += op.Value
					}
				}
				a.propagate(w)
				return nil
			})
		}
		_ = g.Wait()
	}

	results := make([]int32, len(batch))
	for pos, op := range batch {
		if op.Kind == Query {
			results[pos] = a.sum(op.Index)
		}
	}
	return results, nil
}

// propagate performs the in-stripe Fenwick propagation: for
// each k in the worker's range, push L_w[k] up to L_w[p] if the parent p is
// still inside the stripe, add the (now-complete) contribution into the
// shared tree, and zero the buffer cell so the next batch starts clean.
func (a *FenwickPipelineAggregate) propagate(w int) {
	r := a.ranges[w]
	buf := a.local[w]
	for k := r.Lo; k < r.Hi; k++ {
		if p := k + lowbit(k); p < r.Hi {
			buf[p] += buf[k]
		}
		a.tree[k] += buf[k]
		buf[k] = 0
	}
}
