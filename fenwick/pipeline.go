package fenwick

import (
	"math/bits"

	"golang.org/x/sync/errgroup"
)

// jumpIntoRange returns the smallest ancestor of k0 (under the update walk
// k += lowbit(k)) that is >= lo: if k0 is already in range
// it is its own answer; otherwise the highest differing bit between k0 and
// lo identifies where the walk must "carry" through, and at most one extra
// lowbit step is needed to land in range. When k0 has no set bit at or
// below that position, its next ancestor k0+lowbit(k0) already exceeds lo.
func jumpIntoRange(k0, lo int) int {
	if k0 >= lo {
		return k0
	}
	diff := k0 ^ lo
	h := bits.Len(uint(diff)) - 1
	mask := 1 << h
	if lowbit(k0) > mask {
		return k0 + lowbit(k0)
	}
	k := (k0 | mask) &^ (mask - 1)
	if k < lo {
		k += lowbit(k)
	}
	return k
}

// FenwickPipeline holds a shared tree over which every worker executes the
// full batch of updates in parallel, each restricted to its own disjoint
// stripe by construction: a worker only ever writes to indices its jump
// function and update walk can reach starting from its own range, so no
// two workers ever touch the same cell and no locking is needed.
//
// Queries are not part of this strategy's parallel path; they are served
// sequentially against the now-consistent shared tree once the batch's
// updates have all landed.
type FenwickPipeline struct {
	n      int
	w      int
	tree   []int32
	ranges []Range
}

// NewFenwickPipeline builds a pipeline tree over [0, n) with w workers,
// partitioned via PartitionRanges.
func NewFenwickPipeline(n int, opts ...Option) (*FenwickPipeline, error) {
	cfg := applyOptions(opts)
	if n <= 0 {
		return nil, badConfig("n must be > 0")
	}
	ranges, err := PartitionRanges(n, cfg.workers)
	if err != nil {
		return nil, err
	}
	return &FenwickPipeline{
		n:      n,
		w:      len(ranges),
		tree:   make([]int32, n+1),
		ranges: ranges,
	}, nil
}

// Ranges returns the current partition, exposed so C5 can reuse it as its
// starting point and so tests can check partition disjointness.
func (p *FenwickPipeline) Ranges() []Range { return append([]Range(nil), p.ranges...) }

func (p *FenwickPipeline) applyInRange(r Range, i int, v int32) {
	k := jumpIntoRange(i+1, r.Lo)
	for k < r.Hi {
		p.tree[k] += v
		k += lowbit(k)
	}
}

func (p *FenwickPipeline) sum(i int) int32 {
	var s int32
	for k := i + 1; k > 0; k -= lowbit(k) {
		s += p.tree[k]
	}
	return s
}

// Execute applies every Update in the batch in parallel across all workers
// and then serves every Query sequentially against the resulting tree.
func (p *FenwickPipeline) Execute(batch []Op) ([]int32, error) {
	updates := make([]Op, 0, len(batch))
	for _, op := range batch {
		if op.Kind == Update {
			updates = append(updates, op)
		}
	}

	if len(updates) > 0 {
		var g errgroup.Group
		for w := 0; w < p.w; w++ {
			r := p.ranges[w]
			g.Go(func() error {
				for _, op := range updates {
					p.applyInRange(r, op.Index, op.Value)
				}
				return nil
			})
		}
		_ = g.Wait() // workers here never return an error
	}

	results := make([]int32, len(batch))
	for pos, op := range batch {
		if op.Kind == Query {
			results[pos] = p.sum(op.Index)
		}
	}
	return results, nil
}

// FenwickPipelineSemiStatic is FenwickPipeline plus a per-batch boundary
// rebalance heuristic: after each batch, one boundary shifts by ±step,
// chosen round-robin among the interior boundaries.
type FenwickPipelineSemiStatic struct {
	*FenwickPipeline
	step       int
	batchCount int
}

// NewFenwickPipelineSemiStatic builds a semi-static pipeline tree.
func NewFenwickPipelineSemiStatic(n int, opts ...Option) (*FenwickPipelineSemiStatic, error) {
	cfg := applyOptions(opts)
	base, err := NewFenwickPipeline(n, opts...)
	if err != nil {
		return nil, err
	}
	return &FenwickPipelineSemiStatic{FenwickPipeline: base, step: cfg.rebalanceStep}, nil
}

// Execute runs the same parallel update / sequential query pass as
// FenwickPipeline, then perturbs exactly one boundary.
func (p *FenwickPipelineSemiStatic) Execute(batch []Op) ([]int32, error) {
	results, err := p.FenwickPipeline.Execute(batch)
	if err != nil {
		return results, err
	}
	p.rebalance()
	return results, nil
}

// rebalance shifts one interior boundary by ±step. The worker owning lo=1
// only grows (its hi moves right); the worker owning hi=N+1 only grows
// (its lo moves left); interior boundaries alternate direction by the
// parity of lo+hi. Convergence is not guaranteed — this is a placeholder
// that could be replaced with a measured-time-driven heuristic.
func (p *FenwickPipelineSemiStatic) rebalance() {
	if p.w < 2 {
		return
	}
	p.batchCount++
	boundary := (p.batchCount - 1) % (p.w - 1) // index of the boundary between worker[boundary] and worker[boundary+1]

	left := p.ranges[boundary]
	right := p.ranges[boundary+1]

	direction := 1
	switch {
	case left.Lo == 1 && boundary == 0 && p.w == 2:
		direction = 1 // only boundary: the lo=1 worker grows right
	case boundary == 0:
		direction = 1 // lo=1 worker: only grows (moves this boundary right)
	case boundary == p.w-2:
		direction = -1 // hi=N+1 worker: only grows (moves this boundary left)
	default:
		if (left.Lo+left.Hi)%2 == 0 {
			direction = 1
		} else {
			direction = -1
		}
	}

	shift := direction * p.step
	newBoundary := left.Hi + shift

	// Never let a shift collapse either side to an empty or negative range.
	if newBoundary <= left.Lo {
		newBoundary = left.Lo + 1
	}
	if newBoundary >= right.Hi {
		newBoundary = right.Hi - 1
	}

	p.ranges[boundary] = Range{Lo: left.Lo, Hi: newBoundary}
	p.ranges[boundary+1] = Range{Lo: newBoundary, Hi: right.Hi}
}
