package fenwick

// FenwickSequential is the single-threaded reference Fenwick tree. Every
// other strategy in this package is judged against it: a batch executor's
// query results must match a sequential FenwickSequential replaying the
// same batch.
type FenwickSequential struct {
	n    int
	tree []int32
}

// NewFenwickSequential builds a tree over the logical domain [0, n).
func NewFenwickSequential(n int) (*FenwickSequential, error) {
	if n <= 0 {
		return nil, badConfig("n must be > 0")
	}
	return &FenwickSequential{n: n, tree: make([]int32, n+1)}, nil
}

// N returns the logical domain size.
func (f *FenwickSequential) N() int { return f.n }

// Add increments the logical array at i by v.
func (f *FenwickSequential) Add(i int, v int32) {
	assertIndex(i, f.n)
	for k := i + 1; k <= f.n; k += lowbit(k) {
		f.tree[k] += v
	}
}

// Sum returns A[0] + ... + A[i].
func (f *FenwickSequential) Sum(i int) int32 {
	assertIndex(i, f.n)
	var s int32
	for k := i + 1; k > 0; k -= lowbit(k) {
		s += f.tree[k]
	}
	return s
}

// BatchAdd applies every Update op in ops in order. Query ops are ignored;
// callers that need query results should use Sum directly or drive this
// tree through one of the batch executors.
func (f *FenwickSequential) BatchAdd(ops []Op) {
	for _, op := range ops {
		if op.Kind == Update {
			f.Add(op.Index, op.Value)
		}
	}
}

// Execute implements Executor by replaying the batch sequentially: updates
// mutate the tree in order and each query reads the tree state as of that
// point in the batch. This is the ground truth every other executor is
// validated against.
func (f *FenwickSequential) Execute(batch []Op) ([]int32, error) {
	results := make([]int32, len(batch))
	for pos, op := range batch {
		switch op.Kind {
		case Update:
			f.Add(op.Index, op.Value)
		case Query:
			results[pos] = f.Sum(op.Index)
		}
	}
	return results, nil
}
