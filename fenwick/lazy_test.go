package fenwick

import "testing"

func TestFenwickLazyAtomic_AddSum(t *testing.T) {
	tree, err := NewFenwickLazyAtomic(16)
	if err != nil {
		t.Fatalf("NewFenwickLazyAtomic: %v", err)
	}
	tree.Add(2, 5)
	tree.Add(9, 3)
	if got := tree.Sum(15); got != 8 {
		t.Fatalf("Sum(15) = %d, want 8", got)
	}
}

func TestLazyBatchDriver_ConcreteScenario(t *testing.T) {
	driver, err := NewLazyBatchDriver(8, WithWorkers(2))
	if err != nil {
		t.Fatalf("NewLazyBatchDriver: %v", err)
	}

	batch := []Op{
		AddOp(0, 1),
		AddOp(3, 2),
		QueryOp(7),
		AddOp(5, 4),
		QueryOp(7),
	}

	results, err := driver.Execute(batch)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if results[2] != 3 {
		t.Errorf("results[2] = %d, want 3", results[2])
	}
	if results[4] != 7 {
		t.Errorf("results[4] = %d, want 7", results[4])
	}
}

func TestLazyBatchDriver_MatchesSequentialOrder(t *testing.T) {
	const n = 256
	ref, err := NewFenwickSequential(n)
	if err != nil {
		t.Fatalf("NewFenwickSequential: %v", err)
	}
	driver, err := NewLazyBatchDriver(n, WithWorkers(4))
	if err != nil {
		t.Fatalf("NewLazyBatchDriver: %v", err)
	}

	batch := make([]Op, 0, 400)
	for i := 0; i < 400; i++ {
		if i%5 == 0 {
			batch = append(batch, QueryOp((i*13)%n))
		} else {
			batch = append(batch, AddOp((i*7)%n, int32(i%11+1)))
		}
	}

	gotResults := make([]int32, 0, len(batch))
	wantResults := make([]int32, 0, len(batch))
	for _, op := range batch {
		if op.Kind == Query {
			wantResults = append(wantResults, ref.Sum(op.Index))
		} else {
			ref.Add(op.Index, op.Value)
		}
	}

	got, err := driver.Execute(batch)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	for pos, op := range batch {
		if op.Kind == Query {
			gotResults = append(gotResults, got[pos])
		}
	}

	if len(gotResults) != len(wantResults) {
		t.Fatalf("got %d query results, want %d", len(gotResults), len(wantResults))
	}
	for i := range wantResults {
		if gotResults[i] != wantResults[i] {
			t.Errorf("query #%d: got %d, want %d", i, gotResults[i], wantResults[i])
		}
	}
}

func TestLazyBatchDriver_EmptyBatch(t *testing.T) {
	driver, err := NewLazyBatchDriver(4, WithWorkers(2))
	if err != nil {
		t.Fatalf("NewLazyBatchDriver: %v", err)
	}
	results, err := driver.Execute(nil)
	if err != nil {
		t.Fatalf("Execute(nil): %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Execute(nil) returned %d results, want 0", len(results))
	}
}
