package fenwick

import (
	"sync"
	"testing"
)

func TestFenwickStripedLocked_AddSum(t *testing.T) {
	tree, err := NewFenwickStripedLocked(16)
	if err != nil {
		t.Fatalf("NewFenwickStripedLocked: %v", err)
	}
	tree.Add(0, 1)
	tree.Add(3, 2)
	tree.Add(5, 4)
	if got := tree.Sum(7); got != 7 {
		t.Fatalf("Sum(7) = %d, want 7", got)
	}
}

func TestFenwickStripedLocked_ConcurrentAddsLandCorrectly(t *testing.T) {
	const n = 1 << 14
	tree, err := NewFenwickStripedLocked(n, WithBlockSize(256))
	if err != nil {
		t.Fatalf("NewFenwickStripedLocked: %v", err)
	}

	var wg sync.WaitGroup
	const writers = 8
	const perWriter = 500
	for g := 0; g < writers; g++ {
		g := g
		wg.Go(func() {
			for i := 0; i < perWriter; i++ {
				tree.Add((g*perWriter+i)%n, 1)
			}
		})
	}
	wg.Wait()

	if got := tree.Sum(n - 1); got != int32(writers*perWriter) {
		t.Fatalf("Sum(n-1) = %d, want %d", got, writers*perWriter)
	}
}

func TestFenwickStripedLocked_SmallBlockSizeSpansManyLocks(t *testing.T) {
	tree, err := NewFenwickStripedLocked(1000, WithBlockSize(16))
	if err != nil {
		t.Fatalf("NewFenwickStripedLocked: %v", err)
	}
	tree.Add(0, 10)
	tree.Add(999, 5)
	if got := tree.Sum(999); got != 15 {
		t.Fatalf("Sum(999) = %d, want 15", got)
	}
}
