// Package fenwick implements a parallel prefix-sum index over a dense
// integer domain [0, N): point updates add(i, v) that increment a logical
// array A[i], and prefix queries sum(i) that return A[0]+...+A[i].
//
// The tree itself is a textbook Fenwick (binary indexed) tree. What this
// package is actually about is the collection of concurrency strategies for
// applying a mixed batch of add/sum operations to that tree on a multi-core
// machine:
//
//   - FenwickSequential: single-threaded reference implementation.
//   - FenwickStripedLocked: block-mutex-guarded concurrent tree.
//   - FenwickPipeline / FenwickPipelineSemiStatic / FenwickPipelineAggregate:
//     range-partitioned, lock-free parallel batch application over a shared
//     tree, each worker restricted to its own disjoint stripe.
//   - FenwickLazyAtomic + LazyBatchDriver: an atomic-cell tree with deferred,
//     parallel-flushed updates.
//   - CentralScheduler (blocking-queue and SPSC variants): worker threads
//     each own a private sub-tree; updates round-robin, queries broadcast.
//   - DecentralizedDriver: no queues, workers scan the shared batch and
//     process a deterministic index-mod slice.
//
// Every strategy above except FenwickStripedLocked and FenwickLazyAtomic
// (which expose only Add and Sum) implements Executor, so callers that only need "apply this batch, get
// these results" can depend on the interface rather than a concrete
// strategy.
package fenwick
