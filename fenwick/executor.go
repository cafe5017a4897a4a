package fenwick

// Executor is the batch executor contract (C12): submit a batch, block
// until every query's result is available. The returned slice is the same
// length as batch and positionally indexed by the operation's index within
// it — non-query positions are left at their zero value rather than
// compacted down to just the query results.
//
// C4, C6, C8, C9, C10, and C11 all implement Executor. C4's semi-static
// sibling (C5) embeds C4 and implements it too. C2 and C7 are not batch
// executors: they expose the narrower {Add, Sum} capability that the
// executors above are themselves built out of.
type Executor interface {
	Execute(batch []Op) ([]int32, error)
}

var (
	_ Executor = (*FenwickSequential)(nil)
	_ Executor = (*FenwickPipeline)(nil)
	_ Executor = (*FenwickPipelineSemiStatic)(nil)
	_ Executor = (*FenwickPipelineAggregate)(nil)
	_ Executor = (*LazyBatchDriver)(nil)
	_ Executor = (*CentralScheduler)(nil)
	_ Executor = (*CentralSchedulerSPSC)(nil)
	_ Executor = (*DecentralizedDriver)(nil)
)
