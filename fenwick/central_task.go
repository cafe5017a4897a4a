package fenwick

// taskKind tags the messages a central scheduler's driver sends to its
// workers. Queue closure is signaled in-band by taskFinish rather than an
// out-of-band flag.
type taskKind uint8

const (
	taskUpdate taskKind = iota
	taskQuery
	taskSync
	taskFinish
)

// task is the message type carried by both the blocking-queue (C9) and
// SPSC (C10) central schedulers' per-worker queues.
type task struct {
	kind  taskKind
	index int
	value int32
	pos   int // batch position a Query's result belongs to
}
