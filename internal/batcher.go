package internal

// Batcher tracks how deeply batches are nested on a runtime. Writes made while
// a batch is open only queue their subscriptions; the flush is requested once,
// when the outermost batch returns, even if it panicked.
type Batcher struct {
	depth int

	// requested by the outermost batch on its way out
	settle func()
}

func NewBatcher(settle func()) *Batcher {
	return &Batcher{settle: settle}
}

func (b *Batcher) IsBatching() bool {
	return b.depth > 0
}

func (b *Batcher) Run(fn func()) {
	b.depth++
	defer b.leave()

	fn()
}

func (b *Batcher) leave() {
	b.depth--
	if b.depth > 0 || b.settle == nil {
		return
	}

	b.settle()
}

// Batch runs fn as one synchronous extent: every write it makes, directly or
// through nested batches, is delivered to subscribers in a single notification
// pass once the outermost batch is done.
func (r *Runtime) Batch(fn func()) {
	r.batcher.Run(fn)
}
