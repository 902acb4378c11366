package device

// Queue is an in-order device work queue. Tasks submitted to it run
// asynchronously on a single worker, strictly in issue order, so two tasks
// submitted back to back need no barrier between them. Synchronize is the
// only wait point: it blocks the host until every task issued before it has
// finished.
type Queue struct {
	tasks chan func()
	done  chan struct{}
}

// NewQueue starts a queue with its own worker.
func NewQueue() *Queue {
	q := &Queue{
		tasks: make(chan func(), 256),
		done:  make(chan struct{}),
	}
	go q.worker()
	return q
}

func (q *Queue) worker() {
	for task := range q.tasks {
		task()
	}
	close(q.done)
}

// Submit enqueues one unit of device work. It may return before the task has
// run; callers that need completion must Synchronize. Safe for concurrent
// use.
func (q *Queue) Submit(task func()) {
	q.tasks <- task
}

// Synchronize is the device→host barrier: it enqueues a fence and blocks
// until the worker reaches it, which by issue order means all previously
// submitted work has completed. Host code must not read device-written
// memory before it returns. Safe for concurrent use; each caller waits on
// its own fence.
func (q *Queue) Synchronize() {
	fence := make(chan struct{})
	q.Submit(func() { close(fence) })
	<-fence
}

// Close stops the worker after draining queued tasks. No Submit or
// Synchronize may follow.
func (q *Queue) Close() {
	close(q.tasks)
	<-q.done
}
