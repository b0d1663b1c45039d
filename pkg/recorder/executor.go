package recorder

import (
	"errors"
	"sync"
)

var errExecutorStopped = errors.New("recorder: writer stopped")

// serialExecutor runs jobs one at a time on a dedicated goroutine.
// Every call into the codec and container writer goes through it.
type serialExecutor struct {
	jobs     chan func()
	quit     chan struct{}
	stopOnce sync.Once
}

func newSerialExecutor(capacity int) *serialExecutor {
	e := &serialExecutor{
		jobs: make(chan func(), capacity),
		quit: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *serialExecutor) run() {
	for {
		select {
		case <-e.quit:
			return
		case job := <-e.jobs:
			job()
		}
	}
}

// trySubmit enqueues job without blocking. It reports false when the queue
// is full or the executor has stopped.
func (e *serialExecutor) trySubmit(job func()) bool {
	select {
	case <-e.quit:
		return false
	default:
	}
	select {
	case e.jobs <- job:
		return true
	default:
		return false
	}
}

// submit enqueues job, waiting for queue space if needed.
func (e *serialExecutor) submit(job func()) bool {
	select {
	case <-e.quit:
		return false
	case e.jobs <- job:
		return true
	}
}

// call runs fn on the executor and waits for its result.
func (e *serialExecutor) call(fn func() error) error {
	result := make(chan error, 1)
	if !e.submit(func() { result <- fn() }) {
		return errExecutorStopped
	}
	select {
	case err := <-result:
		return err
	case <-e.quit:
		return errExecutorStopped
	}
}

// stop ends the run loop. Jobs still queued are discarded.
func (e *serialExecutor) stop() {
	e.stopOnce.Do(func() { close(e.quit) })
}
