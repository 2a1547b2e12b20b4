package csvdoc

import (
	"context"
	"sync"
)

// writeJob persists one partition. Jobs for the same key coalesce: only the
// newest pending job runs.
type writeJob struct {
	key string
	run func(context.Context) error
}

// writeQueue runs jobs one at a time in enqueue order on a single worker.
type writeQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending map[string]writeJob
	order   []string
	busy    bool
	closed  bool
	done    chan struct{}
	onError func(key string, err error)
}

func newWriteQueue(onError func(key string, err error)) *writeQueue {
	q := &writeQueue{
		pending: make(map[string]writeJob),
		done:    make(chan struct{}),
		onError: onError,
	}
	q.cond = sync.NewCond(&q.mu)
	go q.loop()
	return q
}

// Enqueue schedules job, replacing a pending job with the same key in place.
// It reports false once the queue is closed.
func (q *writeQueue) Enqueue(job writeJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if _, ok := q.pending[job.key]; !ok {
		q.order = append(q.order, job.key)
	}
	q.pending[job.key] = job
	q.cond.Broadcast()
	return true
}

func (q *writeQueue) loop() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.order) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.order) == 0 {
			q.mu.Unlock()
			return
		}
		key := q.order[0]
		q.order = q.order[1:]
		job := q.pending[key]
		delete(q.pending, key)
		q.busy = true
		q.mu.Unlock()

		if err := job.run(context.Background()); err != nil && q.onError != nil {
			q.onError(key, err)
		}

		q.mu.Lock()
		q.busy = false
		q.cond.Broadcast()
		q.mu.Unlock()
	}
}

// Wait blocks until every job enqueued so far has run or ctx is done. The
// helper goroutine is released when Wait returns, even if a job hangs.
func (q *writeQueue) Wait(ctx context.Context) error {
	idle := make(chan struct{})
	abandoned := false
	go func() {
		defer close(idle)
		q.mu.Lock()
		defer q.mu.Unlock()
		for (len(q.order) > 0 || q.busy) && !abandoned {
			q.cond.Wait()
		}
	}()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		abandoned = true
		q.cond.Broadcast()
		q.mu.Unlock()
		<-idle
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for pending ones to drain.
func (q *writeQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
