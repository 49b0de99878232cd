package dispatch

import (
	"sync"

	"go.uber.org/zap"
)

// Dispatcher runs submitted tasks on a single worker per key, so no two tasks
// for the same booking or the same waitlist slot ever run concurrently.
// Tasks for different keys run independently. A key's worker exits once its
// queue drains, so idle keys hold no goroutine or map entry.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[string]*queue
	wg     sync.WaitGroup
	closed bool
	log    *zap.Logger
}

type queue struct {
	tasks []func()
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		queues: make(map[string]*queue),
		log:    log,
	}
}

// Submit enqueues a task behind all previously submitted tasks for the same
// key. It never blocks the caller.
func (d *Dispatcher) Submit(key string, task func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.log.Warn("dispatcher closed, dropping task", zap.String("key", key))
		return
	}
	q, ok := d.queues[key]
	if !ok {
		q = &queue{}
		d.queues[key] = q
		d.wg.Add(1)
		go d.worker(key, q)
	}
	q.tasks = append(q.tasks, task)
}

// worker drains its key's queue one task at a time. When the queue is empty
// it removes the key and exits; the next Submit for the key starts a fresh
// worker. The empty check and the removal happen under the same lock as
// Submit's append, so no task is ever stranded.
func (d *Dispatcher) worker(key string, q *queue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.tasks) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		d.mu.Unlock()

		task()
	}
}

// Close stops accepting tasks and waits for in-flight queues to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.wg.Wait()
}
