// Package notify runs best-effort sends on a supervised worker pool.
// Callers that deliberately do not await a secondary notification hand it
// here instead of dropping the result, so failures still reach the logs
// and the metrics.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/logger"
	"github.com/GreenfieldMC/GreenbotTwo-sub000/internal/common/metrics"
)

const taskTimeout = 30 * time.Second

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Dispatcher owns the worker pool. Close drains the queue.
type Dispatcher struct {
	tasks chan task
	wg    sync.WaitGroup
	log   logger.Logger

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts workers goroutines consuming a queue of the given
// size.
func NewDispatcher(workers, queueSize int, log logger.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}

	d := &Dispatcher{
		tasks: make(chan task, queueSize),
		log:   log,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Go queues fn for background execution. When the queue is full the task
// is dropped rather than blocking the caller's response path; the drop is
// logged and counted. The lock is held across the send so the channel
// cannot be closed between the closed check and the enqueue.
func (d *Dispatcher) Go(name string, fn func(ctx context.Context) error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.log.Warn("notify task rejected after close", map[string]interface{}{"task": name})
		metrics.NotifyTasks.WithLabelValues(name, "rejected").Inc()
		return
	}

	select {
	case d.tasks <- task{name: name, fn: fn}:
	default:
		d.log.Warn("notify queue full, dropping task", map[string]interface{}{"task": name})
		metrics.NotifyTasks.WithLabelValues(name, "dropped").Inc()
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	close(d.tasks)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.tasks {
		d.run(t)
	}
}

func (d *Dispatcher) run(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("notify task panicked", map[string]interface{}{
				"task":  t.name,
				"panic": fmt.Sprintf("%v", r),
			})
			metrics.NotifyTasks.WithLabelValues(t.name, "panic").Inc()
		}
	}()

	if err := t.fn(ctx); err != nil {
		d.log.Error("notify task failed", map[string]interface{}{
			"task":  t.name,
			"error": err.Error(),
		})
		metrics.NotifyTasks.WithLabelValues(t.name, "failure").Inc()
		return
	}
	metrics.NotifyTasks.WithLabelValues(t.name, "success").Inc()
}
