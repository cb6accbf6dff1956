// Package dispatch runs named analytics tasks on a bounded worker pool,
// off the matching hot path. Every submitted task terminates in exactly
// one of three ways: completed, explicitly failed, or timed out — never
// silently dropped.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/azaynul10/CarbonPro-AI/pkg/logger"
)

var (
	// ErrTaskTimeout reports a task that exceeded its execution budget.
	ErrTaskTimeout = errors.New("dispatch: task exceeded execution budget")
	// ErrPoolStopped reports a submission to a stopped pool, or a queued
	// task failed during shutdown.
	ErrPoolStopped = errors.New("dispatch: pool stopped")
	// ErrQueueFull reports that the bounded task queue is at capacity.
	ErrQueueFull = errors.New("dispatch: task queue full")
)

// Task is a named unit of analytics work. Run must honor ctx cancellation:
// after the task's budget elapses the pool reports a timeout and abandons
// the result.
type Task struct {
	Name string
	Run  func(ctx context.Context) (any, error)
}

// Result is the outcome of one task.
type Result struct {
	TaskName string
	Value    any
	Err      error
	Elapsed  time.Duration
}

type submission struct {
	task   Task
	result chan Result
}

// Pool is a fixed-size worker pool with a bounded queue and a per-task
// timeout. A worker that panics outside task recovery is replaced.
type Pool struct {
	workers int
	timeout time.Duration
	logger  logger.Interface

	tasks  chan submission
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	// mu orders Submit against Stop: once stopped is set, no submission
	// can slip into a queue the shutdown drain has already passed over.
	mu      sync.Mutex
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewPool creates a pool with the given worker count and per-task timeout.
func NewPool(workers int, timeout time.Duration, log logger.Interface) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		timeout: timeout,
		logger:  log,
		tasks:   make(chan submission, workers*4),
	}
}

// Start launches the workers.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		p.mu.Lock()
		p.ctx, p.cancel = context.WithCancel(ctx)
		p.mu.Unlock()
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
		p.logger.Info("dispatch pool started",
			logger.Field{Key: "workers", Value: p.workers},
			logger.Field{Key: "taskTimeout", Value: p.timeout.String()},
		)
	})
}

// Submit queues a task and returns a channel that receives exactly one
// Result. Submission fails immediately when the queue is full or the pool
// is stopped. A submission accepted here is guaranteed a result: either a
// worker executes it, or the shutdown drain fails it with ErrPoolStopped.
func (p *Pool) Submit(task Task) (<-chan Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil || p.stopped || p.ctx.Err() != nil {
		return nil, ErrPoolStopped
	}

	sub := submission{task: task, result: make(chan Result, 1)}
	select {
	case p.tasks <- sub:
		return sub.result, nil
	default:
		return nil, ErrQueueFull
	}
}

// Stop shuts the pool down, failing queued tasks with ErrPoolStopped. It
// returns once the workers have exited or ctx is done.
func (p *Pool) Stop(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		// Reject new submissions before draining: anything enqueued prior
		// to this point is either executed or failed below, never lost.
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()

		if p.cancel != nil {
			p.cancel()
		}

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = ctx.Err()
		}

		// Fail anything still queued so no task is lost silently.
		for {
			select {
			case sub := <-p.tasks:
				sub.result <- Result{TaskName: sub.task.Name, Err: ErrPoolStopped}
			default:
				return
			}
		}
	})
	return err
}

func (p *Pool) worker(id int) {
	defer func() {
		if r := recover(); r != nil {
			// In-flight task already received its failure result from
			// execute's recover; replace the worker so capacity holds.
			p.logger.Warn("dispatch worker replaced after panic",
				logger.Field{Key: "worker", Value: id},
				logger.Field{Key: "panic", Value: fmt.Sprint(r)},
			)
			p.wg.Add(1)
			go p.worker(id)
		}
		p.wg.Done()
	}()

	for {
		select {
		case <-p.ctx.Done():
			return
		case sub := <-p.tasks:
			sub.result <- p.execute(sub.task)
		}
	}
}

// execute runs one task under its timeout budget. The task function runs
// in its own goroutine so a stuck task cannot wedge the worker.
func (p *Pool) execute(task Task) Result {
	taskCtx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	started := time.Now()
	done := make(chan Result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Result{
					TaskName: task.Name,
					Err:      fmt.Errorf("dispatch: task %s panicked: %v", task.Name, r),
				}
			}
		}()
		value, err := task.Run(taskCtx)
		done <- Result{TaskName: task.Name, Value: value, Err: err}
	}()

	select {
	case result := <-done:
		result.Elapsed = time.Since(started)
		if result.Err != nil {
			p.logger.Warn("dispatch task failed",
				logger.Field{Key: "task", Value: task.Name},
				logger.Field{Key: "error", Value: result.Err.Error()},
			)
		}
		return result
	case <-taskCtx.Done():
		p.logger.Warn("dispatch task timed out",
			logger.Field{Key: "task", Value: task.Name},
			logger.Field{Key: "budget", Value: p.timeout.String()},
		)
		return Result{
			TaskName: task.Name,
			Err:      fmt.Errorf("%w: %s", ErrTaskTimeout, task.Name),
			Elapsed:  time.Since(started),
		}
	}
}
