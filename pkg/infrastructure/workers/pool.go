// Package workers runs small batches of independent tasks in parallel.
//
// The pool is semaphore based: every task gets its own goroutine and the
// semaphore caps how many execute at once. It is used for loading content
// types concurrently and for warming the search cache with popular queries.
package workers

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Task represents a unit of work that can be executed by a worker
type Task interface {
	// Execute performs the task and returns a result or error
	Execute(ctx context.Context) (interface{}, error)

	// ID returns an identifier for this task, used in errors and results
	ID() string
}

// TaskFunc adapts a plain function to the Task interface
type TaskFunc struct {
	Name string
	Fn   func(ctx context.Context) (interface{}, error)
}

func (t TaskFunc) ID() string {
	return t.Name
}

func (t TaskFunc) Execute(ctx context.Context) (interface{}, error) {
	return t.Fn(ctx)
}

// Result holds the outcome of a task execution
type Result struct {
	TaskID   string
	Value    interface{}
	Error    error
	Duration time.Duration
}

// ProgressReporter is called when a task completes
type ProgressReporter func(completed, total int64)

// Stats reports lifetime counters for a pool
type Stats struct {
	Completed int64
	Failed    int64
}

// Pool executes task batches with bounded concurrency
type Pool struct {
	workers  int
	progress ProgressReporter

	completed int64
	failed    int64
}

// NewPool creates a pool running at most workerCount tasks at once.
// A non-positive count defaults to runtime.NumCPU().
func NewPool(workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	return &Pool{workers: workerCount}
}

// WithProgress sets a callback invoked after each task finishes
func (p *Pool) WithProgress(reporter ProgressReporter) *Pool {
	p.progress = reporter
	return p
}

// Workers returns the concurrency limit
func (p *Pool) Workers() int {
	return p.workers
}

// ExecuteAll runs every task and returns results in input order.
// A task that panics is reported as a failed result rather than crashing the caller.
func (p *Pool) ExecuteAll(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}

	sem := make(chan struct{}, p.workers)
	total := int64(len(tasks))
	var done int64
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(index int, t Task) {
			defer wg.Done()

			results[index] = Result{TaskID: t.ID()}

			// Wait for a slot or cancellation
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[index].Error = ctx.Err()
				p.finish(&results[index], &done, total)
				return
			}
			defer func() { <-sem }()

			start := time.Now()
			value, err := p.safeExecute(ctx, t)
			results[index].Value = value
			results[index].Error = err
			results[index].Duration = time.Since(start)
			p.finish(&results[index], &done, total)
		}(i, task)
	}

	wg.Wait()
	return results
}

// Run executes all tasks and returns the first error in input order
func (p *Pool) Run(ctx context.Context, tasks []Task) ([]interface{}, error) {
	results := p.ExecuteAll(ctx, tasks)
	values := make([]interface{}, len(results))
	for i, r := range results {
		if r.Error != nil {
			return nil, fmt.Errorf("task %s: %w", r.TaskID, r.Error)
		}
		values[i] = r.Value
	}
	return values, nil
}

// Stats returns lifetime counters
func (p *Pool) Stats() Stats {
	return Stats{
		Completed: atomic.LoadInt64(&p.completed),
		Failed:    atomic.LoadInt64(&p.failed),
	}
}

func (p *Pool) safeExecute(ctx context.Context, t Task) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t.ID(), r)
		}
	}()
	return t.Execute(ctx)
}

func (p *Pool) finish(r *Result, done *int64, total int64) {
	if r.Error != nil {
		atomic.AddInt64(&p.failed, 1)
	} else {
		atomic.AddInt64(&p.completed, 1)
	}
	n := atomic.AddInt64(done, 1)
	if p.progress != nil {
		p.progress(n, total)
	}
}
