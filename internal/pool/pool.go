// Package pool is a bounded worker pool for background editor work.
// Tasks carry a priority, may be canceled while still pending, and may
// be coalesced: submitting under a key that already has a pending task
// returns that task instead of queueing a duplicate. Bursts of
// identical speculative work collapse into a single execution.
package pool

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrCoalesceKeyRequired is returned when a submission is marked
	// coalescable but carries no key to coalesce on.
	ErrCoalesceKeyRequired = errors.New("pool: coalescable task requires a coalesce key")

	// ErrClosed is returned for submissions after shutdown.
	ErrClosed = errors.New("pool: closed")
)

// Statistics is a snapshot of pool counters.
type Statistics struct {
	Submitted     int
	Completed     int
	Canceled      int
	Coalesced     int
	ActiveTasks   int // pending + running
	ActiveThreads int
	MaxThreads    int
}

// Observer receives task lifecycle notifications. The Prometheus
// exporter implements this; a nil observer costs nothing.
type Observer interface {
	TaskSubmitted(priority Priority)
	TaskCompleted(priority Priority, duration time.Duration)
	TaskCanceled()
	TaskCoalesced()
}

// Pool executes tasks on a fixed set of worker goroutines.
// The worker count is set at construction and never changes.
type Pool struct {
	maxWorkers int
	logger     *slog.Logger
	observer   Observer

	mu            sync.Mutex
	cond          *sync.Cond
	queues        [3][]*Task        // indexed by Priority, FIFO within each
	queued        int               // total entries across queues
	tasks         map[string]*Task  // id -> task, pending and running only
	coalesce      map[string]string // coalesce key -> pending task id
	activeThreads int
	closed        bool

	submitted int
	completed int
	canceled  int
	coalesced int

	wg sync.WaitGroup
}

// Option configures a Pool
type Option func(*Pool)

// WithWorkers sets the worker count; values below 1 fall back to the
// CPU-derived default.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxWorkers = n
		}
	}
}

// WithLogger sets the logger used for task failures
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// WithObserver attaches a lifecycle observer (e.g. metrics exporter)
func WithObserver(o Observer) Option {
	return func(p *Pool) { p.observer = o }
}

// New creates and starts a pool. Workers default to runtime.NumCPU().
func New(opts ...Option) *Pool {
	p := &Pool{
		maxWorkers: runtime.NumCPU(),
		logger:     slog.Default(),
		tasks:      make(map[string]*Task),
		coalesce:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// SubmitOption adjusts a single submission
type SubmitOption func(*submitConfig)

type submitConfig struct {
	id          string
	priority    Priority
	coalescable bool
	coalesceKey string
}

// WithID supplies the task id instead of generating one
func WithID(id string) SubmitOption {
	return func(c *submitConfig) { c.id = id }
}

// WithPriority sets the scheduling priority (default Normal)
func WithPriority(prio Priority) SubmitOption {
	return func(c *submitConfig) { c.priority = prio }
}

// WithCoalesceKey marks the submission coalescable under key
func WithCoalesceKey(key string) SubmitOption {
	return func(c *submitConfig) {
		c.coalescable = true
		c.coalesceKey = key
	}
}

// Coalescable marks the submission coalescable without supplying a
// key. Submit rejects this combination; the option exists so callers
// that forward flags blindly get a clear error instead of silent
// duplicate work.
func Coalescable() SubmitOption {
	return func(c *submitConfig) { c.coalescable = true }
}

// Submit enqueues fn and returns the task id.
//
// If the submission is coalescable and a pending task already holds
// the same key, no new task is created: the existing task's id comes
// back and the coalesced counter increments. Submission is idempotent
// under a shared key while the prior instance is unstarted.
func (p *Pool) Submit(fn func(), opts ...SubmitOption) (string, error) {
	cfg := submitConfig{priority: Normal}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.coalescable && cfg.coalesceKey == "" {
		return "", ErrCoalesceKeyRequired
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", ErrClosed
	}

	if cfg.coalesceKey != "" {
		if existing, ok := p.coalesce[cfg.coalesceKey]; ok {
			p.coalesced++
			if p.observer != nil {
				p.observer.TaskCoalesced()
			}
			return existing, nil
		}
	}

	id := cfg.id
	if id == "" {
		id = uuid.NewString()
	}
	task := &Task{
		id:          id,
		priority:    cfg.priority,
		coalesceKey: cfg.coalesceKey,
		fn:          fn,
		submittedAt: time.Now(),
	}

	p.tasks[id] = task
	if cfg.coalesceKey != "" {
		p.coalesce[cfg.coalesceKey] = id
	}
	p.queues[cfg.priority] = append(p.queues[cfg.priority], task)
	p.queued++
	p.submitted++
	if p.observer != nil {
		p.observer.TaskSubmitted(cfg.priority)
	}

	p.cond.Signal()
	return id, nil
}

// CancelTask cancels a task that has not started yet. It returns false
// for unknown, running, or finished tasks; a task racing into Running
// simply wins the race and runs to completion.
func (p *Pool) CancelTask(taskID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelLocked(taskID)
}

func (p *Pool) cancelLocked(taskID string) bool {
	task, ok := p.tasks[taskID]
	if !ok {
		return false
	}
	if !task.cancel() {
		return false
	}
	delete(p.tasks, taskID)
	if task.coalesceKey != "" && p.coalesce[task.coalesceKey] == taskID {
		delete(p.coalesce, task.coalesceKey)
	}
	p.canceled++
	if p.observer != nil {
		p.observer.TaskCanceled()
	}
	return true
}

// CancelAll cancels every pending task and returns how many were
// canceled. Running tasks are never interrupted.
func (p *Pool) CancelAll() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelAllLocked()
}

func (p *Pool) cancelAllLocked() int {
	count := 0
	for id, task := range p.tasks {
		if task.cancel() {
			delete(p.tasks, id)
			if task.coalesceKey != "" && p.coalesce[task.coalesceKey] == id {
				delete(p.coalesce, task.coalesceKey)
			}
			count++
		}
	}
	p.canceled += count
	if p.observer != nil {
		for i := 0; i < count; i++ {
			p.observer.TaskCanceled()
		}
	}

	// Drop canceled entries from the queues so workers don't churn
	// through them.
	for prio := range p.queues {
		kept := p.queues[prio][:0]
		for _, task := range p.queues[prio] {
			if task.State() == StatePending {
				kept = append(kept, task)
			}
		}
		p.queued -= len(p.queues[prio]) - len(kept)
		p.queues[prio] = kept
	}
	return count
}

// IsTaskActive reports whether a task is still pending or running
func (p *Pool) IsTaskActive(taskID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.tasks[taskID]
	return ok
}

// ActiveThreadCount returns how many workers are executing right now
func (p *Pool) ActiveThreadCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeThreads
}

// Statistics returns a snapshot of the pool's counters
func (p *Pool) Statistics() Statistics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Statistics{
		Submitted:     p.submitted,
		Completed:     p.completed,
		Canceled:      p.canceled,
		Coalesced:     p.coalesced,
		ActiveTasks:   len(p.tasks),
		ActiveThreads: p.activeThreads,
		MaxThreads:    p.maxWorkers,
	}
}

// ResetStatistics zeroes the counters without touching in-flight tasks
func (p *Pool) ResetStatistics() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = 0
	p.completed = 0
	p.canceled = 0
	p.coalesced = 0
}

// Clear cancels everything pending and resets statistics
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelAllLocked()
	p.submitted = 0
	p.completed = 0
	p.canceled = 0
	p.coalesced = 0
}

// WaitForDone blocks until no tasks remain active or the timeout
// elapses, and reports whether completion was observed. This is the
// pool's only intentionally blocking call.
func (p *Pool) WaitForDone(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		done := len(p.tasks) == 0
		p.mu.Unlock()
		if done {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// Shutdown cancels all pending tasks and waits up to timeout for
// running ones to finish. Bookkeeping is released either way; it
// reports whether the workers all exited in time.
func (p *Pool) Shutdown(timeout time.Duration) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return true
	}
	p.closed = true
	p.cancelAllLocked()
	p.cond.Broadcast()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// worker pulls the highest-priority pending task and runs it.
// High must not be starved by Low when both are waiting; within one
// priority dispatch is FIFO (an implementation choice, not a
// contract).
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for p.queued == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.queued == 0 && p.closed {
			p.mu.Unlock()
			return
		}

		task := p.dequeueLocked()
		if task == nil {
			p.mu.Unlock()
			continue
		}

		if task.coalesceKey != "" && p.coalesce[task.coalesceKey] == task.id {
			delete(p.coalesce, task.coalesceKey)
		}
		p.activeThreads++
		p.mu.Unlock()

		start := time.Now()
		task.run(p.logger)
		elapsed := time.Since(start)

		p.mu.Lock()
		p.activeThreads--
		p.completed++
		delete(p.tasks, task.id)
		p.mu.Unlock()

		if p.observer != nil {
			p.observer.TaskCompleted(task.priority, elapsed)
		}
	}
}

// dequeueLocked pops the next claimable task, highest priority first.
// Entries canceled while queued are discarded along the way.
func (p *Pool) dequeueLocked() *Task {
	for prio := High; prio >= Low; prio-- {
		queue := p.queues[prio]
		for len(queue) > 0 {
			task := queue[0]
			queue = queue[1:]
			p.queued--
			if task.claim() {
				p.queues[prio] = queue
				return task
			}
			// Canceled while queued; registry cleanup already
			// happened in cancelLocked.
		}
		p.queues[prio] = queue
	}
	return nil
}
