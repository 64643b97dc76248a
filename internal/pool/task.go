package pool

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Priority orders tasks waiting for a free worker. High is used for
// the user-visible render; speculative work runs at Low.
type Priority int

const (
	Low Priority = iota
	Normal
	High
)

// String returns a human-readable priority name
func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// State tracks a task through its lifecycle.
type State int32

const (
	StatePending State = iota
	StateRunning
	StateCanceled
	StateFinished
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCanceled:
		return "canceled"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Task wraps one submitted unit of work with cooperative cancellation.
//
// The state machine is Pending -> Running -> Finished on the normal
// path, or Pending -> Canceled. Running is terminal with respect to
// cancellation: once the work function has started it always runs to
// completion.
type Task struct {
	id          string
	priority    Priority
	coalesceKey string
	fn          func()

	state      atomic.Int32
	submittedAt time.Time
}

// ID returns the task's unique identifier
func (t *Task) ID() string { return t.id }

// Priority returns the task's scheduling priority
func (t *Task) Priority() Priority { return t.priority }

// State returns the task's current lifecycle state
func (t *Task) State() State { return State(t.state.Load()) }

// cancel succeeds only while the task is still pending
func (t *Task) cancel() bool {
	return t.state.CompareAndSwap(int32(StatePending), int32(StateCanceled))
}

// claim marks the task running. It fails if the task was canceled
// (or already claimed), in which case the worker must skip it.
func (t *Task) claim() bool {
	return t.state.CompareAndSwap(int32(StatePending), int32(StateRunning))
}

// run invokes the wrapped function exactly once. Panics are recovered
// and logged so one bad task never takes down a worker. The task is
// marked finished either way.
func (t *Task) run(logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", "task", t.id, "priority", t.priority.String(), "panic", r)
		}
		t.state.Store(int32(StateFinished))
	}()
	t.fn()
}
