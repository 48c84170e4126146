package domain

import (
	"fmt"
	"time"
)

// TaskStatus tracks the lifecycle of one unit of scheduled work.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskSucceeded TaskStatus = "succeeded"
	TaskFailed    TaskStatus = "failed"
	TaskSkipped   TaskStatus = "skipped"
)

// Terminal reports whether the status is a final one.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskSucceeded, TaskFailed, TaskSkipped:
		return true
	}
	return false
}

// Task is one (Entity, ModuleID) unit of investigative work.
type Task struct {
	Entity   Entity     `json:"entity"`
	ModuleID string     `json:"module_id"`
	Status   TaskStatus `json:"status"`

	// Attempts counts module dispatches, including retries.
	Attempts int `json:"attempts"`

	// Reason records why the task failed or was skipped.
	Reason string `json:"reason,omitempty"`

	// FromCache is set when the task settled from a cache hit without
	// dispatching the module.
	FromCache bool `json:"from_cache,omitempty"`

	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// NewTask creates a pending task.
func NewTask(entity Entity, moduleID string) *Task {
	return &Task{
		Entity:   entity,
		ModuleID: moduleID,
		Status:   TaskPending,
	}
}

// Key returns the admission key: one task per (entity identity, module).
func (t *Task) Key() string {
	return t.Entity.Identity() + "/" + t.ModuleID
}

// TaskKey builds the admission key without allocating a Task.
func TaskKey(entity Entity, moduleID string) string {
	return entity.Identity() + "/" + moduleID
}

// Start transitions Pending -> Running.
func (t *Task) Start(now time.Time) error {
	if t.Status != TaskPending {
		return fmt.Errorf("%w: %s -> running", ErrInvalidTransition, t.Status)
	}
	t.Status = TaskRunning
	t.StartedAt = now
	return nil
}

// Succeed transitions Running -> Succeeded.
func (t *Task) Succeed(now time.Time) error {
	if t.Status != TaskRunning {
		return fmt.Errorf("%w: %s -> succeeded", ErrInvalidTransition, t.Status)
	}
	t.Status = TaskSucceeded
	t.FinishedAt = now
	return nil
}

// Fail settles the task as Failed with a reason. Pending tasks may fail too
// (run cancellation settles queued work without running it).
func (t *Task) Fail(now time.Time, reason string) error {
	if t.Status.Terminal() {
		return fmt.Errorf("%w: %s -> failed", ErrInvalidTransition, t.Status)
	}
	t.Status = TaskFailed
	t.Reason = reason
	t.FinishedAt = now
	return nil
}

// Skip settles a pending task without execution.
func (t *Task) Skip(now time.Time, reason string) error {
	if t.Status != TaskPending {
		return fmt.Errorf("%w: %s -> skipped", ErrInvalidTransition, t.Status)
	}
	t.Status = TaskSkipped
	t.Reason = reason
	t.FinishedAt = now
	return nil
}

// Duration returns how long the task ran, zero if it never started.
func (t *Task) Duration() time.Duration {
	if t.StartedAt.IsZero() || t.FinishedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt)
}

func (t *Task) String() string {
	return fmt.Sprintf("Task{%s via %s: %s}", t.Entity, t.ModuleID, t.Status)
}
