package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether no further transition can happen.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// TaskOutcome is the result of one worker, reported across the join barrier.
//
// Successful outcomes have an output path and no error; failed and cancelled
// outcomes carry the error and the stderr line that explains it.
//
// Use NewTaskOutcomeSuccess or NewTaskOutcomeFailure to create validated instances.
type TaskOutcome struct {
	TaskID     string        `json:"task_id"`
	Index      int           `json:"index"`
	InputPath  string        `json:"input_path,omitempty"`
	OutputPath string        `json:"output_path,omitempty"`
	Status     TaskStatus    `json:"status"`
	Success    bool          `json:"success"`
	ExitCode   int           `json:"exit_code"`
	Diagnostic string        `json:"diagnostic,omitempty"`
	Duration   time.Duration `json:"duration"`
	PeakRSS    uint64        `json:"peak_rss_bytes,omitempty"`
	Error      error         `json:"-"`
}

// NewTaskOutcomeSuccess creates a completed outcome with validation.
//
// Returns an error if outputPath is empty or whitespace-only.
func NewTaskOutcomeSuccess(taskID string, index int, outputPath string) (*TaskOutcome, error) {
	o := &TaskOutcome{
		TaskID:     taskID,
		Index:      index,
		OutputPath: outputPath,
		Status:     TaskCompleted,
		Success:    true,
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task outcome: %w", err)
	}
	return o, nil
}

// NewTaskOutcomeFailure creates a failed outcome. The error must not be nil.
func NewTaskOutcomeFailure(taskID string, index int, taskErr error) (*TaskOutcome, error) {
	if taskErr == nil {
		return nil, fmt.Errorf("invalid task outcome: error cannot be nil for failed outcome")
	}
	return &TaskOutcome{
		TaskID: taskID,
		Index:  index,
		Status: TaskFailed,
		Error:  taskErr,
	}, nil
}

// Validate checks if the TaskOutcome has consistent state.
//
// Returns an error if:
//   - Success disagrees with Status
//   - Success is true but Error is set or OutputPath is empty
//   - Success is false but Error is nil
func (o *TaskOutcome) Validate() error {
	if o.Success != (o.Status == TaskCompleted) {
		return fmt.Errorf("inconsistent state: Success is %v but Status is %s", o.Success, o.Status)
	}

	if o.Success && o.Error != nil {
		return fmt.Errorf("inconsistent state: Success is true but Error is not nil")
	}

	if !o.Success && o.Error == nil {
		return fmt.Errorf("failed outcome must have an error")
	}

	if o.Success && strings.TrimSpace(o.OutputPath) == "" {
		return fmt.Errorf("output_path cannot be empty for successful outcome")
	}

	return nil
}
