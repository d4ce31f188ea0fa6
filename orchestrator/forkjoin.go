// Package orchestrator runs independent command tasks in parallel and joins
// on all of them.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ffmerge/command"
	"ffmerge/ffmpeg"
	"ffmerge/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrTaskTimeout marks a task killed for exceeding the per-task timeout.
var ErrTaskTimeout = errors.New("task timed out")

// BuildFunc produces a task's command inside its worker, after any
// per-input preparation (such as probing) that should run in parallel.
type BuildFunc func(ctx context.Context) (command.Command, error)

// Task is one worker of a fork-join execution.
type Task struct {
	ID    string
	Index int // position in the caller's input order
	Input string

	// Command is run as-is unless Build is set.
	Command command.Command
	Build   BuildFunc

	Status    models.TaskStatus
	Error     error
	Result    *ffmpeg.Result
	StartTime time.Time
	EndTime   time.Time
}

// Stats counts tasks per status.
type Stats struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
	Cancelled int
}

// ForkJoin starts every task concurrently, bounded by an optional limit, and
// returns only when every task has reached a terminal state.
//
// A failing task never cancels its siblings. Cancelling the context kills
// running tasks and marks unstarted ones cancelled; Execute still waits for
// every process to exit.
type ForkJoin struct {
	runner     ffmpeg.Runner
	executable string
	limit      int
	timeout    time.Duration
	verbose    bool
	logger     *zap.Logger

	mu    sync.Mutex
	tasks []*Task
	byID  map[string]*Task

	progressMu sync.Mutex
	done       int
	onProgress func(completed, total int, task *Task)
}

// Option configures a ForkJoin.
type Option func(*ForkJoin)

// WithLimit bounds the number of concurrently running tasks. Zero or
// negative means unbounded.
func WithLimit(n int) Option {
	return func(o *ForkJoin) { o.limit = n }
}

// WithTaskTimeout kills any task running longer than d. Zero disables it.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *ForkJoin) { o.timeout = d }
}

// WithVerbose passes verbose mode to the runner.
func WithVerbose(v bool) Option {
	return func(o *ForkJoin) { o.verbose = v }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *ForkJoin) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewForkJoin creates an executor running commands with executable.
func NewForkJoin(runner ffmpeg.Runner, executable string, opts ...Option) *ForkJoin {
	o := &ForkJoin{
		runner:     runner,
		executable: executable,
		logger:     zap.NewNop(),
		byID:       make(map[string]*Task),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AddTask adds a task. IDs must be unique.
func (o *ForkJoin) AddTask(task *Task) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if task.Command == nil && task.Build == nil {
		return fmt.Errorf("task %s has neither a command nor a build function", task.ID)
	}
	if _, exists := o.byID[task.ID]; exists {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	task.Status = models.TaskPending
	o.tasks = append(o.tasks, task)
	o.byID[task.ID] = task
	return nil
}

// SetProgressCallback sets a callback invoked, serialized, after each task
// reaches a terminal state.
func (o *ForkJoin) SetProgressCallback(callback func(completed, total int, task *Task)) {
	o.onProgress = callback
}

// Execute runs all tasks and waits for all of them.
//
// Outcomes are returned in the order tasks were added, regardless of
// completion order. The error is ctx.Err() when the context ended before
// every task completed; the outcomes are complete either way.
func (o *ForkJoin) Execute(ctx context.Context) ([]models.TaskOutcome, error) {
	o.mu.Lock()
	tasks := append([]*Task(nil), o.tasks...)
	o.mu.Unlock()

	outcomes := make([]models.TaskOutcome, len(tasks))

	// a plain Group: a failed sibling must not cancel the others
	var g errgroup.Group
	if o.limit > 0 {
		g.SetLimit(o.limit)
	}

	for i, task := range tasks {
		g.Go(func() error {
			outcomes[i] = o.executeTask(ctx, task)
			o.complete(task, len(tasks))
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, ctx.Err()
}

// executeTask runs a single task and converts its result to an outcome.
func (o *ForkJoin) executeTask(ctx context.Context, task *Task) models.TaskOutcome {
	outcome := models.TaskOutcome{TaskID: task.ID, Index: task.Index, InputPath: task.Input}

	if err := ctx.Err(); err != nil {
		return o.finish(task, outcome, models.TaskCancelled, fmt.Errorf("not started: %w", err), nil)
	}

	o.mu.Lock()
	task.Status = models.TaskRunning
	task.StartTime = time.Now()
	o.mu.Unlock()

	taskCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	cmd := task.Command
	if task.Build != nil {
		built, err := task.Build(taskCtx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
				return o.finish(task, outcome, models.TaskFailed,
					fmt.Errorf("%w after %s: failed to build command: %w", ErrTaskTimeout, o.timeout, err), nil)
			}
			return o.finish(task, outcome, o.failureStatus(ctx), fmt.Errorf("failed to build command: %w", err), nil)
		}
		cmd = built
	}

	line := cmd.CommandLine(o.executable)
	o.logger.Debug("task started", zap.String("task", task.ID), zap.String("command", line))

	res := o.runner.Run(taskCtx, line, o.verbose)
	outcome.OutputPath = cmd.GetOutputPath()

	switch {
	case res.Success:
		return o.finish(task, outcome, models.TaskCompleted, nil, &res)
	case ctx.Err() != nil:
		return o.finish(task, outcome, models.TaskCancelled, res.Err, &res)
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded):
		return o.finish(task, outcome, models.TaskFailed,
			fmt.Errorf("%w after %s: %w", ErrTaskTimeout, o.timeout, res.Err), &res)
	default:
		return o.finish(task, outcome, models.TaskFailed, res.Err, &res)
	}
}

func (o *ForkJoin) failureStatus(ctx context.Context) models.TaskStatus {
	if ctx.Err() != nil {
		return models.TaskCancelled
	}
	return models.TaskFailed
}

func (o *ForkJoin) finish(task *Task, outcome models.TaskOutcome, status models.TaskStatus, err error, res *ffmpeg.Result) models.TaskOutcome {
	outcome.Status = status
	outcome.Success = status == models.TaskCompleted
	if !outcome.Success {
		// failed workers have no usable output
		outcome.OutputPath = ""
		if err == nil {
			err = fmt.Errorf("task %s %s", task.ID, status)
		}
		outcome.Error = err
	}
	if res != nil {
		outcome.ExitCode = res.ExitCode
		outcome.Duration = res.Duration
		outcome.PeakRSS = res.Usage.PeakRSS
		if !outcome.Success {
			outcome.Diagnostic = res.Diagnostic()
		}
	}

	o.mu.Lock()
	task.Status = status
	task.Error = outcome.Error
	task.Result = res
	task.EndTime = time.Now()
	o.mu.Unlock()

	if outcome.Success {
		o.logger.Debug("task completed", zap.String("task", task.ID), zap.Duration("duration", outcome.Duration))
	} else {
		o.logger.Warn("task did not complete",
			zap.String("task", task.ID),
			zap.String("status", string(status)),
			zap.String("diagnostic", outcome.Diagnostic),
			zap.Error(outcome.Error))
	}
	return outcome
}

// complete reports progress; progressMu serializes callbacks.
func (o *ForkJoin) complete(task *Task, total int) {
	o.progressMu.Lock()
	defer o.progressMu.Unlock()

	o.done++
	if o.onProgress != nil {
		o.onProgress(o.done, total, task)
	}
}

// GetTaskStatus returns the status of a task.
func (o *ForkJoin) GetTaskStatus(taskID string) (models.TaskStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	task, exists := o.byID[taskID]
	if !exists {
		return models.TaskPending, fmt.Errorf("task %s not found", taskID)
	}
	return task.Status, nil
}

// GetStats returns execution statistics.
func (o *ForkJoin) GetStats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	stats := Stats{Total: len(o.tasks)}
	for _, task := range o.tasks {
		switch task.Status {
		case models.TaskPending:
			stats.Pending++
		case models.TaskRunning:
			stats.Running++
		case models.TaskCompleted:
			stats.Completed++
		case models.TaskFailed:
			stats.Failed++
		case models.TaskCancelled:
			stats.Cancelled++
		}
	}
	return stats
}
