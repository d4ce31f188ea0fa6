package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ffmerge/command"
	"ffmerge/concatenator"
	"ffmerge/ffmpeg"
	"ffmerge/ffprobe"
	"ffmerge/models"
	"ffmerge/orchestrator"

	"github.com/lithammer/shortuuid/v4"
	"go.uber.org/zap"
)

// Stage names used in StageFailure and metrics labels.
const (
	StagePlan      = "plan"
	StageTranscode = string(command.TaskTypeTranscode)
	StageConcat    = string(command.TaskTypeConcat)
	StageProbe     = "probe"
)

// DefaultOutputName is the merged file name when a request names none.
const DefaultOutputName = "merged.mpg"

// MergeRequest describes one merge.
type MergeRequest struct {
	Inputs    []string
	OutputDir string
	// Output is the file name inside OutputDir. Defaults to DefaultOutputName.
	Output  string
	Bitrate string
	Width   int
	Height  int
}

// OutputPath returns where the merged file is written.
func (r MergeRequest) OutputPath() string {
	name := r.Output
	if name == "" {
		name = DefaultOutputName
	}
	return filepath.Join(r.OutputDir, name)
}

// Validate checks the request.
func (r MergeRequest) Validate() error {
	if len(r.Inputs) == 0 {
		return ErrNoInputs
	}

	var errs []error
	out := filepath.Clean(r.OutputPath())
	for i, in := range r.Inputs {
		if in == "" {
			errs = append(errs, fmt.Errorf("input %d is empty", i))
			continue
		}
		if filepath.Clean(in) == out {
			errs = append(errs, fmt.Errorf("input %d is the output file %s", i, out))
		}
	}
	if r.Bitrate == "" {
		errs = append(errs, errors.New("bitrate is required"))
	}
	if r.Width <= 0 || r.Height <= 0 {
		errs = append(errs, fmt.Errorf("dimensions must be positive, got %dx%d", r.Width, r.Height))
	}
	return errors.Join(errs...)
}

// WorkerCommand renders a transcode worker:
//
//	ffmpeg -y -i <in> -b:v <bitrate> -s <W>x<H> <target> <temp>
func WorkerCommand(t *models.MergeTask) *command.Builder {
	return command.NewBuilder(t.InputPath).
		SetTaskType(command.TaskTypeTranscode).
		Overwrite().
		VideoBitrate(t.Bitrate).
		Size(t.Width, t.Height).
		Option(t.Target).
		Output(t.TempOutputPath)
}

// Merge transcodes every input in parallel, joins on all workers,
// concatenates the intermediates in input order and probes the result.
//
// Temp files are removed on every return path. Worker failures never stop
// sibling workers; the configured policy decides whether concatenation runs.
// Failures are reported as *FailedError (errors.Is(err, ErrFailed)),
// cancellation as ErrCancelled, and a missing ffmpeg or ffprobe as
// ffmpeg.ErrToolNotFound.
func (p *Pipeline) Merge(ctx context.Context, req MergeRequest) (result *models.MergeResult, err error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid merge request: %w", err)
	}
	exe, err := p.ffmpeg.Path(ctx)
	if err != nil {
		return nil, err
	}

	id := shortuuid.New()
	m := &merge{
		p:        p,
		req:      req,
		id:       id,
		exe:      exe,
		start:    time.Now(),
		log:      p.logger.With(zap.String("merge_id", id)),
		progress: models.NewMergeProgress(id, len(req.Inputs)),
	}

	p.metrics.RecordMergeStarted()
	defer func() { m.finish(err) }()
	defer m.cleanup()

	m.log.Info("merge started",
		zap.Int("inputs", len(req.Inputs)),
		zap.String("output", req.OutputPath()),
		zap.String("bitrate", req.Bitrate),
		zap.String("size", fmt.Sprintf("%dx%d", req.Width, req.Height)))
	m.emit()

	return m.run(ctx)
}

// merge holds the state of one Merge call.
type merge struct {
	p        *Pipeline
	req      MergeRequest
	id       string
	exe      string
	start    time.Time
	log      *zap.Logger
	temps    []string
	skipped  []int
	progress *models.MergeProgress
}

func (m *merge) run(ctx context.Context) (*models.MergeResult, error) {
	tasks, err := m.plan()
	if err != nil {
		return nil, &FailedError{
			ID:     m.id,
			Stages: []models.StageFailure{{Stage: StagePlan, Index: -1, Err: err}},
		}
	}

	outcomes, err := m.transcode(ctx, tasks)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, m.cancelled(ctx)
	}

	output := m.req.OutputPath()
	if err := m.concatenate(ctx, outcomes, output); err != nil {
		return nil, err
	}

	m.progress.Transition(models.ProgressStateProbing)
	m.emit()

	raw, err := m.p.prober.Metadata(ctx, output)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, m.cancelled(ctx)
		case errors.Is(err, ffmpeg.ErrToolNotFound):
			return nil, err
		}
		m.log.Warn("merged output written but probe failed", zap.String("output", output), zap.Error(err))
		return nil, &FailedError{
			ID:     m.id,
			Stages: []models.StageFailure{{Stage: StageProbe, Index: -1, Input: output, Err: err}},
		}
	}

	return &models.MergeResult{
		ID:          m.id,
		OutputPath:  output,
		Metadata:    ffprobe.NewRecord(raw),
		RawMetadata: raw,
		Outcomes:    outcomes,
		Skipped:     m.skipped,
		Duration:    time.Since(m.start),
	}, nil
}

// plan reserves one temp path per input, next to the input.
func (m *merge) plan() ([]*models.MergeTask, error) {
	if dir := m.req.OutputDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	namer := NewTempNamer(m.p.source())
	tasks := make([]*models.MergeTask, 0, len(m.req.Inputs))
	for i, in := range m.req.Inputs {
		temp, err := namer.Reserve(filepath.Dir(in))
		if err != nil {
			return nil, err
		}
		m.temps = append(m.temps, temp)
		m.p.metrics.RecordTempFiles(1)

		t, err := models.NewMergeTask(i, in, temp, m.req.Bitrate, m.req.Width, m.req.Height)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	m.log.Debug("temp files reserved", zap.Strings("temps", m.temps))
	return tasks, nil
}

// transcode runs every worker and waits for all of them. The error is
// reserved for a missing executable; worker failures are in the outcomes.
func (m *merge) transcode(ctx context.Context, tasks []*models.MergeTask) ([]models.TaskOutcome, error) {
	opts := m.p.opts
	fj := orchestrator.NewForkJoin(m.p.runner, m.exe,
		orchestrator.WithLimit(opts.Workers),
		orchestrator.WithTaskTimeout(opts.WorkerTimeout),
		orchestrator.WithVerbose(opts.Verbose),
		orchestrator.WithLogger(m.log))

	fj.SetProgressCallback(func(completed, total int, task *orchestrator.Task) {
		m.progress.Advance(models.TaskOutcome{
			TaskID:    task.ID,
			Index:     task.Index,
			InputPath: task.Input,
			Status:    task.Status,
			Success:   task.Status == models.TaskCompleted,
			Error:     task.Error,
		})
		m.emit()
	})

	for _, t := range tasks {
		err := fj.AddTask(&orchestrator.Task{
			ID:    t.ID(),
			Index: t.Index,
			Input: t.InputPath,
			Build: func(ctx context.Context) (command.Command, error) {
				b, err := m.p.workerCommand(ctx, t)
				if err != nil {
					return nil, err
				}
				return b, nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add task: %w", err)
		}
	}

	m.progress.Transition(models.ProgressStateTranscoding)
	m.emit()

	outcomes, _ := fj.Execute(ctx)

	for _, o := range outcomes {
		if o.Duration > 0 {
			m.p.metrics.RecordFFmpegOperation(StageTranscode, o.Success, o.Duration, o.PeakRSS)
		}
	}
	for _, o := range outcomes {
		if errors.Is(o.Error, ffmpeg.ErrToolNotFound) {
			return nil, o.Error
		}
	}

	stats := fj.GetStats()
	m.log.Info("transcode finished",
		zap.Int("completed", stats.Completed),
		zap.Int("failed", stats.Failed),
		zap.Int("cancelled", stats.Cancelled))
	return outcomes, nil
}

// workerCommand probes the input's frame rate and builds its transcode.
// An absent frame rate takes the default target.
func (p *Pipeline) workerCommand(ctx context.Context, t *models.MergeTask) (*command.Builder, error) {
	t.Target = p.opts.DefaultTarget

	fps, ok, err := p.prober.FrameRate(ctx, t.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to probe frame rate of %s: %w", t.InputPath, err)
	}
	if ok {
		t.FrameRate = fps
		if fps < p.opts.LowFramerateThreshold {
			t.LowFramerate = true
			t.Target = p.opts.LowFramerateTarget
		}
	}
	return WorkerCommand(t), nil
}

func (m *merge) concatenate(ctx context.Context, outcomes []models.TaskOutcome, output string) error {
	m.progress.Transition(models.ProgressStateConcat)
	m.emit()

	opts := m.p.opts
	conc := concatenator.NewConcatenator(m.p.runner, opts.PartialFailure, opts.ConcatStrategy, opts.Verbose, m.log)
	report, err := conc.Concatenate(ctx, m.exe, outcomes, concatenator.Target{
		OutputPath: output,
		Bitrate:    m.req.Bitrate,
		Width:      m.req.Width,
		Height:     m.req.Height,
	})
	ran := report.CommandLine != ""
	if ran {
		res := report.Result
		m.p.metrics.RecordFFmpegOperation(StageConcat, res.Success, res.Duration, res.Usage.PeakRSS)
	}
	if err == nil {
		m.skipped = report.Selection.Skipped
		return nil
	}

	if ran {
		// no partial output survives a failed concatenation
		if rmErr := os.Remove(output); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			m.log.Warn("failed to remove partial output", zap.String("output", output), zap.Error(rmErr))
		}
	}
	if ctx.Err() != nil {
		return m.cancelled(ctx)
	}

	fe := &FailedError{ID: m.id}
	for _, o := range report.Selection.Failed {
		fe.Stages = append(fe.Stages, models.StageFailureFrom(StageTranscode, o))
	}
	if errors.Is(err, concatenator.ErrConcatFailed) {
		fe.Stages = append(fe.Stages, models.StageFailure{
			Stage:      StageConcat,
			Index:      -1,
			Input:      output,
			ExitCode:   report.Result.ExitCode,
			Diagnostic: report.Result.Diagnostic(),
			Err:        err,
		})
	} else {
		fe.Cause = err
	}
	return fe
}

func (m *merge) cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
}

// cleanup removes every reserved temp file.
func (m *merge) cleanup() {
	if len(m.temps) == 0 {
		return
	}
	removed, err := removeAll(m.temps)
	m.p.metrics.RecordTempFiles(-len(m.temps))
	if err != nil {
		m.log.Error("failed to remove temp files", zap.Error(err))
		return
	}
	m.log.Debug("temp files removed", zap.Int("removed", removed))
}

func (m *merge) finish(err error) {
	status := "success"
	state := models.ProgressStateCompleted
	switch {
	case errors.Is(err, ErrCancelled):
		status, state = "cancelled", models.ProgressStateCancelled
	case err != nil:
		status, state = "failed", models.ProgressStateFailed
	}

	elapsed := time.Since(m.start)
	m.p.metrics.RecordMergeCompleted(status, elapsed, len(m.skipped))
	m.progress.Transition(state)
	m.emit()

	if err != nil {
		m.log.Warn("merge did not complete", zap.String("status", status), zap.Duration("elapsed", elapsed), zap.Error(err))
		return
	}
	m.log.Info("merge completed",
		zap.String("output", m.req.OutputPath()),
		zap.Ints("skipped", m.skipped),
		zap.Duration("elapsed", elapsed))
}

func (m *merge) emit() {
	if m.p.onProgress != nil {
		m.p.onProgress(*m.progress)
	}
}
