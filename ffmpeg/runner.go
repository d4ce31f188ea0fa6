// Package ffmpeg executes ffmpeg command lines and locates the ffmpeg and
// ffprobe executables.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Result is the outcome of one command line.
type Result struct {
	Success  bool
	Output   string // stdout
	Stderr   string
	ExitCode int // -1 when the process never exited normally
	Err      error
	Duration time.Duration
	Usage    Usage
}

// Diagnostic returns the most relevant stderr line for a failed run.
func (r Result) Diagnostic() string {
	if d := Diagnose(r.Stderr); d != "" {
		return d
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return ""
}

// Runner executes a complete shell command line.
//
// Implementations must not panic or return a Go error for a failing process:
// a non-zero exit or a cancelled context is reported through Result.
type Runner interface {
	Run(ctx context.Context, commandLine string, verbose bool) Result
}

// ShellRunner runs command lines through a POSIX shell so that pipelines
// ("cat a b | ffmpeg -i - ...") and caller-quoted fragments work as written.
// Each run gets its own process group; cancelling ctx kills the whole group.
type ShellRunner struct {
	// Shell defaults to /bin/sh.
	Shell string
	// Tee receives a copy of stderr in verbose mode. Defaults to os.Stderr.
	Tee io.Writer
	// WaitDelay bounds how long Wait blocks on I/O after the group is killed.
	WaitDelay time.Duration
	// SampleInterval controls resource sampling; zero disables it.
	SampleInterval time.Duration

	logger *zap.Logger
}

// NewShellRunner creates a runner logging to logger (nil means no logging).
func NewShellRunner(logger *zap.Logger) *ShellRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShellRunner{
		Shell:          "/bin/sh",
		Tee:            os.Stderr,
		WaitDelay:      5 * time.Second,
		SampleInterval: 250 * time.Millisecond,
		logger:         logger,
	}
}

// Run executes commandLine and waits for it to exit.
func (r *ShellRunner) Run(ctx context.Context, commandLine string, verbose bool) Result {
	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}

	log := r.logger.With(zap.String("command", commandLine))
	if verbose {
		log.Info("running command")
	} else {
		log.Debug("running command")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, shell, "-c", commandLine)
	cmd.Stdout = &stdout
	if verbose && r.Tee != nil {
		cmd.Stderr = io.MultiWriter(&stderr, r.Tee)
	} else {
		cmd.Stderr = &stderr
	}
	cmd.WaitDelay = r.WaitDelay
	setProcessGroup(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		log.Error("failed to start command", zap.Error(err))
		return Result{
			ExitCode: -1,
			Err:      fmt.Errorf("failed to start command: %w", err),
			Duration: time.Since(start),
		}
	}

	sampler := startSampler(cmd.Process.Pid, r.SampleInterval)
	waitErr := cmd.Wait()
	usage := sampler.stop()

	res := Result{
		Output:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(cmd, waitErr),
		Duration: time.Since(start),
		Usage:    usage,
	}

	switch {
	case ctx.Err() != nil:
		res.Err = fmt.Errorf("command interrupted: %w", ctx.Err())
	case waitErr != nil:
		res.Err = fmt.Errorf("command failed with exit code %d: %w", res.ExitCode, waitErr)
	default:
		res.Success = true
	}

	fields := []zap.Field{
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
		zap.Uint64("peak_rss_bytes", res.Usage.PeakRSS),
	}
	switch {
	case res.Success && verbose:
		log.Info("command finished", fields...)
	case res.Success:
		log.Debug("command finished", fields...)
	default:
		log.Warn("command failed", append(fields,
			zap.String("stderr_tail", Diagnose(res.Stderr)),
			zap.Error(res.Err))...)
	}

	return res
}

func exitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}

var _ Runner = (*ShellRunner)(nil)
