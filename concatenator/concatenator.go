// Package concatenator joins transcoded intermediates into the final output.
package concatenator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ffmerge/command"
	"ffmerge/ffmpeg"
	"ffmerge/models"

	"go.uber.org/zap"
)

// ErrConcatFailed is returned when the concatenation command fails.
var ErrConcatFailed = errors.New("concatenation failed")

// Strategy selects how intermediates are fed to ffmpeg.
type Strategy string

const (
	// StrategyStream pipes the MPEG intermediates through cat into ffmpeg's
	// stdin. MPEG program streams can be joined byte-wise.
	StrategyStream Strategy = "stream"
	// StrategyDemuxer writes a list file for ffmpeg's concat demuxer.
	StrategyDemuxer Strategy = "demuxer"
)

// ParseStrategy parses a strategy name. The empty string selects StrategyStream.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyStream:
		return StrategyStream, nil
	case StrategyDemuxer:
		return StrategyDemuxer, nil
	default:
		return "", fmt.Errorf("unknown concat strategy %q (want %s or %s)", s, StrategyStream, StrategyDemuxer)
	}
}

// Target describes the combined output.
type Target struct {
	OutputPath string
	Bitrate    string
	Width      int
	Height     int
}

// Report describes a concatenation attempt.
type Report struct {
	Selection   Selection
	CommandLine string
	Result      ffmpeg.Result
}

// Concatenator applies a partial-failure policy and runs the concat command.
type Concatenator struct {
	runner   ffmpeg.Runner
	policy   Policy
	strategy Strategy
	verbose  bool
	logger   *zap.Logger
}

// NewConcatenator creates a concatenator. A nil logger disables logging.
func NewConcatenator(runner ffmpeg.Runner, policy Policy, strategy Strategy, verbose bool, logger *zap.Logger) *Concatenator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Concatenator{
		runner:   runner,
		policy:   policy,
		strategy: strategy,
		verbose:  verbose,
		logger:   logger,
	}
}

// Concatenate merges the usable worker outputs into target.OutputPath.
//
// The report is returned on every path so callers can surface the selection
// and the failed command's stderr.
func (c *Concatenator) Concatenate(ctx context.Context, executable string, outcomes []models.TaskOutcome, target Target) (*Report, error) {
	report := &Report{}

	sel, err := Select(c.policy, outcomes)
	report.Selection = sel
	if err != nil {
		return report, fmt.Errorf("validation failed: %w", err)
	}
	if len(sel.Failed) > 0 {
		c.logger.Warn("proceeding without failed inputs",
			zap.Ints("skipped", sel.Skipped),
			zap.Int("inputs", len(sel.Inputs)))
	}

	cmd, cleanup, err := c.Command(sel.Inputs, target)
	if err != nil {
		return report, err
	}
	defer cleanup()

	report.CommandLine = cmd.CommandLine(executable)
	report.Result = c.runner.Run(ctx, report.CommandLine, c.verbose)
	if !report.Result.Success {
		return report, fmt.Errorf("%w: %w", ErrConcatFailed, report.Result.Err)
	}

	if _, err := os.Stat(target.OutputPath); err != nil {
		return report, fmt.Errorf("%w: output file not created: %w", ErrConcatFailed, err)
	}
	return report, nil
}

// Command builds the concatenation command for inputs using the configured
// strategy. cleanup removes any file the command needs (the demuxer list)
// and must be called once the command has run.
func (c *Concatenator) Command(inputs []string, target Target) (command.Command, func(), error) {
	switch c.strategy {
	case StrategyDemuxer:
		listPath, err := createConcatFile(filepath.Dir(target.OutputPath), inputs)
		if err != nil {
			return nil, func() {}, fmt.Errorf("failed to create concat file: %w", err)
		}
		return DemuxerCommand(listPath, inputs, target), func() { os.Remove(listPath) }, nil
	default:
		return NewStreamCommand(inputs, target), func() {}, nil
	}
}

// StreamCommand pipes intermediates into ffmpeg:
//
//	{ cat 't1' 't2' || kill 0; } | ffmpeg -y -f mpeg -i - -b:v 500k -s 320x240 'out'
//
// A cat failure kills the runner's process group, so an unreadable
// intermediate fails the run instead of yielding a truncated output.
type StreamCommand struct {
	inputs []string
	ffmpeg *command.Builder
}

// NewStreamCommand builds the stream-strategy command over inputs, in order.
func NewStreamCommand(inputs []string, target Target) *StreamCommand {
	b := command.NewBuilder("-").
		SetTaskType(command.TaskTypeConcat).
		Overwrite().
		InputOption("-f mpeg").
		VideoBitrate(target.Bitrate).
		Size(target.Width, target.Height).
		Output(target.OutputPath)
	return &StreamCommand{inputs: append([]string(nil), inputs...), ffmpeg: b}
}

// CommandLine renders the full pipeline.
func (s *StreamCommand) CommandLine(executable string) string {
	return "{ cat " + command.QuoteAll(s.inputs) + " || kill 0; } | " + s.ffmpeg.CommandLine(executable)
}

// GetTaskType returns TaskTypeConcat.
func (s *StreamCommand) GetTaskType() command.TaskType { return command.TaskTypeConcat }

// GetInputPath returns the first intermediate.
func (s *StreamCommand) GetInputPath() string {
	if len(s.inputs) == 0 {
		return ""
	}
	return s.inputs[0]
}

// GetOutputPath returns the combined output path.
func (s *StreamCommand) GetOutputPath() string { return s.ffmpeg.GetOutputPath() }

// Inputs returns the intermediates in concatenation order.
func (s *StreamCommand) Inputs() []string {
	return append([]string(nil), s.inputs...)
}

// DemuxerCommand builds the demuxer-strategy command reading listPath.
func DemuxerCommand(listPath string, inputs []string, target Target) *command.Builder {
	return command.NewBuilder(listPath).
		SetTaskType(command.TaskTypeConcat).
		Overwrite().
		InputOption("-f concat").
		InputOption("-safe 0").
		VideoBitrate(target.Bitrate).
		Size(target.Width, target.Height).
		Output(target.OutputPath)
}

// createConcatFile writes the concat demuxer list into dir.
// Format: file '/path/to/t1.mpg'
//
//	file '/path/to/t2.mpg'
func createConcatFile(dir string, inputs []string) (string, error) {
	tmpFile, err := os.CreateTemp(dir, "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tmpFile.Close()

	for _, input := range inputs {
		absPath, err := filepath.Abs(input)
		if err != nil {
			os.Remove(tmpFile.Name())
			return "", fmt.Errorf("failed to get absolute path for %s: %w", input, err)
		}

		escapedPath := strings.ReplaceAll(absPath, "'", `'\''`)
		if _, err := fmt.Fprintf(tmpFile, "file '%s'\n", escapedPath); err != nil {
			os.Remove(tmpFile.Name())
			return "", fmt.Errorf("failed to write to concat file: %w", err)
		}
	}

	return tmpFile.Name(), nil
}

var _ command.Command = (*StreamCommand)(nil)
