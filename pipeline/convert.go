package pipeline

import (
	"context"
	"errors"
	"fmt"

	"ffmerge/command"
	"ffmerge/ffmpeg"

	"go.uber.org/zap"
)

// ErrConvertFailed is returned when the conversion command fails.
var ErrConvertFailed = errors.New("conversion failed")

// ConvertRequest describes a single-file conversion.
type ConvertRequest struct {
	Input string
	// To is an output path or a bare extension ("mp4") replacing the input's.
	// Empty falls back to the preset's extension.
	To string
	// Preset names a registered preset. Empty means no preset.
	Preset string
	// Overwrite adds -y.
	Overwrite bool
	// Options run after the preset, so they override its defaults.
	Options []func(*command.Builder)
	Verbose bool
}

// ConvertResult describes a finished conversion.
type ConvertResult struct {
	OutputPath  string
	CommandLine string
	Result      ffmpeg.Result
}

// Convert builds and runs one conversion.
//
// The preset is looked up before anything else, so an unknown preset fails
// with preset.ErrNotFound and nothing runs. The returned result is non-nil
// whenever the command was run.
func (p *Pipeline) Convert(ctx context.Context, req ConvertRequest) (*ConvertResult, error) {
	b, err := p.ConvertCommand(req)
	if err != nil {
		return nil, err
	}

	exe, err := p.ffmpeg.Path(ctx)
	if err != nil {
		return nil, err
	}
	line, err := b.Build(exe)
	if err != nil {
		return nil, fmt.Errorf("invalid conversion command: %w", err)
	}

	p.logger.Info("converting",
		zap.String("input", req.Input),
		zap.String("output", b.GetOutputPath()),
		zap.String("preset", req.Preset))

	res := p.runner.Run(ctx, line, req.Verbose || p.opts.Verbose)
	p.metrics.RecordFFmpegOperation(string(command.TaskTypeConvert), res.Success, res.Duration, res.Usage.PeakRSS)

	out := &ConvertResult{OutputPath: b.GetOutputPath(), CommandLine: line, Result: res}
	if !res.Success {
		if ctx.Err() != nil {
			return out, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		return out, fmt.Errorf("%w: %s: %w", ErrConvertFailed, res.Diagnostic(), res.Err)
	}
	return out, nil
}

// ConvertCommand assembles the conversion builder for req without running
// it: preset first, then caller options, then the resolved output.
func (p *Pipeline) ConvertCommand(req ConvertRequest) (*command.Builder, error) {
	if req.Input == "" {
		return nil, errors.New("convert: input is required")
	}

	b := command.NewBuilder(req.Input)
	to := req.To
	if req.Preset != "" {
		ps, err := p.presets.Get(req.Preset)
		if err != nil {
			return nil, err
		}
		ps.Apply(b)
		if to == "" {
			to = ps.Extension
		}
	}

	for _, opt := range req.Options {
		opt(b)
	}
	if req.Overwrite {
		b.Overwrite()
	}
	if err := b.Err(); err != nil {
		return nil, err
	}

	output := command.ResolveOutput(req.Input, to)
	if output == "" {
		return nil, fmt.Errorf("convert %s: %w", req.Input, command.ErrNoOutput)
	}
	if output == req.Input {
		return nil, fmt.Errorf("convert %s: output would overwrite the input", req.Input)
	}
	return b.Output(output), nil
}
