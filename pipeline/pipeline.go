// Package pipeline implements the convert operation and the parallel merge
// pipeline on top of the runner, prober, orchestrator and concatenator.
package pipeline

import (
	"context"
	"time"

	"ffmerge/concatenator"
	"ffmerge/ffmpeg"
	"ffmerge/ffprobe"
	"ffmerge/metrics"
	"ffmerge/models"
	"ffmerge/preset"

	"go.uber.org/zap"
)

// Defaults for the merge options.
const (
	DefaultLowFramerateThreshold = 20.0
	DefaultLowFramerateTarget    = "-f mpeg -r 25"
	DefaultTarget                = "-f mpeg"
)

// Prober is the part of *ffprobe.Prober the pipeline uses.
type Prober interface {
	FrameRate(ctx context.Context, file string) (float64, bool, error)
	Metadata(ctx context.Context, file string) (ffprobe.RawMetadata, error)
}

// Options tunes merge behavior.
type Options struct {
	// Workers bounds concurrent transcodes. Zero runs every input at once.
	Workers int
	// WorkerTimeout kills a transcode running longer. Zero disables it.
	WorkerTimeout time.Duration

	PartialFailure concatenator.Policy
	ConcatStrategy concatenator.Strategy

	// Inputs probed below LowFramerateThreshold fps get LowFramerateTarget
	// instead of DefaultTarget.
	LowFramerateThreshold float64
	LowFramerateTarget    string
	DefaultTarget         string

	Verbose bool
}

// DefaultOptions returns the default merge options.
func DefaultOptions() Options {
	return Options{
		PartialFailure:        concatenator.PolicyAbort,
		ConcatStrategy:        concatenator.StrategyStream,
		LowFramerateThreshold: DefaultLowFramerateThreshold,
		LowFramerateTarget:    DefaultLowFramerateTarget,
		DefaultTarget:         DefaultTarget,
	}
}

// Pipeline runs convert and merge operations. It holds no per-call state and
// is safe for concurrent use.
type Pipeline struct {
	runner  ffmpeg.Runner
	ffmpeg  ffprobe.PathResolver
	prober  Prober
	presets *preset.Registry

	opts       Options
	logger     *zap.Logger
	metrics    *metrics.Metrics
	source     SourceFunc
	onProgress models.ProgressCallback
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOptions replaces the merge options.
func WithOptions(o Options) Option {
	return func(p *Pipeline) { p.opts = o }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithRandSource sets the factory for each merge's temp-name source.
func WithRandSource(f SourceFunc) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.source = f
		}
	}
}

// WithProgress sets the merge progress callback.
func WithProgress(cb models.ProgressCallback) Option {
	return func(p *Pipeline) { p.onProgress = cb }
}

// New creates a pipeline. ffmpegPath resolves the transcoder; presets may be
// nil when Convert is never called with a preset.
func New(runner ffmpeg.Runner, ffmpegPath ffprobe.PathResolver, prober Prober, presets *preset.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		runner:  runner,
		ffmpeg:  ffmpegPath,
		prober:  prober,
		presets: presets,
		opts:    DefaultOptions(),
		logger:  zap.NewNop(),
		source:  DefaultSource,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.presets == nil {
		p.presets = preset.NewRegistry()
	}
	return p
}

// Options returns the merge options in effect.
func (p *Pipeline) Options() Options {
	return p.opts
}
