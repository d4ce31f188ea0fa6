package config

import (
	"time"

	"ffmerge/command"
	"ffmerge/concatenator"
	"ffmerge/ffprobe"
	"ffmerge/pipeline"
)

// Config holds all ffmerge configuration options
type Config struct {
	// Positional arguments: the merge inputs, or the single convert/probe file
	Inputs []string `yaml:"-"`

	// Executable overrides (empty = search PATH)
	FFmpegPath  string `yaml:"ffmpeg_path"`
	FFprobePath string `yaml:"ffprobe_path"`

	// Merge settings
	Merge MergeConfig `yaml:"merge"`

	// Convert settings
	Convert ConvertConfig `yaml:"convert"`

	// Probe settings
	ProbeRetryDelay time.Duration `yaml:"probe_retry_delay"` // wait before the single bitrate retry

	// Logging
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // console, json

	// Metrics endpoint, e.g. ":9090" (empty = disabled)
	MetricsAddr string `yaml:"metrics_addr"`

	// Behavioral flags
	Verbose    bool   `yaml:"verbose"` // Tee ffmpeg stderr and log commands
	DryRun     bool   `yaml:"dry_run"` // Show config without running ffmpeg
	SaveConfig string `yaml:"-"`       // Write the effective config to this path
}

// MergeConfig holds merge pipeline settings
type MergeConfig struct {
	OutputDir string `yaml:"output_dir"`
	Output    string `yaml:"output"` // file name inside OutputDir
	Bitrate   string `yaml:"bitrate"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`

	Workers       int           `yaml:"workers"`        // 0 = one worker per input
	WorkerTimeout time.Duration `yaml:"worker_timeout"` // 0 = no timeout

	PartialFailure string `yaml:"partial_failure"` // abort, proceed
	ConcatStrategy string `yaml:"concat_strategy"` // stream, demuxer

	LowFramerateThreshold float64 `yaml:"low_framerate_threshold"`
	LowFramerateTarget    string  `yaml:"low_framerate_target"`
	DefaultTarget         string  `yaml:"default_target"`
}

// ConvertConfig holds single-file conversion settings
type ConvertConfig struct {
	Preset    string `yaml:"preset"`
	To        string `yaml:"to"` // output path or extension
	Overwrite bool   `yaml:"overwrite"`
	Seek      string `yaml:"seek"`     // e.g. "00:03:00"
	Duration  string `yaml:"duration"` // e.g. "01:10:00"
	Bitrate   string `yaml:"bitrate"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Merge: MergeConfig{
			OutputDir: ".",
			Output:    pipeline.DefaultOutputName,
			Bitrate:   "500k",
			Width:     320,
			Height:    240,

			Workers:       0, // All inputs at once
			WorkerTimeout: 0, // No timeout

			PartialFailure: string(concatenator.PolicyAbort),
			ConcatStrategy: string(concatenator.StrategyStream),

			LowFramerateThreshold: pipeline.DefaultLowFramerateThreshold,
			LowFramerateTarget:    pipeline.DefaultLowFramerateTarget,
			DefaultTarget:         pipeline.DefaultTarget,
		},

		ProbeRetryDelay: ffprobe.DefaultRetryDelay,

		LogLevel:  "info",
		LogFormat: "console",

		Verbose: false,
		DryRun:  false,
	}
}

// Copy creates a deep copy of the config
func (c *Config) Copy() *Config {
	copy := *c
	copy.Inputs = append([]string(nil), c.Inputs...)
	return &copy
}

// PipelineOptions converts the merge settings into pipeline options.
// Call Validate first; unparseable policy or strategy names fall back to
// their defaults.
func (c *Config) PipelineOptions() pipeline.Options {
	policy, err := concatenator.ParsePolicy(c.Merge.PartialFailure)
	if err != nil {
		policy = concatenator.PolicyAbort
	}
	strategy, err := concatenator.ParseStrategy(c.Merge.ConcatStrategy)
	if err != nil {
		strategy = concatenator.StrategyStream
	}

	return pipeline.Options{
		Workers:               c.Merge.Workers,
		WorkerTimeout:         c.Merge.WorkerTimeout,
		PartialFailure:        policy,
		ConcatStrategy:        strategy,
		LowFramerateThreshold: c.Merge.LowFramerateThreshold,
		LowFramerateTarget:    c.Merge.LowFramerateTarget,
		DefaultTarget:         c.Merge.DefaultTarget,
		Verbose:               c.Verbose,
	}
}

// MergeRequest builds the merge request for the configured inputs.
func (c *Config) MergeRequest() pipeline.MergeRequest {
	return pipeline.MergeRequest{
		Inputs:    append([]string(nil), c.Inputs...),
		OutputDir: c.Merge.OutputDir,
		Output:    c.Merge.Output,
		Bitrate:   c.Merge.Bitrate,
		Width:     c.Merge.Width,
		Height:    c.Merge.Height,
	}
}

// ConvertRequest builds the conversion request for the first input. Options
// are applied in the order seek, duration, bitrate, size.
func (c *Config) ConvertRequest() pipeline.ConvertRequest {
	cc := c.Convert
	var opts []func(*command.Builder)
	if cc.Seek != "" {
		opts = append(opts, func(b *command.Builder) { b.Seek(cc.Seek) })
	}
	if cc.Duration != "" {
		opts = append(opts, func(b *command.Builder) { b.Duration(cc.Duration) })
	}
	if cc.Bitrate != "" {
		opts = append(opts, func(b *command.Builder) { b.VideoBitrate(cc.Bitrate) })
	}
	if cc.Width > 0 && cc.Height > 0 {
		opts = append(opts, func(b *command.Builder) { b.Size(cc.Width, cc.Height) })
	}

	req := pipeline.ConvertRequest{
		To:        cc.To,
		Preset:    cc.Preset,
		Overwrite: cc.Overwrite,
		Options:   opts,
		Verbose:   c.Verbose,
	}
	if len(c.Inputs) > 0 {
		req.Input = c.Inputs[0]
	}
	return req
}

// PolicyValues returns valid partial failure policies
func PolicyValues() []string {
	return []string{string(concatenator.PolicyAbort), string(concatenator.PolicyProceed)}
}

// StrategyValues returns valid concat strategies
func StrategyValues() []string {
	return []string{string(concatenator.StrategyStream), string(concatenator.StrategyDemuxer)}
}
