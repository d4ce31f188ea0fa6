package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ffmerge/command"
	"ffmerge/concatenator"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Merge.Bitrate != "500k" {
		t.Errorf("Expected bitrate '500k', got %s", cfg.Merge.Bitrate)
	}
	if cfg.Merge.Width != 320 || cfg.Merge.Height != 240 {
		t.Errorf("Expected 320x240, got %dx%d", cfg.Merge.Width, cfg.Merge.Height)
	}
	if cfg.Merge.Output != "merged.mpg" {
		t.Errorf("Expected output 'merged.mpg', got %s", cfg.Merge.Output)
	}
	if cfg.Merge.Workers != 0 {
		t.Errorf("Expected workers 0 (one per input), got %d", cfg.Merge.Workers)
	}
	if cfg.Merge.PartialFailure != "abort" {
		t.Errorf("Expected partial failure 'abort', got %s", cfg.Merge.PartialFailure)
	}
	if cfg.Merge.LowFramerateThreshold != 20 {
		t.Errorf("Expected low framerate threshold 20, got %g", cfg.Merge.LowFramerateThreshold)
	}
	if cfg.Merge.LowFramerateTarget != "-f mpeg -r 25" {
		t.Errorf("Expected low framerate target '-f mpeg -r 25', got %s", cfg.Merge.LowFramerateTarget)
	}
	if cfg.ProbeRetryDelay != 5*time.Second {
		t.Errorf("Expected probe retry delay 5s, got %s", cfg.ProbeRetryDelay)
	}
	if cfg.DryRun || cfg.Verbose {
		t.Error("Expected dry run and verbose to be off")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		cmd         string
		config      func() *Config
		expectError bool
		errorText   string
	}{
		{
			name: "valid merge",
			cmd:  CommandMerge,
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Inputs = []string{createTempFile(t), createTempFile(t)}
				return cfg
			},
		},
		{
			name: "merge without inputs",
			cmd:  CommandMerge,
			config: func() *Config {
				return DefaultConfig()
			},
			expectError: true,
			errorText:   "at least one input file is required",
		},
		{
			name: "merge with missing input",
			cmd:  CommandMerge,
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Inputs = []string{"/nonexistent/a.mp4"}
				return cfg
			},
			expectError: true,
			errorText:   "input file does not exist: /nonexistent/a.mp4",
		},
		{
			name: "merge with bad policy",
			cmd:  CommandMerge,
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Inputs = []string{createTempFile(t)}
				cfg.Merge.PartialFailure = "ignore"
				return cfg
			},
			expectError: true,
			errorText:   "invalid partial failure policy 'ignore'",
		},
		{
			name: "valid convert with preset",
			cmd:  CommandConvert,
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Inputs = []string{createTempFile(t)}
				cfg.Convert.Preset = "mp4"
				return cfg
			},
		},
		{
			name: "convert without target",
			cmd:  CommandConvert,
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Inputs = []string{createTempFile(t)}
				return cfg
			},
			expectError: true,
			errorText:   "convert needs -to or -preset",
		},
		{
			name: "convert with two inputs",
			cmd:  CommandConvert,
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.Inputs = []string{createTempFile(t), createTempFile(t)}
				cfg.Convert.To = "mp4"
				return cfg
			},
			expectError: true,
			errorText:   "convert takes exactly one input file, got 2",
		},
		{
			name: "probe without files",
			cmd:  CommandProbe,
			config: func() *Config {
				return DefaultConfig()
			},
			expectError: true,
			errorText:   "at least one file to probe is required",
		},
		{
			name: "presets needs nothing",
			cmd:  CommandPresets,
			config: func() *Config {
				return DefaultConfig()
			},
		},
		{
			name: "unknown command",
			cmd:  "split",
			config: func() *Config {
				return DefaultConfig()
			},
			expectError: true,
			errorText:   "unknown command 'split'",
		},
		{
			name: "invalid log level",
			cmd:  CommandPresets,
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.LogLevel = "loud"
				return cfg
			},
			expectError: true,
			errorText:   "invalid log level 'loud'",
		},
		{
			name: "negative retry delay",
			cmd:  CommandPresets,
			config: func() *Config {
				cfg := DefaultConfig()
				cfg.ProbeRetryDelay = -time.Second
				return cfg
			},
			expectError: true,
			errorText:   "probe retry delay cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config().Validate(tt.cmd)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error containing '%s', got nil", tt.errorText)
				} else if !strings.Contains(err.Error(), tt.errorText) {
					t.Errorf("Expected error containing '%s', got '%s'", tt.errorText, err.Error())
				}
			} else if err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestMergeConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*MergeConfig)
		expectError bool
	}{
		{"defaults", func(mc *MergeConfig) {}, false},
		{"megabit bitrate", func(mc *MergeConfig) { mc.Bitrate = "2M" }, false},
		{"plain bitrate", func(mc *MergeConfig) { mc.Bitrate = "500000" }, false},
		{"empty bitrate", func(mc *MergeConfig) { mc.Bitrate = "" }, true},
		{"garbage bitrate", func(mc *MergeConfig) { mc.Bitrate = "fast" }, true},
		{"double suffix", func(mc *MergeConfig) { mc.Bitrate = "5kk" }, true},
		{"zero width", func(mc *MergeConfig) { mc.Width = 0 }, true},
		{"negative workers", func(mc *MergeConfig) { mc.Workers = -1 }, true},
		{"negative timeout", func(mc *MergeConfig) { mc.WorkerTimeout = -time.Second }, true},
		{"proceed policy", func(mc *MergeConfig) { mc.PartialFailure = "proceed" }, false},
		{"demuxer strategy", func(mc *MergeConfig) { mc.ConcatStrategy = "demuxer" }, false},
		{"bad strategy", func(mc *MergeConfig) { mc.ConcatStrategy = "zip" }, true},
		{"empty output", func(mc *MergeConfig) { mc.Output = "" }, true},
		{"empty default target", func(mc *MergeConfig) { mc.DefaultTarget = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := DefaultConfig().Merge
			tt.mutate(&mc)
			err := mc.Validate()
			if (err != nil) != tt.expectError {
				t.Errorf("Validate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestConvertConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		config      ConvertConfig
		expectError bool
	}{
		{"empty", ConvertConfig{}, false},
		{"size", ConvertConfig{Width: 640, Height: 360}, false},
		{"width only", ConvertConfig{Width: 640}, true},
		{"negative", ConvertConfig{Width: -1, Height: -1}, true},
		{"bitrate", ConvertConfig{Bitrate: "1M"}, false},
		{"bad bitrate", ConvertConfig{Bitrate: "1 M"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.expectError {
				t.Errorf("Validate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestConfigCopy(t *testing.T) {
	original := DefaultConfig()
	original.Inputs = []string{"a.mp4", "b.mp4"}
	original.Merge.Workers = 4

	copy := original.Copy()
	copy.Inputs[0] = "changed.mp4"
	copy.Merge.Workers = 8

	if original.Inputs[0] != "a.mp4" {
		t.Error("Modifying copy inputs affected original")
	}
	if original.Merge.Workers != 4 {
		t.Error("Modifying copy affected original")
	}
}

func TestPipelineOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge.Workers = 3
	cfg.Merge.WorkerTimeout = time.Minute
	cfg.Merge.PartialFailure = "proceed"
	cfg.Merge.ConcatStrategy = "demuxer"
	cfg.Verbose = true

	opts := cfg.PipelineOptions()
	if opts.Workers != 3 || opts.WorkerTimeout != time.Minute {
		t.Errorf("Unexpected worker settings: %d, %s", opts.Workers, opts.WorkerTimeout)
	}
	if opts.PartialFailure != concatenator.PolicyProceed {
		t.Errorf("Expected proceed policy, got %s", opts.PartialFailure)
	}
	if opts.ConcatStrategy != concatenator.StrategyDemuxer {
		t.Errorf("Expected demuxer strategy, got %s", opts.ConcatStrategy)
	}
	if !opts.Verbose {
		t.Error("Expected verbose to carry over")
	}
	if opts.LowFramerateTarget != "-f mpeg -r 25" || opts.DefaultTarget != "-f mpeg" {
		t.Errorf("Unexpected targets: %q, %q", opts.LowFramerateTarget, opts.DefaultTarget)
	}
}

func TestMergeRequest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Inputs = []string{"a.mp4", "b.mp4"}
	cfg.Merge.OutputDir = "/videos"

	req := cfg.MergeRequest()
	if req.OutputPath() != filepath.Join("/videos", "merged.mpg") {
		t.Errorf("Unexpected output path %s", req.OutputPath())
	}
	if len(req.Inputs) != 2 || req.Bitrate != "500k" || req.Width != 320 || req.Height != 240 {
		t.Errorf("Unexpected request: %+v", req)
	}

	req.Inputs[0] = "changed.mp4"
	if cfg.Inputs[0] != "a.mp4" {
		t.Error("Request shares the inputs slice with the config")
	}
}

func TestConvertRequest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Inputs = []string{"clip.avi"}
	cfg.Convert = ConvertConfig{
		To:       "mp4",
		Seek:     "00:00:10",
		Duration: "00:00:05",
		Bitrate:  "1M",
		Width:    640,
		Height:   360,
	}

	req := cfg.ConvertRequest()
	if req.Input != "clip.avi" || req.To != "mp4" {
		t.Errorf("Unexpected request: %+v", req)
	}

	b := command.NewBuilder(req.Input)
	for _, opt := range req.Options {
		opt(b)
	}
	b.Output("clip.mp4")

	want := "ffmpeg -i 'clip.avi' -ss 00:00:10 -t 00:00:05 -b:v 1M -s 640x360 'clip.mp4'"
	if got := b.CommandLine("ffmpeg"); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func createTempFile(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "input-*.mp4")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	f.Close()
	return f.Name()
}
