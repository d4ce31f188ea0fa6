package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"ffmerge/internal/logging"
)

// Subcommands accepted by Validate.
const (
	CommandMerge   = "merge"
	CommandConvert = "convert"
	CommandProbe   = "probe"
	CommandPresets = "presets"
)

// Validate checks if the configuration is valid for the given subcommand
func (c *Config) Validate(cmd string) error {
	var errors []string

	switch cmd {
	case CommandMerge:
		if len(c.Inputs) == 0 {
			errors = append(errors, "at least one input file is required")
		}
		errors = append(errors, missingInputs(c.Inputs)...)
		if err := c.Merge.Validate(); err != nil {
			errors = append(errors, fmt.Sprintf("merge config: %v", err))
		}
	case CommandConvert:
		if len(c.Inputs) != 1 {
			errors = append(errors, fmt.Sprintf("convert takes exactly one input file, got %d", len(c.Inputs)))
		}
		errors = append(errors, missingInputs(c.Inputs)...)
		if c.Convert.To == "" && c.Convert.Preset == "" {
			errors = append(errors, "convert needs -to or -preset to name the output")
		}
		if err := c.Convert.Validate(); err != nil {
			errors = append(errors, fmt.Sprintf("convert config: %v", err))
		}
	case CommandProbe:
		if len(c.Inputs) == 0 {
			errors = append(errors, "at least one file to probe is required")
		}
		errors = append(errors, missingInputs(c.Inputs)...)
	case CommandPresets:
	default:
		errors = append(errors, fmt.Sprintf("unknown command '%s', must be one of: %s",
			cmd, strings.Join(CommandValues(), ", ")))
	}

	if c.ProbeRetryDelay < 0 {
		errors = append(errors, "probe retry delay cannot be negative")
	}
	if !logging.ValidLevel(c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s', must be console or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Validate checks if merge configuration is valid
func (mc *MergeConfig) Validate() error {
	var errors []string

	if mc.Output == "" {
		errors = append(errors, "output name is required")
	}
	if mc.Bitrate == "" {
		errors = append(errors, "bitrate is required")
	} else if !isValidBitrate(mc.Bitrate) {
		errors = append(errors, fmt.Sprintf("bitrate '%s' must look like 500k or 2M", mc.Bitrate))
	}
	if mc.Width <= 0 || mc.Height <= 0 {
		errors = append(errors, "width and height must be positive")
	}

	// Workers: 0 is valid, means one per input
	if mc.Workers < 0 {
		errors = append(errors, "workers cannot be negative (use 0 for one per input)")
	}
	if mc.WorkerTimeout < 0 {
		errors = append(errors, "worker timeout cannot be negative (use 0 for none)")
	}

	if !slices.Contains(PolicyValues(), mc.PartialFailure) {
		errors = append(errors, fmt.Sprintf("invalid partial failure policy '%s', must be one of: %s",
			mc.PartialFailure, strings.Join(PolicyValues(), ", ")))
	}
	if !slices.Contains(StrategyValues(), mc.ConcatStrategy) {
		errors = append(errors, fmt.Sprintf("invalid concat strategy '%s', must be one of: %s",
			mc.ConcatStrategy, strings.Join(StrategyValues(), ", ")))
	}

	if mc.LowFramerateThreshold < 0 {
		errors = append(errors, "low framerate threshold cannot be negative")
	}
	if mc.DefaultTarget == "" {
		errors = append(errors, "default target is required")
	}
	if mc.LowFramerateTarget == "" {
		errors = append(errors, "low framerate target is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}

// Validate checks if convert configuration is valid
func (cc *ConvertConfig) Validate() error {
	var errors []string

	if cc.Bitrate != "" && !isValidBitrate(cc.Bitrate) {
		errors = append(errors, fmt.Sprintf("bitrate '%s' must look like 500k or 2M", cc.Bitrate))
	}
	if cc.Width < 0 || cc.Height < 0 {
		errors = append(errors, "width and height cannot be negative")
	}
	if (cc.Width > 0) != (cc.Height > 0) {
		errors = append(errors, "width and height must be given together")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, ", "))
	}

	return nil
}

// CommandValues returns valid subcommands
func CommandValues() []string {
	return []string{CommandMerge, CommandConvert, CommandProbe, CommandPresets}
}

func missingInputs(inputs []string) []string {
	var errors []string
	for _, in := range inputs {
		if _, err := os.Stat(in); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("input file does not exist: %s", in))
		}
	}
	return errors
}

// isValidBitrate checks if bitrate is digits with an optional k/K/m/M suffix
func isValidBitrate(bitrate string) bool {
	digits := strings.TrimRight(bitrate, "kKmM")
	if len(bitrate)-len(digits) > 1 || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
