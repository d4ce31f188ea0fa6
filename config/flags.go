package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// MergeFromFlags parses the flags of a subcommand and overrides config
// values. Flag defaults are the current values, so only flags given on the
// command line change anything. Remaining positional arguments become Inputs.
func (c *Config) MergeFromFlags(cmd string, args []string) error {
	fs := flag.NewFlagSet("ffmerge "+cmd, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() { printUsage(fs, cmd) }

	// Config file override (handled by Load before this function is called)
	_ = fs.String("config", "", "Path to config file (default: search standard locations)")

	fs.StringVar(&c.FFmpegPath, "ffmpeg", c.FFmpegPath, "Path to the ffmpeg executable (default: search PATH)")
	fs.StringVar(&c.FFprobePath, "ffprobe", c.FFprobePath, "Path to the ffprobe executable (default: next to ffmpeg, then PATH)")
	fs.DurationVar(&c.ProbeRetryDelay, "probe-retry-delay", c.ProbeRetryDelay, "Wait before retrying a bitrate probe")

	switch cmd {
	case CommandMerge:
		mc := &c.Merge
		fs.StringVar(&mc.OutputDir, "output-dir", mc.OutputDir, "Directory for the merged file")
		fs.StringVar(&mc.Output, "output", mc.Output, "Merged file name")
		fs.StringVar(&mc.Bitrate, "bitrate", mc.Bitrate, "Video bitrate, e.g. 500k")
		fs.IntVar(&mc.Width, "width", mc.Width, "Output width")
		fs.IntVar(&mc.Height, "height", mc.Height, "Output height")
		fs.IntVar(&mc.Workers, "workers", mc.Workers, "Parallel transcodes (0 = one per input)")
		fs.DurationVar(&mc.WorkerTimeout, "worker-timeout", mc.WorkerTimeout, "Per-input transcode timeout (0 = none)")
		fs.StringVar(&mc.PartialFailure, "partial-failure", mc.PartialFailure,
			"On failed inputs: "+strings.Join(PolicyValues(), ", "))
		fs.StringVar(&mc.ConcatStrategy, "concat-strategy", mc.ConcatStrategy,
			"Concatenation: "+strings.Join(StrategyValues(), ", "))
		fs.Float64Var(&mc.LowFramerateThreshold, "low-framerate-threshold", mc.LowFramerateThreshold,
			"Inputs below this frame rate use the low framerate target")
		fs.StringVar(&mc.LowFramerateTarget, "low-framerate-target", mc.LowFramerateTarget, "Target options for low frame rate inputs")
		fs.StringVar(&mc.DefaultTarget, "default-target", mc.DefaultTarget, "Target options for all other inputs")
	case CommandConvert:
		cc := &c.Convert
		fs.StringVar(&cc.Preset, "preset", cc.Preset, "Named preset, see 'ffmerge presets'")
		fs.StringVar(&cc.To, "to", cc.To, "Output path or extension")
		fs.BoolVar(&cc.Overwrite, "overwrite", cc.Overwrite, "Overwrite an existing output")
		fs.StringVar(&cc.Seek, "seek", cc.Seek, "Start offset, e.g. 00:03:00")
		fs.StringVar(&cc.Duration, "duration", cc.Duration, "Length to convert, e.g. 00:01:00")
		fs.StringVar(&cc.Bitrate, "bitrate", cc.Bitrate, "Video bitrate, e.g. 1M")
		fs.IntVar(&cc.Width, "width", cc.Width, "Output width (with -height)")
		fs.IntVar(&cc.Height, "height", cc.Height, "Output height (with -width)")
	}

	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "Log format: console, json")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Serve Prometheus metrics on this address, e.g. :9090")
	fs.BoolVar(&c.Verbose, "verbose", c.Verbose, "Log commands and show ffmpeg output")
	fs.BoolVar(&c.DryRun, "dry-run", c.DryRun, "Show configuration without running ffmpeg")
	fs.StringVar(&c.SaveConfig, "save-config", c.SaveConfig, "Write the effective configuration to this YAML file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if rest := fs.Args(); len(rest) > 0 {
		c.Inputs = append([]string(nil), rest...)
	}

	return nil
}

// printUsage prints help text for a subcommand
func printUsage(fs *flag.FlagSet, cmd string) {
	w := fs.Output()
	switch cmd {
	case CommandMerge:
		fmt.Fprint(w, `ffmerge merge - Transcode inputs in parallel and join them into one MPEG file

USAGE:
  ffmerge merge [OPTIONS] INPUT...

`)
	case CommandConvert:
		fmt.Fprint(w, `ffmerge convert - Convert a single file, optionally with a preset

USAGE:
  ffmerge convert [OPTIONS] INPUT

`)
	case CommandProbe:
		fmt.Fprint(w, `ffmerge probe - Print metadata and bitrate of media files

USAGE:
  ffmerge probe [OPTIONS] FILE...

`)
	default:
		fmt.Fprintf(w, "USAGE:\n  ffmerge %s [OPTIONS]\n\n", cmd)
	}

	fmt.Fprintln(w, "OPTIONS:")
	fs.PrintDefaults()
	fmt.Fprint(w, `
CONFIGURATION FILES:
  Config files are searched in order:
    1. ./ffmerge.yaml
    2. ~/.ffmerge/config.yaml
    3. /etc/ffmerge/config.yaml

  Priority: CLI flags > FFMERGE_* environment (and .env) > Config file > Defaults
`)
}

// Usage prints the top-level help text
func Usage(w io.Writer) {
	fmt.Fprint(w, `ffmerge - Parallel video merging on top of ffmpeg

USAGE:
  ffmerge COMMAND [OPTIONS] [FILES...]

COMMANDS:
  merge     Transcode inputs in parallel and join them into one MPEG file
  convert   Convert a single file, optionally with a preset
  probe     Print metadata and bitrate of media files
  presets   List the available conversion presets

Run 'ffmerge COMMAND -h' for command options.

EXAMPLES:
  # Merge three clips into ./merged.mpg
  ffmerge merge a.mp4 b.mp4 c.mp4

  # Keep going when an input fails, four transcodes at a time
  ffmerge merge -partial-failure proceed -workers 4 *.mp4

  # Convert with a preset
  ffmerge convert -preset mp4 holiday.avi

  # Show effective configuration
  ffmerge merge -dry-run a.mp4 b.mp4

  # Keep the current settings for next time
  ffmerge merge -dry-run -save-config ~/.ffmerge/config.yaml a.mp4
`)
}

// PrintConfig prints the effective configuration
func (c *Config) PrintConfig(w io.Writer, cmd string) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w, "                 Effective Configuration                  ")
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "Command:        %s\n", cmd)
	fmt.Fprintf(w, "Inputs:         %s\n", strings.Join(c.Inputs, ", "))
	fmt.Fprintf(w, "FFmpeg:         %s\n", orDefault(c.FFmpegPath, "ffmpeg (PATH)"))
	fmt.Fprintf(w, "FFprobe:        %s\n", orDefault(c.FFprobePath, "ffprobe (next to ffmpeg)"))

	switch cmd {
	case CommandMerge:
		mc := c.Merge
		fmt.Fprintln(w, "\nMerge Settings:")
		fmt.Fprintf(w, "  Output:          %s\n", c.MergeRequest().OutputPath())
		fmt.Fprintf(w, "  Bitrate:         %s\n", mc.Bitrate)
		fmt.Fprintf(w, "  Size:            %dx%d\n", mc.Width, mc.Height)
		if mc.Workers == 0 {
			fmt.Fprintf(w, "  Workers:         one per input\n")
		} else {
			fmt.Fprintf(w, "  Workers:         %d\n", mc.Workers)
		}
		if mc.WorkerTimeout > 0 {
			fmt.Fprintf(w, "  Worker Timeout:  %s\n", mc.WorkerTimeout)
		}
		fmt.Fprintf(w, "  Partial Failure: %s\n", mc.PartialFailure)
		fmt.Fprintf(w, "  Concat Strategy: %s\n", mc.ConcatStrategy)
		fmt.Fprintf(w, "  Low Framerate:   < %g fps -> %s\n", mc.LowFramerateThreshold, mc.LowFramerateTarget)
		fmt.Fprintf(w, "  Default Target:  %s\n", mc.DefaultTarget)
	case CommandConvert:
		cc := c.Convert
		fmt.Fprintln(w, "\nConvert Settings:")
		fmt.Fprintf(w, "  Preset:          %s\n", orDefault(cc.Preset, "none"))
		fmt.Fprintf(w, "  To:              %s\n", orDefault(cc.To, "preset extension"))
		fmt.Fprintf(w, "  Overwrite:       %v\n", cc.Overwrite)
		if cc.Seek != "" {
			fmt.Fprintf(w, "  Seek:            %s\n", cc.Seek)
		}
		if cc.Duration != "" {
			fmt.Fprintf(w, "  Duration:        %s\n", cc.Duration)
		}
		if cc.Bitrate != "" {
			fmt.Fprintf(w, "  Bitrate:         %s\n", cc.Bitrate)
		}
		if cc.Width > 0 {
			fmt.Fprintf(w, "  Size:            %dx%d\n", cc.Width, cc.Height)
		}
	}

	fmt.Fprintln(w, "\nBehavioral Flags:")
	fmt.Fprintf(w, "  Log:             %s (%s)\n", c.LogLevel, c.LogFormat)
	fmt.Fprintf(w, "  Metrics:         %s\n", orDefault(c.MetricsAddr, "disabled"))
	fmt.Fprintf(w, "  Verbose:         %v\n", c.Verbose)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
