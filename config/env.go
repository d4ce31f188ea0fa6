package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "FFMERGE_"

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from FFMERGE_* variables found by lookup
// (os.LookupEnv in production).
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	e := envReader{lookup: lookup}

	e.str("FFMPEG_PATH", &c.FFmpegPath)
	e.str("FFPROBE_PATH", &c.FFprobePath)

	e.str("OUTPUT_DIR", &c.Merge.OutputDir)
	e.str("OUTPUT", &c.Merge.Output)
	e.str("BITRATE", &c.Merge.Bitrate)
	e.int("WIDTH", &c.Merge.Width)
	e.int("HEIGHT", &c.Merge.Height)
	e.int("WORKERS", &c.Merge.Workers)
	e.duration("WORKER_TIMEOUT", &c.Merge.WorkerTimeout)
	e.str("PARTIAL_FAILURE", &c.Merge.PartialFailure)
	e.str("CONCAT_STRATEGY", &c.Merge.ConcatStrategy)
	e.float("LOW_FRAMERATE_THRESHOLD", &c.Merge.LowFramerateThreshold)

	e.str("PRESET", &c.Convert.Preset)

	e.duration("PROBE_RETRY_DELAY", &c.ProbeRetryDelay)
	e.str("LOG_LEVEL", &c.LogLevel)
	e.str("LOG_FORMAT", &c.LogFormat)
	e.str("METRICS_ADDR", &c.MetricsAddr)
	e.bool("VERBOSE", &c.Verbose)

	return errors.Join(e.errs...)
}

// envReader collects parse errors instead of stopping at the first one.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(EnvPrefix + key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s%s=%q: %w", EnvPrefix, key, value, err))
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) bool(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}
