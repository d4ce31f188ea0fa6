package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ffmerge/command"
	"ffmerge/ffmpeg"

	"go.uber.org/zap"
)

// DefaultRetryDelay is how long Bitrate waits before its single retry.
const DefaultRetryDelay = 5 * time.Second

// ErrProbeIncomplete reports that ffmpeg's banner had no bitrate marker even
// after the retry.
var ErrProbeIncomplete = errors.New("probe output incomplete")

// PathResolver resolves an executable path; *ffmpeg.Locator implements it.
type PathResolver interface {
	Path(ctx context.Context) (string, error)
}

// Prober runs ffmpeg and ffprobe to inspect media files.
type Prober struct {
	runner  ffmpeg.Runner
	ffmpeg  PathResolver
	ffprobe PathResolver
	logger  *zap.Logger

	// RetryDelay is the pause before Bitrate retries. Zero means no pause.
	RetryDelay time.Duration
	// OnRetry, if set, is called each time Bitrate retries.
	OnRetry func()
}

// NewProber creates a prober. A nil logger disables logging.
func NewProber(runner ffmpeg.Runner, ffmpegPath, ffprobePath PathResolver, logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		runner:     runner,
		ffmpeg:     ffmpegPath,
		ffprobe:    ffprobePath,
		logger:     logger,
		RetryDelay: DefaultRetryDelay,
	}
}

// Bitrate returns the input bitrate of file as "<n>k".
//
// The marker is read from the banner of `ffmpeg -i file`. When absent (the
// file may still be being written) Bitrate waits RetryDelay and tries once
// more. The second result is false when the bitrate stays unknown; the error
// is reserved for a missing executable or a cancelled context.
func (p *Prober) Bitrate(ctx context.Context, file string) (string, bool, error) {
	exe, err := p.ffmpeg.Path(ctx)
	if err != nil {
		return "", false, err
	}
	line := command.Executable(exe) + " -hide_banner -i " + command.Quote(file)

	for attempt := 1; attempt <= 2; attempt++ {
		// exits non-zero without an output file; only stderr matters
		res := p.runner.Run(ctx, line, false)
		if bitrate, ok := ffmpeg.ParseBitrate(res.Stderr); ok {
			return bitrate + "k", true, nil
		}
		if attempt == 2 {
			break
		}

		p.logger.Debug("bitrate marker missing, retrying",
			zap.String("file", file),
			zap.Duration("delay", p.RetryDelay))
		if p.OnRetry != nil {
			p.OnRetry()
		}
		if err := sleep(ctx, p.RetryDelay); err != nil {
			return "", false, err
		}
	}

	p.logger.Warn("bitrate unknown", zap.String("file", file), zap.Error(ErrProbeIncomplete))
	return "", false, nil
}

// Metadata runs ffprobe on file and returns its JSON output verbatim.
func (p *Prober) Metadata(ctx context.Context, file string) (RawMetadata, error) {
	if file == "" {
		return nil, fmt.Errorf("source path cannot be empty")
	}

	exe, err := p.ffprobe.Path(ctx)
	if err != nil {
		return nil, err
	}

	// -v quiet: suppress banner and logs on stderr
	// -print_format json: machine-readable output on stdout
	// -show_streams -show_format -show_chapters: everything Record and Probe read
	line := command.Executable(exe) +
		" -v quiet -print_format json -show_streams -show_format -show_chapters " +
		command.Quote(file)

	res := p.runner.Run(ctx, line, false)
	if !res.Success {
		return nil, fmt.Errorf("ffprobe failed on %s: %w (output: %s)", file, res.Err, res.Diagnostic())
	}

	raw := RawMetadata(res.Output)
	if !raw.Valid() {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output for %s", file)
	}
	return raw, nil
}

// Record returns the flattened first record of file.
func (p *Prober) Record(ctx context.Context, file string) (Record, error) {
	raw, err := p.Metadata(ctx, file)
	if err != nil {
		return nil, err
	}
	return NewRecord(raw), nil
}

// Attribute returns the named field of file's first record. The second
// result is false when the field is absent or the file cannot be probed.
func (p *Prober) Attribute(ctx context.Context, file, name string) (string, bool, error) {
	rec, err := p.Record(ctx, file)
	if err != nil {
		if fatal(err) {
			return "", false, err
		}
		p.logger.Debug("attribute unavailable", zap.String("file", file), zap.String("name", name), zap.Error(err))
		return "", false, nil
	}
	v, ok := rec.Get(name)
	return v, ok, nil
}

// FrameRate returns the frames per second of file's primary stream. An
// unreadable file or a missing rate yields false rather than an error.
func (p *Prober) FrameRate(ctx context.Context, file string) (float64, bool, error) {
	rec, err := p.Record(ctx, file)
	if err != nil {
		if fatal(err) {
			return 0, false, err
		}
		p.logger.Debug("frame rate unavailable", zap.String("file", file), zap.Error(err))
		return 0, false, nil
	}
	fps, ok := rec.FrameRate()
	return fps, ok, nil
}

// Probe returns the typed streams, format and chapters of file.
func (p *Prober) Probe(ctx context.Context, file string) (*ProbeResult, error) {
	raw, err := p.Metadata(ctx, file)
	if err != nil {
		return nil, err
	}

	var result ProbeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe JSON output: %w", err)
	}
	return &result, nil
}

// fatal reports errors that must not be downgraded to "unknown".
func fatal(err error) bool {
	return errors.Is(err, ffmpeg.ErrToolNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
