package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"ffmerge/ffmpeg"
	"ffmerge/ffprobe"
	"ffmerge/preset"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var quotedArg = regexp.MustCompile(`'([^']*)'`)

// fakeRunner stands in for ffmpeg. Workers write "<input name>;" to their
// temp output; the concat pipeline writes its inputs' contents, in command
// order, to the merged output.
type fakeRunner struct {
	delays     map[string]time.Duration // by input base name
	fail       map[string]bool
	failConcat bool

	mu    sync.Mutex
	lines []string
}

func (r *fakeRunner) Run(ctx context.Context, line string, verbose bool) ffmpeg.Result {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	r.mu.Unlock()

	var paths []string
	for _, m := range quotedArg.FindAllStringSubmatch(line, -1) {
		paths = append(paths, m[1])
	}
	if len(paths) < 2 {
		return ffmpeg.Result{ExitCode: 1, Err: errors.New("exit status 1"), Stderr: "unexpected command"}
	}
	last := paths[len(paths)-1]

	if strings.HasPrefix(line, "{ cat ") {
		if r.failConcat {
			return ffmpeg.Result{ExitCode: 1, Err: errors.New("exit status 1"),
				Stderr: "pipe:: Invalid data found when processing input", Duration: time.Millisecond}
		}
		var buf bytes.Buffer
		for _, p := range paths[:len(paths)-1] {
			b, err := os.ReadFile(p)
			if err != nil {
				return ffmpeg.Result{ExitCode: 1, Err: err}
			}
			buf.Write(b)
		}
		if err := os.WriteFile(last, buf.Bytes(), 0o644); err != nil {
			return ffmpeg.Result{ExitCode: 1, Err: err}
		}
		return ffmpeg.Result{Success: true, Duration: time.Millisecond}
	}

	name := filepath.Base(paths[0])
	select {
	case <-ctx.Done():
		return ffmpeg.Result{ExitCode: -1, Err: ctx.Err(), Stderr: "signal: killed"}
	case <-time.After(r.delays[name]):
	}
	if r.fail[name] {
		return ffmpeg.Result{ExitCode: 1, Err: errors.New("exit status 1"),
			Stderr: name + ": Invalid data found when processing input", Duration: time.Millisecond}
	}
	if err := os.WriteFile(last, []byte(name+";"), 0o644); err != nil {
		return ffmpeg.Result{ExitCode: 1, Err: err}
	}
	return ffmpeg.Result{Success: true, Duration: time.Millisecond}
}

func (r *fakeRunner) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.lines)
}

// lineFor returns the recorded worker line reading input.
func (r *fakeRunner) lineFor(input string) string {
	for _, l := range r.Lines() {
		if strings.Contains(l, "-i '"+input+"'") {
			return l
		}
	}
	return ""
}

func (r *fakeRunner) concatLine() string {
	for _, l := range r.Lines() {
		if strings.HasPrefix(l, "{ cat ") {
			return l
		}
	}
	return ""
}

// fakeProber returns fixed frame rates by input base name and a 320x240
// video record for any file.
type fakeProber struct {
	rates       map[string]float64
	rateErr     error
	metadataErr error
}

func (p *fakeProber) FrameRate(ctx context.Context, file string) (float64, bool, error) {
	if p.rateErr != nil {
		return 0, false, p.rateErr
	}
	fps, ok := p.rates[filepath.Base(file)]
	return fps, ok, nil
}

func (p *fakeProber) Metadata(ctx context.Context, file string) (ffprobe.RawMetadata, error) {
	if p.metadataErr != nil {
		return nil, p.metadataErr
	}
	return ffprobe.RawMetadata(`{"streams":[{"index":0,"codec_type":"video","codec_name":"mpeg1video",` +
		`"width":320,"height":240,"r_frame_rate":"25/1"}],` +
		`"format":{"filename":"` + file + `","format_name":"mpeg","duration":"3.000000"}}`), nil
}

type staticPath string

func (p staticPath) Path(context.Context) (string, error) { return string(p), nil }

type missingPath struct{}

func (missingPath) Path(context.Context) (string, error) { return "", ffmpeg.ErrToolNotFound }

func newTestPipeline(runner ffmpeg.Runner, prober Prober, opts ...Option) *Pipeline {
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	return New(runner, staticPath("ffmpeg"), prober, preset.Default(), opts...)
}

// writeInputs creates empty input files in a fresh directory.
func writeInputs(t *testing.T, names ...string) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(paths[i], nil, 0o644))
	}
	return dir, paths
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func request(outDir string, inputs []string) MergeRequest {
	return MergeRequest{
		Inputs:    inputs,
		OutputDir: outDir,
		Output:    "merged.mpg",
		Bitrate:   "500k",
		Width:     320,
		Height:    240,
	}
}

// withOptions applies mutate to the default options.
func withOptions(mutate func(*Options)) Option {
	o := DefaultOptions()
	mutate(&o)
	return WithOptions(o)
}
