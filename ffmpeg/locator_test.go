package ffmpeg

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookPath struct {
	calls atomic.Int32
	found map[string]string
	delay time.Duration
}

func (f *fakeLookPath) lookPath(file string) (string, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	if p, ok := f.found[file]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

func TestLocator_ResolvesOnceConcurrently(t *testing.T) {
	fake := &fakeLookPath{
		found: map[string]string{"ffmpeg": "/usr/bin/ffmpeg"},
		delay: 50 * time.Millisecond,
	}
	l := NewLocator("ffmpeg")
	l.lookPath = fake.lookPath

	var wg sync.WaitGroup
	paths := make([]string, 16)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := l.Path(context.Background())
			assert.NoError(t, err)
			paths[i] = p
		}(i)
	}
	wg.Wait()

	for _, p := range paths {
		assert.Equal(t, "/usr/bin/ffmpeg", p)
	}
	assert.Equal(t, int32(1), fake.calls.Load())

	_, err := l.Path(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.calls.Load(), "success must be cached")
}

func TestLocator_FailureIsNotCached(t *testing.T) {
	fake := &fakeLookPath{found: map[string]string{}}
	l := NewLocator("ffmpeg")
	l.lookPath = fake.lookPath

	_, err := l.Path(context.Background())
	require.ErrorIs(t, err, ErrToolNotFound)

	fake.found = map[string]string{"ffmpeg": "/opt/ffmpeg"}
	p, err := l.Path(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/opt/ffmpeg", p)
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestLocator_Override(t *testing.T) {
	fake := &fakeLookPath{found: map[string]string{
		"ffmpeg":              "/usr/bin/ffmpeg",
		"/custom/bin/ffmpeg6": "/custom/bin/ffmpeg6",
	}}
	l := NewLocator("ffmpeg")
	l.lookPath = fake.lookPath

	p, err := l.Path(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/ffmpeg", p)

	l.SetPath("/custom/bin/ffmpeg6")
	p, err = l.Path(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/custom/bin/ffmpeg6", p)

	l.SetPath("/missing/ffmpeg")
	_, err = l.Path(context.Background())
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestSiblingLocator(t *testing.T) {
	fake := &fakeLookPath{found: map[string]string{
		"/custom/bin/ffmpeg":  "/custom/bin/ffmpeg",
		"/custom/bin/ffprobe": "/custom/bin/ffprobe",
		"ffprobe":             "/usr/bin/ffprobe",
	}}
	ffmpeg := NewLocator("ffmpeg")
	ffmpeg.lookPath = fake.lookPath
	ffmpeg.SetPath("/custom/bin/ffmpeg")

	probe := NewSiblingLocator("ffprobe", ffmpeg)
	probe.lookPath = fake.lookPath

	p, err := probe.Path(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/custom/bin/ffprobe", p)
}

func TestSiblingLocator_FallsBackToPath(t *testing.T) {
	fake := &fakeLookPath{found: map[string]string{"ffprobe": "/usr/bin/ffprobe"}}
	ffmpeg := NewLocator("ffmpeg")
	ffmpeg.lookPath = fake.lookPath

	probe := NewSiblingLocator("ffprobe", ffmpeg)
	probe.lookPath = fake.lookPath

	p, err := probe.Path(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/ffprobe", p)
}

func TestLocator_ContextCancelled(t *testing.T) {
	fake := &fakeLookPath{found: map[string]string{"ffmpeg": "/usr/bin/ffmpeg"}, delay: time.Second}
	l := NewLocator("ffmpeg")
	l.lookPath = fake.lookPath

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Path(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
