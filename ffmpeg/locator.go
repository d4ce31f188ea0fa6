package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrToolNotFound is returned when an executable cannot be resolved.
var ErrToolNotFound = errors.New("executable not found")

// Locator resolves an executable path once per process.
//
// The first successful resolution is cached; a failed resolution is not, so
// a later call can succeed after the tool is installed or the override fixed.
// Concurrent first calls share one lookup.
type Locator struct {
	name string
	near *Locator

	mu       sync.Mutex
	override string
	resolved string

	group    singleflight.Group
	lookPath func(file string) (string, error)
}

// NewLocator creates a locator for the named binary (e.g. "ffmpeg").
func NewLocator(name string) *Locator {
	return &Locator{name: name, lookPath: exec.LookPath}
}

// NewSiblingLocator creates a locator that first looks for name in the
// directory of the executable resolved by near, then on PATH. ffprobe is
// normally installed next to ffmpeg.
func NewSiblingLocator(name string, near *Locator) *Locator {
	l := NewLocator(name)
	l.near = near
	return l
}

// Name returns the binary name being located.
func (l *Locator) Name() string {
	return l.name
}

// SetPath sets an explicit executable path, discarding any cached result.
// An empty path restores PATH lookup.
func (l *Locator) SetPath(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.override = path
	l.resolved = ""
}

// Path returns the executable path, resolving it on first use.
func (l *Locator) Path(ctx context.Context) (string, error) {
	l.mu.Lock()
	if l.resolved != "" {
		path := l.resolved
		l.mu.Unlock()
		return path, nil
	}
	l.mu.Unlock()

	ch := l.group.DoChan(l.name, func() (any, error) {
		return l.resolve(ctx)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (l *Locator) resolve(ctx context.Context) (string, error) {
	l.mu.Lock()
	override := l.override
	l.mu.Unlock()

	var path string
	var err error
	switch {
	case override != "":
		path, err = l.lookPath(override)
		if err != nil {
			return "", fmt.Errorf("%w: %s at %q: %v", ErrToolNotFound, l.name, override, err)
		}
	default:
		path, err = l.lookNear(ctx)
		if err != nil {
			path, err = l.lookPath(l.name)
		}
		if err != nil {
			return "", fmt.Errorf("%w: %s not in PATH: %v", ErrToolNotFound, l.name, err)
		}
	}

	l.mu.Lock()
	// a concurrent SetPath wins over this lookup
	if l.override == override {
		l.resolved = path
	}
	l.mu.Unlock()
	return path, nil
}

func (l *Locator) lookNear(ctx context.Context) (string, error) {
	if l.near == nil {
		return "", ErrToolNotFound
	}
	nearPath, err := l.near.Path(ctx)
	if err != nil {
		return "", err
	}
	return l.lookPath(filepath.Join(filepath.Dir(nearPath), l.name))
}
