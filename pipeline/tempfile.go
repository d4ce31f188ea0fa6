package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
)

// TempExtension is the extension of worker intermediates.
const TempExtension = ".mpg"

// maxReserveAttempts bounds the retries on an existing name.
const maxReserveAttempts = 64

// ErrNameExhausted is returned when no free temp name was found.
var ErrNameExhausted = errors.New("could not reserve a unique temp name")

// SourceFunc returns the random source for one merge call.
type SourceFunc func() rand.Source

// DefaultSource seeds a PCG source from the runtime's random generator.
func DefaultSource() rand.Source {
	return rand.NewPCG(rand.Uint64(), rand.Uint64())
}

// TempNamer reserves intermediate paths of the form
// <dir>/<random decimal>.mpg.
//
// A reserved path is created empty with O_EXCL, so it can alias neither a
// user file nor another worker's reservation. Callers own the returned files
// and must remove them.
type TempNamer struct {
	rng *rand.Rand
}

// NewTempNamer creates a namer drawing from src. A TempNamer belongs to one
// merge call and is not safe for concurrent use.
func NewTempNamer(src rand.Source) *TempNamer {
	if src == nil {
		src = DefaultSource()
	}
	return &TempNamer{rng: rand.New(src)}
}

// Reserve creates a fresh temp file in dir and returns its path.
func (n *TempNamer) Reserve(dir string) (string, error) {
	for range maxReserveAttempts {
		path := filepath.Join(dir, strconv.FormatUint(n.rng.Uint64(), 10)+TempExtension)

		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to reserve temp file in %s: %w", dir, err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return "", fmt.Errorf("failed to reserve temp file in %s: %w", dir, err)
		}
		return path, nil
	}
	return "", fmt.Errorf("%w in %s after %d attempts", ErrNameExhausted, dir, maxReserveAttempts)
}

// removeAll removes every path, ignoring ones already gone, and returns the
// number actually removed.
func removeAll(paths []string) (int, error) {
	var errs []error
	removed := 0
	for _, p := range paths {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed++
		case errors.Is(err, fs.ErrNotExist):
		default:
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}
