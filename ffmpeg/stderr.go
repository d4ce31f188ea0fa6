package ffmpeg

import (
	"bufio"
	"regexp"
	"strings"

	"ffmerge/internal/timeutil"
)

// Banner holds the input summary ffmpeg prints to stderr for `ffmpeg -i FILE`:
//
//	Duration: 00:00:01.00, start: 0.000000, bitrate: 1205 kb/s
type Banner struct {
	Duration string  // HH:MM:SS.ss as printed
	Seconds  float64 // Duration in seconds, 0 when unknown
	Bitrate  string  // digits only, in kb/s
}

// StderrParser extracts values from ffmpeg's human-readable stderr.
type StderrParser struct {
	durationRegex *regexp.Regexp
	bitrateRegex  *regexp.Regexp
	errorRegex    *regexp.Regexp
}

// NewStderrParser creates a parser for ffmpeg stderr output.
func NewStderrParser() *StderrParser {
	return &StderrParser{
		durationRegex: regexp.MustCompile(`Duration:\s*([0-9]+:[0-9]+:[0-9.]+|N/A)`),
		bitrateRegex:  regexp.MustCompile(`bitrate:\s*(\d+)`),
		errorRegex:    regexp.MustCompile(`(?i)\berror\b|invalid|no such file|not found|permission denied`),
	}
}

var defaultParser = NewStderrParser()

// ParseBanner scans stderr for the input banner. The second result is false
// when no bitrate marker was found, which happens when ffmpeg has not yet
// flushed its banner or the file is not media.
func (p *StderrParser) ParseBanner(stderr string) (Banner, bool) {
	var b Banner

	if m := p.durationRegex.FindStringSubmatch(stderr); len(m) > 1 {
		b.Duration = m[1]
		if secs, ok := timeutil.ParseClock(m[1]); ok {
			b.Seconds = secs
		}
	}

	m := p.bitrateRegex.FindStringSubmatch(stderr)
	if len(m) < 2 {
		return b, false
	}
	b.Bitrate = m[1]
	return b, true
}

// Diagnose returns the most useful line of a failed run's stderr: the last
// line that looks like an error, else the last non-empty line.
func (p *StderrParser) Diagnose(stderr string) string {
	var lastLine, lastError string

	scanner := bufio.NewScanner(strings.NewReader(stderr))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		// progress updates are separated by \r within one line
		line := scanner.Text()
		if i := strings.LastIndexByte(line, '\r'); i >= 0 {
			line = line[i+1:]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lastLine = line
		if p.errorRegex.MatchString(line) {
			lastError = line
		}
	}

	if lastError != "" {
		return lastError
	}
	return lastLine
}

// ParseBitrate returns the kb/s value of the first "bitrate: N" marker.
func ParseBitrate(stderr string) (string, bool) {
	b, ok := defaultParser.ParseBanner(stderr)
	return b.Bitrate, ok
}

// Diagnose is StderrParser.Diagnose with the default patterns.
func Diagnose(stderr string) string {
	return defaultParser.Diagnose(stderr)
}
