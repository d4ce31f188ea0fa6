package timeutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		name     string
		seconds  float64
		expected string
	}{
		{"Zero", 0, "00:00:00.00"},
		{"One minute", 60, "00:01:00.00"},
		{"Complex time", 3661, "01:01:01.00"},
		{"Large time", 86400, "24:00:00.00"},
		{"90 seconds", 90, "00:01:30.00"},
		{"Fractional seconds", 30.53, "00:00:30.53"},
		{"Sub-second", 0.5, "00:00:00.50"},
		{"Minute with fraction", 90.75, "00:01:30.75"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatSeconds(tt.seconds))
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		clock string
		want  float64
		ok    bool
	}{
		{"00:00:01.50", 1.5, true},
		{"01:01:01", 3661, true},
		{" 00:02:00.00 ", 120, true},
		{"N/A", 0, false},
		{"12:34", 0, false},
		{"aa:bb:cc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			got, ok := ParseClock(tt.clock)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestParseClock_RoundTrip(t *testing.T) {
	for _, s := range []float64{0, 1.25, 59.5, 3600, 7322.75} {
		got, ok := ParseClock(FormatSeconds(s))
		assert.True(t, ok)
		assert.InDelta(t, s, got, 0.005)
	}
}
