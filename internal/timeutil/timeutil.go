// Package timeutil converts between seconds and the HH:MM:SS.ss clock
// notation ffmpeg uses for -ss/-t options and in its stderr banner.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatSeconds converts seconds to HH:MM:SS.ss, rounding the fractional
// part to two digits.
//
//	FormatSeconds(90)    // "00:01:30.00"
//	FormatSeconds(30.53) // "00:00:30.53"
func FormatSeconds(seconds float64) string {
	hours := int(seconds) / 3600
	minutes := (int(seconds) % 3600) / 60
	secs := seconds - float64(hours*3600) - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d:%05.2f", hours, minutes, secs)
}

// ParseClock converts HH:MM:SS[.ss] to seconds. It returns false for any
// other shape, including the "N/A" ffmpeg prints for unknown durations.
func ParseClock(clock string) (float64, bool) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 3 {
		return 0, false
	}

	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}

	return hours*3600 + minutes*60 + seconds, true
}
