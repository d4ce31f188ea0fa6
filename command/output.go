package command

import (
	"path/filepath"
	"slices"
	"strings"
)

// Extensions lists the container extensions recognized by ResolveOutput.
var Extensions = []string{
	"3gp", "asf", "avi", "flv", "gif", "m4a", "m4v", "mkv", "mov", "mp3",
	"mp4", "mpeg", "mpg", "ogg", "ogv", "swf", "ts", "vob", "wav", "webm", "wmv",
}

// IsExtension reports whether to names a known extension rather than a path.
func IsExtension(to string) bool {
	return slices.Contains(Extensions, strings.TrimPrefix(strings.ToLower(to), "."))
}

// ResolveOutput computes the output path for a conversion of input.
//
// When to is a known extension ("mp4" or ".mp4"), the input's extension is
// replaced. Otherwise to is treated as a path and returned verbatim. An empty
// to yields an empty result.
func ResolveOutput(input, to string) string {
	if to == "" {
		return ""
	}
	if !IsExtension(to) {
		return to
	}
	ext := strings.TrimPrefix(to, ".")
	return strings.TrimSuffix(input, filepath.Ext(input)) + "." + ext
}
