package command

import "strings"

// Quote wraps a path in single quotes for /bin/sh, escaping embedded single
// quotes as '\''. "-" (stdin/stdout) is returned untouched.
func Quote(path string) string {
	if path == "-" {
		return path
	}
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// QuoteAll quotes every path and joins them with spaces.
func QuoteAll(paths []string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = Quote(p)
	}
	return strings.Join(quoted, " ")
}

// Executable returns path ready to lead a shell command line. Paths made only
// of characters the shell treats literally are returned as-is; anything else
// is quoted.
func Executable(path string) string {
	if path == "" {
		return Quote(path)
	}
	for _, r := range path {
		if !isShellSafe(r) {
			return Quote(path)
		}
	}
	return path
}

func isShellSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	return strings.ContainsRune("/._-+:,@%=", r)
}
