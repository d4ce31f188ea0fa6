// Package command provides the command accumulation model used to build
// ffmpeg invocations, plus the Command interface consumed by the orchestrator.
//
// A Sequence is an ordered list of opaque fragments. Each convert or merge
// build owns its own Sequence; nothing in this package is shared between
// concurrent builds.
package command

// TaskType represents the kind of ffmpeg invocation a command performs.
type TaskType string

const (
	TaskTypeTranscode TaskType = "transcode" // Per-input transcode to an intermediate
	TaskTypeConcat    TaskType = "concat"    // Concatenation of intermediates into the final output
	TaskTypeConvert   TaskType = "convert"   // Single-file conversion
)

// Command represents an ffmpeg invocation that can be rendered to a single
// shell command line.
//
// Builder implements this interface, as do the concatenation commands built
// by the concatenator package. The orchestrator runs Commands through an
// ffmpeg.Runner without knowing how they were assembled.
//
// Example usage:
//
//	cmd := command.NewBuilder("input.mp4").
//		Overwrite().
//		VideoBitrate("500k").
//		Size(320, 240).
//		Output("output.mpg")
//
//	line := cmd.CommandLine("/usr/bin/ffmpeg")
//	// /usr/bin/ffmpeg -y -i 'input.mp4' -b:v 500k -s 320x240 'output.mpg'
type Command interface {
	// CommandLine renders the full command line, prefixed by the executable.
	// Fragments are expected to be escaped already.
	CommandLine(executable string) string

	// GetTaskType returns the type of task (transcode, concat, convert).
	// Used for logging and metrics labels.
	GetTaskType() TaskType

	// GetInputPath returns the primary input path, or "-" for stdin.
	GetInputPath() string

	// GetOutputPath returns the output file path for this command.
	GetOutputPath() string
}
