package command

import (
	"errors"
	"fmt"

	"ffmerge/internal/timeutil"
)

// ErrNoOutput is returned when a command is built without an output path.
var ErrNoOutput = errors.New("no output file specified")

// Builder is the option DSL for a single ffmpeg invocation.
//
// It owns a fresh Sequence whose first fragment is "-i <input>". Setters
// append fragments in call order, so later options follow earlier ones;
// presets configure a Builder before caller options for that reason.
type Builder struct {
	seq      *Sequence
	input    string
	inputArg string
	output   string
	taskType TaskType
	err      error
}

// NewBuilder creates a Builder reading from input. Use "-" for stdin.
func NewBuilder(input string) *Builder {
	b := &Builder{
		seq:      &Sequence{},
		input:    input,
		inputArg: "-i " + Quote(input),
		taskType: TaskTypeConvert,
	}
	b.seq.Append(b.inputArg)
	return b
}

// Sequence exposes the underlying fragments for positional edits.
func (b *Builder) Sequence() *Sequence {
	return b.seq
}

// Err returns the first error recorded by a setter, if any.
func (b *Builder) Err() error {
	return b.err
}

// SetTaskType overrides the task type reported to the orchestrator.
func (b *Builder) SetTaskType(t TaskType) *Builder {
	b.taskType = t
	return b
}

// Option appends a raw, already escaped fragment.
func (b *Builder) Option(fragment string) *Builder {
	if fragment != "" {
		b.seq.Append(fragment)
	}
	return b
}

// Insert places a raw fragment at a specific position.
func (b *Builder) Insert(fragment string, index int) *Builder {
	if err := b.seq.InsertAt(fragment, index); err != nil && b.err == nil {
		b.err = err
	}
	return b
}

// InputOption inserts a fragment directly before "-i", where ffmpeg treats it
// as an option of the input (e.g. "-f mpeg", "-ss 10").
func (b *Builder) InputOption(fragment string) *Builder {
	idx := b.seq.Index(b.inputArg)
	if idx < 0 {
		if b.err == nil {
			b.err = fmt.Errorf("input fragment %q missing from sequence", b.inputArg)
		}
		return b
	}
	return b.Insert(fragment, idx)
}

// Overwrite inserts "-y" at the front of the sequence. Repeated calls are no-ops.
func (b *Builder) Overwrite() *Builder {
	if b.seq.Index("-y") >= 0 {
		return b
	}
	return b.Insert("-y", 0)
}

// Seek sets the start position (e.g., "00:03:00").
func (b *Builder) Seek(position string) *Builder {
	return b.Option("-ss " + position)
}

// SeekSeconds sets the start position in fractional seconds.
func (b *Builder) SeekSeconds(seconds float64) *Builder {
	return b.Seek(timeutil.FormatSeconds(seconds))
}

// Duration limits the output duration (e.g., "01:10:00").
func (b *Builder) Duration(duration string) *Builder {
	return b.Option("-t " + duration)
}

// DurationSeconds limits the output duration in fractional seconds.
func (b *Builder) DurationSeconds(seconds float64) *Builder {
	return b.Duration(timeutil.FormatSeconds(seconds))
}

// Resolution sets the frame size from a "WIDTHxHEIGHT" string.
func (b *Builder) Resolution(resolution string) *Builder {
	return b.Option("-s " + resolution)
}

// Size sets the frame size.
func (b *Builder) Size(width, height int) *Builder {
	if width <= 0 || height <= 0 {
		return b
	}
	return b.Resolution(fmt.Sprintf("%dx%d", width, height))
}

// VideoBitrate sets the video bitrate (e.g., "500k", "2M").
func (b *Builder) VideoBitrate(bitrate string) *Builder {
	if bitrate == "" {
		return b
	}
	return b.Option("-b:v " + bitrate)
}

// AudioBitrate sets the audio bitrate (e.g., "128k").
func (b *Builder) AudioBitrate(bitrate string) *Builder {
	if bitrate == "" {
		return b
	}
	return b.Option("-b:a " + bitrate)
}

// FrameRate sets the output frame rate.
func (b *Builder) FrameRate(fps int) *Builder {
	if fps <= 0 {
		return b
	}
	return b.Option(fmt.Sprintf("-r %d", fps))
}

// VideoCodec sets the video encoder (e.g., "libx264", "mpeg2video").
func (b *Builder) VideoCodec(codec string) *Builder {
	return b.Option("-c:v " + codec)
}

// AudioCodec sets the audio encoder (e.g., "aac", "mp2").
func (b *Builder) AudioCodec(codec string) *Builder {
	return b.Option("-c:a " + codec)
}

// Format forces the output container format (e.g., "mpeg", "mp4").
func (b *Builder) Format(format string) *Builder {
	return b.Option("-f " + format)
}

// Output sets the output path. It is rendered last.
func (b *Builder) Output(path string) *Builder {
	b.output = path
	return b
}

// Build validates the builder and returns its full command line.
func (b *Builder) Build(executable string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if b.output == "" {
		return "", ErrNoOutput
	}
	return b.CommandLine(executable), nil
}

// CommandLine renders "<executable> <fragments> <output>". The executable is
// quoted when it contains shell metacharacters.
func (b *Builder) CommandLine(executable string) string {
	line := b.seq.Line(Executable(executable))
	if b.output != "" {
		line += " " + Quote(b.output)
	}
	return line
}

// GetTaskType returns the task type.
func (b *Builder) GetTaskType() TaskType {
	return b.taskType
}

// GetInputPath returns the input path.
func (b *Builder) GetInputPath() string {
	return b.input
}

// GetOutputPath returns the output path.
func (b *Builder) GetOutputPath() string {
	return b.output
}

var _ Command = (*Builder)(nil)
