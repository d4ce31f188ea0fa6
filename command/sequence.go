package command

import (
	"errors"
	"fmt"
	"strings"
)

// ErrIndexOutOfRange is returned by InsertAt when the position lies outside
// the sequence. Positions are never clamped.
var ErrIndexOutOfRange = errors.New("insert index out of range")

// Sequence is an ordered, mutable list of command fragments.
//
// A fragment is one argument or argument group ("-i 'in.mp4'", "-s 320x240").
// Fragments are not validated or escaped; callers pass them ready for the
// shell. The zero value is an empty sequence ready for use.
type Sequence struct {
	fragments []string
}

// NewSequence creates a sequence holding the given fragments in order.
func NewSequence(fragments ...string) *Sequence {
	s := &Sequence{}
	for _, f := range fragments {
		s.Append(f)
	}
	return s
}

// Append adds a fragment to the end of the sequence.
func (s *Sequence) Append(fragment string) {
	s.fragments = append(s.fragments, fragment)
}

// InsertAt inserts a fragment so that it ends up at position index.
// Valid positions are 0 through Len() inclusive; Len() appends.
func (s *Sequence) InsertAt(fragment string, index int) error {
	if index < 0 || index > len(s.fragments) {
		return fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, index, len(s.fragments))
	}

	s.fragments = append(s.fragments, "")
	copy(s.fragments[index+1:], s.fragments[index:])
	s.fragments[index] = fragment
	return nil
}

// Clear empties the sequence.
func (s *Sequence) Clear() {
	s.fragments = s.fragments[:0]
}

// Len returns the number of fragments.
func (s *Sequence) Len() int {
	return len(s.fragments)
}

// Fragments returns a copy of the fragments in order.
func (s *Sequence) Fragments() []string {
	out := make([]string, len(s.fragments))
	copy(out, s.fragments)
	return out
}

// Index returns the position of the first fragment equal to fragment, or -1.
func (s *Sequence) Index(fragment string) int {
	for i, f := range s.fragments {
		if f == fragment {
			return i
		}
	}
	return -1
}

// Render joins all fragments with single spaces.
func (s *Sequence) Render() string {
	return strings.Join(s.fragments, " ")
}

// Line renders the sequence prefixed by the executable.
func (s *Sequence) Line(executable string) string {
	if len(s.fragments) == 0 {
		return executable
	}
	return executable + " " + s.Render()
}
