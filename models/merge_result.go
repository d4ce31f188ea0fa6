package models

import (
	"fmt"
	"strings"
	"time"
)

// StageFailure describes one failed stage of a merge.
type StageFailure struct {
	Stage      string `json:"stage"` // "transcode" or "concat"
	Index      int    `json:"index"` // input position, -1 for concat
	Input      string `json:"input,omitempty"`
	ExitCode   int    `json:"exit_code"`
	Diagnostic string `json:"diagnostic,omitempty"`
	Err        error  `json:"-"`
}

// StageFailureFrom converts a failed outcome into a stage failure.
func StageFailureFrom(stage string, o TaskOutcome) StageFailure {
	return StageFailure{
		Stage:      stage,
		Index:      o.Index,
		Input:      o.InputPath,
		ExitCode:   o.ExitCode,
		Diagnostic: o.Diagnostic,
		Err:        o.Error,
	}
}

func (f StageFailure) String() string {
	var b strings.Builder
	b.WriteString(f.Stage)
	if f.Index >= 0 {
		fmt.Fprintf(&b, "[%d]", f.Index)
	}
	if f.Input != "" {
		fmt.Fprintf(&b, " %s", f.Input)
	}
	if f.Err != nil {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	if f.Diagnostic != "" {
		fmt.Fprintf(&b, " (%s)", f.Diagnostic)
	}
	return b.String()
}

// MergeResult is the outcome of a successful merge.
type MergeResult struct {
	ID          string            `json:"id"`
	OutputPath  string            `json:"output_path"`
	Metadata    map[string]string `json:"metadata"`
	RawMetadata []byte            `json:"-"`
	Outcomes    []TaskOutcome     `json:"outcomes"`
	Skipped     []int             `json:"skipped,omitempty"` // inputs left out under the proceed policy
	Duration    time.Duration     `json:"duration"`
}

// Resolution returns the merged output's "WxH", if probed.
func (r *MergeResult) Resolution() string {
	return r.Metadata["resolution"]
}
