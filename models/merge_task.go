// Package models provides the data structures shared by the merge pipeline.
package models

import (
	"fmt"
	"strings"
)

// MergeTask is one input's transcode job within a merge.
//
// A task is created during planning, owned by its worker while it runs, and
// its temp output is removed once the concatenation stage has consumed it.
//
// Use NewMergeTask to create a validated MergeTask instance.
type MergeTask struct {
	Index          int    `json:"index"`
	InputPath      string `json:"input_path"`
	TempOutputPath string `json:"temp_output_path"`
	Bitrate        string `json:"bitrate"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`

	// Set during dispatch from the probed input.
	FrameRate    float64 `json:"frame_rate,omitempty"`
	LowFramerate bool    `json:"low_framerate"`
	Target       string  `json:"target,omitempty"`
}

// NewMergeTask creates a MergeTask with validation.
func NewMergeTask(index int, inputPath, tempOutputPath, bitrate string, width, height int) (*MergeTask, error) {
	t := &MergeTask{
		Index:          index,
		InputPath:      inputPath,
		TempOutputPath: tempOutputPath,
		Bitrate:        bitrate,
		Width:          width,
		Height:         height,
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid merge task: %w", err)
	}
	return t, nil
}

// ID returns a stable task identifier derived from the input position.
func (t *MergeTask) ID() string {
	return fmt.Sprintf("transcode-%d", t.Index)
}

// Dimensions returns the target size as "WxH".
func (t *MergeTask) Dimensions() string {
	return fmt.Sprintf("%dx%d", t.Width, t.Height)
}

// Validate checks if the MergeTask has valid data.
//
// Returns an error if:
//   - InputPath or TempOutputPath is empty or whitespace-only
//   - InputPath and TempOutputPath are the same file
//   - Width or Height is not positive
//   - Index is negative
func (t *MergeTask) Validate() error {
	if strings.TrimSpace(t.InputPath) == "" {
		return fmt.Errorf("input_path cannot be empty")
	}
	if strings.TrimSpace(t.TempOutputPath) == "" {
		return fmt.Errorf("temp_output_path cannot be empty")
	}
	if t.InputPath == t.TempOutputPath {
		return fmt.Errorf("temp_output_path must differ from input_path")
	}
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("dimensions must be positive, got %dx%d", t.Width, t.Height)
	}
	if t.Index < 0 {
		return fmt.Errorf("index must not be negative")
	}
	return nil
}
