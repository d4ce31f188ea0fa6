package models

import (
	"fmt"
	"time"
)

// MergeProgress is a snapshot of a running merge.
type MergeProgress struct {
	ID string // merge operation ID

	State     ProgressState
	Completed int // workers that reached a terminal state
	Failed    int
	Total     int
	Last      *TaskOutcome // most recent worker outcome, nil outside transcoding

	StartTime time.Time
	UpdatedAt time.Time
}

// ProgressState represents the stage a merge is in.
type ProgressState string

const (
	ProgressStatePlanning    ProgressState = "planning"
	ProgressStateTranscoding ProgressState = "transcoding"
	ProgressStateConcat      ProgressState = "concatenating"
	ProgressStateProbing     ProgressState = "probing"
	ProgressStateCompleted   ProgressState = "completed"
	ProgressStateFailed      ProgressState = "failed"
	ProgressStateCancelled   ProgressState = "cancelled"
)

// ProgressCallback receives merge progress updates. Calls are serialized.
type ProgressCallback func(progress MergeProgress)

// NewMergeProgress creates a progress tracker for total workers.
func NewMergeProgress(id string, total int) *MergeProgress {
	now := time.Now()
	return &MergeProgress{
		ID:        id,
		State:     ProgressStatePlanning,
		Total:     total,
		StartTime: now,
		UpdatedAt: now,
	}
}

// Percent returns worker completion in percent. The concat and probe
// stages report 100.
func (mp *MergeProgress) Percent() float64 {
	if mp.Total <= 0 {
		return 0
	}
	return float64(mp.Completed) / float64(mp.Total) * 100
}

// Advance records a finished worker.
func (mp *MergeProgress) Advance(outcome TaskOutcome) {
	mp.Completed++
	if !outcome.Success {
		mp.Failed++
	}
	mp.Last = &outcome
	mp.UpdatedAt = time.Now()
}

// Transition moves the merge to a new stage.
func (mp *MergeProgress) Transition(state ProgressState) {
	mp.State = state
	mp.Last = nil
	mp.UpdatedAt = time.Now()
}

// EstimatedTimeRemaining extrapolates from the workers finished so far.
func (mp *MergeProgress) EstimatedTimeRemaining() time.Duration {
	if mp.Completed <= 0 || mp.Completed >= mp.Total {
		return 0
	}

	elapsed := mp.UpdatedAt.Sub(mp.StartTime)
	perTask := elapsed / time.Duration(mp.Completed)
	return perTask * time.Duration(mp.Total-mp.Completed)
}

// FormatSummary returns a human-readable summary of the progress.
func (mp *MergeProgress) FormatSummary() string {
	return fmt.Sprintf(
		"%s: %d/%d workers (%d failed) | %.1f%% | ETA: %s",
		mp.State,
		mp.Completed,
		mp.Total,
		mp.Failed,
		mp.Percent(),
		formatDuration(mp.EstimatedTimeRemaining()),
	)
}

// formatDuration converts a duration to a human-readable string
func formatDuration(d time.Duration) string {
	if d == 0 {
		return "calculating..."
	}

	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}

	minutes := seconds / 60
	seconds = seconds % 60

	if minutes < 60 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}

	hours := minutes / 60
	minutes = minutes % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}
