package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"ffmerge/models"
)

var (
	// ErrFailed matches every *FailedError via errors.Is.
	ErrFailed = errors.New("merge failed")
	// ErrCancelled is returned when the caller's context ends a merge.
	// It also wraps the context error.
	ErrCancelled = errors.New("merge cancelled")
	// ErrNoInputs is returned for a merge request without inputs.
	ErrNoInputs = errors.New("no inputs to merge")
)

// FailedError reports every stage that failed during a merge.
type FailedError struct {
	ID     string
	Stages []models.StageFailure
	// Cause is the error that stopped the merge, if any beyond the stages.
	Cause error
}

func (e *FailedError) Error() string {
	parts := make([]string, 0, len(e.Stages))
	for _, s := range e.Stages {
		parts = append(parts, s.String())
	}
	msg := fmt.Sprintf("merge %s failed: %d stage(s) failed", e.ID, len(e.Stages))
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, "; ")
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrFailed) match.
func (e *FailedError) Is(target error) bool {
	return target == ErrFailed
}

// Unwrap exposes the cause and every stage error, so errors.Is can match
// e.g. concatenator.ErrConcatFailed or orchestrator.ErrTaskTimeout.
func (e *FailedError) Unwrap() []error {
	var errs []error
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	for _, s := range e.Stages {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return errs
}

// FailedStages returns the stage failures carried by err, if any.
func FailedStages(err error) []models.StageFailure {
	var fe *FailedError
	if errors.As(err, &fe) {
		return fe.Stages
	}
	return nil
}
