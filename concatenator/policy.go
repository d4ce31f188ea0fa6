package concatenator

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"ffmerge/models"
)

var (
	// ErrNoResults is returned when there is nothing to select from.
	ErrNoResults = errors.New("no results provided")
	// ErrPartialFailure is returned under PolicyAbort when any worker failed.
	ErrPartialFailure = errors.New("some inputs failed to transcode")
	// ErrNoSuccessfulInputs is returned when every worker failed.
	ErrNoSuccessfulInputs = errors.New("no successful inputs to concatenate")
)

// Policy decides whether concatenation runs after a partial failure.
type Policy string

const (
	// PolicyAbort skips concatenation when any worker failed.
	PolicyAbort Policy = "abort"
	// PolicyProceed concatenates the successful workers and reports the rest.
	PolicyProceed Policy = "proceed"
)

// ParsePolicy parses a policy name. The empty string selects PolicyAbort.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyAbort:
		return PolicyAbort, nil
	case PolicyProceed:
		return PolicyProceed, nil
	default:
		return "", fmt.Errorf("unknown partial failure policy %q (want %s or %s)", s, PolicyAbort, PolicyProceed)
	}
}

// Selection is the outcome of applying a policy to worker outcomes.
type Selection struct {
	Inputs  []string             // temp outputs to concatenate, in input order
	Skipped []int                // input indices left out
	Failed  []models.TaskOutcome // outcomes that did not produce a usable output
}

// Select splits outcomes into usable and failed ones and applies policy.
//
// An outcome is usable when it succeeded and its output exists on disk.
// Usable inputs are ordered by Index, so the concatenation follows the
// caller's input order whatever order the workers finished in. The returned
// Selection is populated even when an error is returned.
func Select(policy Policy, outcomes []models.TaskOutcome) (Selection, error) {
	var sel Selection
	if len(outcomes) == 0 {
		return sel, ErrNoResults
	}

	var usable []models.TaskOutcome
	for _, o := range outcomes {
		if !o.Success || o.OutputPath == "" {
			sel.Failed = append(sel.Failed, o)
			continue
		}
		if _, err := os.Stat(o.OutputPath); err != nil {
			o.Success = false
			o.Status = models.TaskFailed
			o.Error = fmt.Errorf("output missing after successful run: %w", err)
			sel.Failed = append(sel.Failed, o)
			continue
		}
		usable = append(usable, o)
	}

	slices.SortFunc(usable, func(a, b models.TaskOutcome) int { return a.Index - b.Index })
	for _, o := range usable {
		sel.Inputs = append(sel.Inputs, o.OutputPath)
	}
	for _, o := range sel.Failed {
		sel.Skipped = append(sel.Skipped, o.Index)
	}
	slices.Sort(sel.Skipped)

	if len(usable) == 0 {
		return sel, ErrNoSuccessfulInputs
	}
	if len(sel.Failed) > 0 && policy != PolicyProceed {
		return sel, fmt.Errorf("%w: %d of %d (policy %s)", ErrPartialFailure, len(sel.Failed), len(outcomes), PolicyAbort)
	}
	return sel, nil
}
