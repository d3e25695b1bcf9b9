// Package apperr defines the error taxonomy of a translation run and maps
// errors to run outcomes and process exit codes.
package apperr

import (
	"errors"
	"strings"
)

var (
	ErrMissingFile     = errors.New("missing required file")
	ErrRequestFailed   = errors.New("model request failed")
	ErrMalformedOutput = errors.New("model output did not contain required fenced blocks")
	ErrValidation      = errors.New("draft failed structural validation")
)

// MissingFileError lists every required path that was not found.
type MissingFileError struct {
	Paths []string
}

func (e *MissingFileError) Error() string {
	return ErrMissingFile.Error() + ": " + strings.Join(e.Paths, ", ")
}

func (e *MissingFileError) Unwrap() error { return ErrMissingFile }

// Outcome is the terminal state of a single run.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeMissingFiles
	OutcomeRequestFailure
	OutcomeMalformedOutput
	OutcomeValidationWarning
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeMissingFiles:
		return "missing-files"
	case OutcomeRequestFailure:
		return "request-failure"
	case OutcomeMalformedOutput:
		return "malformed-output"
	case OutcomeValidationWarning:
		return "validation-warning"
	default:
		return "error"
	}
}

// ExitCode returns the process exit status for the outcome.
func (o Outcome) ExitCode() int {
	if o == OutcomeSuccess {
		return 0
	}
	return 1
}

// OutcomeOf classifies err. A nil error is a success.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrMissingFile):
		return OutcomeMissingFiles
	case errors.Is(err, ErrRequestFailed):
		return OutcomeRequestFailure
	case errors.Is(err, ErrMalformedOutput):
		return OutcomeMalformedOutput
	case errors.Is(err, ErrValidation):
		return OutcomeValidationWarning
	default:
		return OutcomeError
	}
}
