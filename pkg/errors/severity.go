// Package errors provides severity-aware error types.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// GridError is a structured error with context.
type GridError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Recoverable bool     `json:"recoverable"`
	Err         error    `json:"-"`
}

func (e *GridError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Severity, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

func (e *GridError) Unwrap() error { return e.Err }

// Error codes
const (
	ErrCodeLoadFailed     = "LOAD_FAILED"
	ErrCodeExecuteFailed  = "EXECUTE_FAILED"
	ErrCodeInvalidPayload = "INVALID_PAYLOAD"
	ErrCodeMergeDisabled  = "MERGE_DISABLED"
	ErrCodeMergeConflict  = "MERGE_CONFLICT"
	ErrCodeUnknownView    = "UNKNOWN_VIEW"
)

// NewLoadFailedError wraps a census source failure. Load failures are
// recoverable: the caller falls back to the sample table.
func NewLoadFailedError(driver string, err error) *GridError {
	return &GridError{
		Code:        ErrCodeLoadFailed,
		Message:     fmt.Sprintf("could not load census from %s", driver),
		Severity:    SeverityWarning,
		Recoverable: true,
		Err:         err,
	}
}

// NewExecuteFailedError wraps an unexpected failure while building a view.
func NewExecuteFailedError(err error) *GridError {
	return &GridError{
		Code:        ErrCodeExecuteFailed,
		Message:     "execute failed",
		Severity:    SeverityError,
		Recoverable: true,
		Err:         err,
	}
}

// NewInvalidPayloadError reports a request body that failed decoding or validation.
func NewInvalidPayloadError(detail string) *GridError {
	return &GridError{
		Code:        ErrCodeInvalidPayload,
		Message:     detail,
		Severity:    SeverityInfo,
		Recoverable: true,
	}
}

// NewMergeConflictError reports a merge that lost its compare-and-swap race too often.
func NewMergeConflictError(attempts int) *GridError {
	return &GridError{
		Code:        ErrCodeMergeConflict,
		Message:     fmt.Sprintf("master table changed during merge (%d attempts)", attempts),
		Severity:    SeverityWarning,
		Recoverable: true,
	}
}

// CodeOf returns the code of the first GridError in err's chain, or "".
func CodeOf(err error) string {
	var ge *GridError
	if stderrors.As(err, &ge) {
		return ge.Code
	}
	return ""
}
