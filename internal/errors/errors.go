package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the scan and lookup failure taxonomy
var (
	// ErrToolNotFound indicates the wrapped executable is missing from PATH
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolTimeout indicates a tool exceeded its allotted duration
	ErrToolTimeout = errors.New("tool timed out")

	// ErrUnmappedExitCode indicates an exit code absent from a tool's rule table
	ErrUnmappedExitCode = errors.New("unmapped exit code")

	// ErrNoCredentials indicates the live lookup tier has no usable credentials
	ErrNoCredentials = errors.New("no credentials")

	// ErrDistributionUnknown indicates no detection pattern matched an image name
	ErrDistributionUnknown = errors.New("distribution unknown")

	// ErrSourceUnavailable indicates a lookup source could not be reached
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates invalid input data
	ErrInvalidInput = errors.New("invalid input")
)

// ReasonCode is a short machine-readable marker attached to a degraded
// alternative lookup for display in the final report.
type ReasonCode string

const (
	ReasonNone                ReasonCode = ""
	ReasonNoCredentials       ReasonCode = "no_credentials"
	ReasonUsingOfflineData    ReasonCode = "using_offline_data"
	ReasonUnknownDistribution ReasonCode = "unknown_distribution"
	ReasonLookupFailed        ReasonCode = "lookup_failed"
)

// LookupError wraps a non-fatal alternative-lookup failure. It never
// propagates out of the resolver as a hard error; callers use ReasonOf to
// surface the reason code in reports.
type LookupError struct {
	Reason ReasonCode
	Cause  error
}

func (e *LookupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("lookup failed (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("lookup failed (%s)", e.Reason)
}

func (e *LookupError) Unwrap() error {
	return e.Cause
}

// NewLookup creates a lookup error carrying a reason code
func NewLookup(reason ReasonCode, cause error) error {
	return &LookupError{Reason: reason, Cause: cause}
}

// ReasonOf extracts the reason code from an error chain, or ReasonNone
func ReasonOf(err error) ReasonCode {
	var lookupErr *LookupError
	if errors.As(err, &lookupErr) {
		return lookupErr.Reason
	}
	return ReasonNone
}

// TransientError wraps an error to mark it as transient (retryable)
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transient error: %v", e.Cause)
	}
	return "transient error"
}

func (e *TransientError) Unwrap() error {
	return e.Cause
}

// NewTransient creates a new transient error
func NewTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Cause: err}
}

// NewTransientf creates a new transient error with formatting
func NewTransientf(format string, args ...interface{}) error {
	return &TransientError{Cause: fmt.Errorf(format, args...)}
}

// PermanentError wraps an error to mark it as permanent (not retryable)
type PermanentError struct {
	Cause error
}

func (e *PermanentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("permanent error: %v", e.Cause)
	}
	return "permanent error"
}

func (e *PermanentError) Unwrap() error {
	return e.Cause
}

// NewPermanent creates a new permanent error
func NewPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Cause: err}
}

// NewPermanentf creates a new permanent error with formatting
func NewPermanentf(format string, args ...interface{}) error {
	return &PermanentError{Cause: fmt.Errorf(format, args...)}
}

// IsTransient checks if an error is transient using errors.As
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return true
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		return false
	}

	if errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNoCredentials) ||
		errors.Is(err, ErrDistributionUnknown) {
		return false
	}

	if errors.Is(err, ErrToolTimeout) ||
		errors.Is(err, ErrSourceUnavailable) {
		return true
	}

	// Default to non-transient for safety (don't retry unknown errors)
	return false
}

// IsPermanent checks if an error is permanent (not retryable)
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var permanentErr *PermanentError
	return errors.As(err, &permanentErr)
}

// IsLookupFailure reports whether an error originated in the alternative
// lookup chain. Lookup failures are always non-fatal to the scan.
func IsLookupFailure(err error) bool {
	if err == nil {
		return false
	}
	var lookupErr *LookupError
	return errors.As(err, &lookupErr)
}
