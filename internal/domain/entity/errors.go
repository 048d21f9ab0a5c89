package entity

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the pipeline's failure taxonomy.
type ErrorKind string

const (
	KindCancelled                   ErrorKind = "CANCELLED"
	KindClassifierUnavailable       ErrorKind = "CLASSIFIER_UNAVAILABLE"
	KindTransactionSourceUnavailable ErrorKind = "TRANSACTION_SOURCE_UNAVAILABLE"
	KindResourceLimitExceeded       ErrorKind = "RESOURCE_LIMIT_EXCEEDED"
	KindInvalidInput                ErrorKind = "INVALID_INPUT"
	KindInternalInvariantViolation  ErrorKind = "INTERNAL_INVARIANT_VIOLATION"
)

// AnalysisError wraps an underlying error with the stage it occurred in and
// its error kind, following the standard fmt.Errorf("...: %w", err)
// wrapping idiom but keeping the kind machine-inspectable.
type AnalysisError struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

func NewAnalysisError(kind ErrorKind, stage string, err error) *AnalysisError {
	return &AnalysisError{Kind: kind, Stage: stage, Err: err}
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from err if it is (or wraps) an
// AnalysisError, returning ok=false otherwise.
func KindOf(err error) (ErrorKind, bool) {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}
