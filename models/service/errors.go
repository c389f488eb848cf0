package service

import (
	"fmt"
	"runtime"
)

const (
	// ErrKindRead covers malformed XML, unsupported namespaces and
	// failures of the underlying reader.
	ErrKindRead = "read"
	// ErrKindValidation covers semantic violations found while
	// building or resolving the archive unit graph.
	ErrKindValidation = "validation"
	// ErrKindInfrastructure covers failures of the services around a
	// parse (S3, Redis, NSQ, the registry). These are worth retrying.
	ErrKindInfrastructure = "infrastructure"
)

// ManifestError describes why a manifest could not be transformed.
// Operation is a short label for the step that failed (e.g.
// "register unit", "splice alias"). Identifier is the xml id of the
// offending element when there is one. Any ManifestError aborts the
// whole parse.
type ManifestError struct {
	Err        error  `json:"-"`
	Identifier string `json:"identifier,omitempty"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Operation  string `json:"operation"`
	Source     string `json:"source,omitempty"`
}

// NewReadError wraps a reader or decoder failure under the single
// "manifest read failed" classification.
func NewReadError(operation string, err error) *ManifestError {
	return &ManifestError{
		Err:       err,
		Kind:      ErrKindRead,
		Message:   err.Error(),
		Operation: operation,
		Source:    callerSource(),
	}
}

// NewInfrastructureError wraps a failure of a supporting service.
func NewInfrastructureError(operation string, err error) *ManifestError {
	return &ManifestError{
		Err:       err,
		Kind:      ErrKindInfrastructure,
		Message:   err.Error(),
		Operation: operation,
		Source:    callerSource(),
	}
}

// NewValidationError returns a semantic error. The message should name
// the offending xml id and the constraint it broke, so an operator can
// find the element without re-reading the manifest.
func NewValidationError(operation, identifier, format string, a ...interface{}) *ManifestError {
	return &ManifestError{
		Identifier: identifier,
		Kind:       ErrKindValidation,
		Message:    fmt.Sprintf(format, a...),
		Operation:  operation,
		Source:     callerSource(),
	}
}

// WrapValidationError attaches a collaborator's error to a validation
// failure on identifier.
func WrapValidationError(operation, identifier string, err error) *ManifestError {
	e := NewValidationError(operation, identifier, "%s", err.Error())
	e.Err = err
	e.Source = callerSource()
	return e
}

func callerSource() string {
	_, filename, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", filename, line)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

func (e *ManifestError) Error() string {
	if e.Kind == ErrKindRead {
		return fmt.Sprintf("manifest read failed: %s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

// Detail returns the message along with the error's source location.
func (e *ManifestError) Detail() string {
	return fmt.Sprintf("(kind: %s) (operation: %s) (identifier: %s) "+
		"(message: %s) (source: %s)", e.Kind, e.Operation, e.Identifier,
		e.Message, e.Source)
}

// IsRead returns true if this error came from reading the stream
// rather than from a semantic check.
func (e *ManifestError) IsRead() bool {
	return e.Kind == ErrKindRead
}

// IsFatal returns true if retrying the same manifest cannot succeed.
func (e *ManifestError) IsFatal() bool {
	return e.Kind != ErrKindInfrastructure
}
