package vcs

import (
	"errors"
	"fmt"
	"strings"
)

const (
	operationErrorTemplateConstant      = "%s %s: %v"
	operationErrorShortTemplateConstant = "%s: %v"
	unknownOperationCauseMessage        = "unknown failure"
)

// Error classes shared by every Client implementation.
var (
	// ErrNotAGitRepository indicates the path does not contain a git working copy.
	ErrNotAGitRepository = errors.New("not a git repository")
	// ErrAuthentication indicates the remote refused the credentials. Never retried.
	ErrAuthentication = errors.New("authentication failed")
	// ErrRejected indicates the remote refused the update (non-fast-forward, protected ref). Never retried.
	ErrRejected = errors.New("remote rejected update")
	// ErrTransport indicates a transient network failure. Retried with backoff.
	ErrTransport = errors.New("transport failure")
	// ErrTagExists indicates a tag with the requested name already exists.
	ErrTagExists = errors.New("tag already exists")
	// ErrTagMissing indicates the requested tag does not exist.
	ErrTagMissing = errors.New("tag does not exist")
	// ErrBranchMissing indicates the requested branch does not exist.
	ErrBranchMissing = errors.New("branch does not exist")
	// ErrHandleNotConfigured indicates an operation received a nil or foreign handle.
	ErrHandleNotConfigured = errors.New("repository handle not configured")
)

// OperationError attaches the failing operation and working copy to a classified cause.
type OperationError struct {
	Operation string
	Path      string
	Kind      error
	Cause     error
}

// NewOperationError classifies cause under kind for operation on path.
func NewOperationError(operation string, path string, kind error, cause error) *OperationError {
	return &OperationError{Operation: operation, Path: path, Kind: kind, Cause: cause}
}

// Error describes the failed operation.
func (operationError *OperationError) Error() string {
	cause := operationError.Cause
	if cause == nil {
		cause = operationError.Kind
	}
	if cause == nil {
		cause = errors.New(unknownOperationCauseMessage)
	}
	if len(strings.TrimSpace(operationError.Path)) == 0 {
		return fmt.Sprintf(operationErrorShortTemplateConstant, operationError.Operation, describeCause(operationError.Kind, cause))
	}
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.Path, describeCause(operationError.Kind, cause))
}

// Unwrap exposes both the error class and the underlying cause to errors.Is and errors.As.
func (operationError *OperationError) Unwrap() []error {
	unwrapped := make([]error, 0, 2)
	if operationError.Kind != nil {
		unwrapped = append(unwrapped, operationError.Kind)
	}
	if operationError.Cause != nil {
		unwrapped = append(unwrapped, operationError.Cause)
	}
	return unwrapped
}

// IsRetryable reports whether err is a transient transport failure.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAuthentication) || errors.Is(err, ErrRejected) {
		return false
	}
	return errors.Is(err, ErrTransport)
}

func describeCause(kind error, cause error) string {
	if kind == nil || errors.Is(cause, kind) {
		return cause.Error()
	}
	return kind.Error() + ": " + cause.Error()
}
