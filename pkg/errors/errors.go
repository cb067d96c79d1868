package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies messaging-layer errors.
type ErrorCode string

const (
	ErrCodeGrant        ErrorCode = "GRANT_FAILED"
	ErrCodePublish      ErrorCode = "PUBLISH_FAILED"
	ErrCodeFetch        ErrorCode = "FETCH_FAILED"
	ErrCodeFetchTimeout ErrorCode = "FETCH_TIMEOUT"
	ErrCodeQueue        ErrorCode = "QUEUE_FAILED"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// MessagingError is a typed messaging-layer error with a code and cause.
// Failures in the messaging layer never fail the enclosing request; callers
// log them and continue.
type MessagingError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *MessagingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *MessagingError) Unwrap() error {
	return e.Cause
}

// NewGrantError reports that the backend rejected or could not process a
// grant or revoke command.
func NewGrantError(reason string, cause error) *MessagingError {
	return &MessagingError{Code: ErrCodeGrant, Message: reason, Cause: cause}
}

// NewPublishError reports that the backend rejected or timed out on publish.
func NewPublishError(reason string, cause error) *MessagingError {
	return &MessagingError{Code: ErrCodePublish, Message: reason, Cause: cause}
}

// NewFetchError reports a failed background detail fetch.
func NewFetchError(reason string, cause error) *MessagingError {
	return &MessagingError{Code: ErrCodeFetch, Message: reason, Cause: cause}
}

// NewFetchTimeoutError reports a background detail fetch that exceeded its
// deadline.
func NewFetchTimeoutError(reason string) *MessagingError {
	return &MessagingError{Code: ErrCodeFetchTimeout, Message: reason}
}

// NewQueueError reports a work-queue delivery failure.
func NewQueueError(reason string, cause error) *MessagingError {
	return &MessagingError{Code: ErrCodeQueue, Message: reason, Cause: cause}
}

// HasCode reports whether err (or anything it wraps) is a MessagingError
// with the given code.
func HasCode(err error, code ErrorCode) bool {
	var me *MessagingError
	if errors.As(err, &me) {
		return me.Code == code
	}
	return false
}

// PrincipalFailure records one failed grant or revoke within a fan-out.
type PrincipalFailure struct {
	Principal string
	Err       error
}

// Aggregate collects per-principal failures from a concurrent grant/revoke
// fan-out. The fan-out is not transactional; principals that succeed stay
// granted even when others fail.
type Aggregate struct {
	Op       string
	Failures []PrincipalFailure
}

func (a *Aggregate) Error() string {
	names := make([]string, len(a.Failures))
	for i, f := range a.Failures {
		names[i] = f.Principal
	}
	return fmt.Sprintf("%s failed for %d principal(s): %s", a.Op, len(a.Failures), strings.Join(names, ", "))
}

// Len returns the number of recorded failures.
func (a *Aggregate) Len() int {
	return len(a.Failures)
}

// OrNil returns the aggregate as an error, or nil if nothing failed.
func (a *Aggregate) OrNil() error {
	if len(a.Failures) == 0 {
		return nil
	}
	return a
}
