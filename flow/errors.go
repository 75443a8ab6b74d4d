package flow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for the handshake failure taxonomy. None of them are
// process-fatal: every one terminates the current attempt and returns the
// orchestrator to idle.
var (
	ErrAttemptInProgress       = errors.New("flow: attempt already in progress")
	ErrEnvironmentNotSupported = errors.New("flow: strategy not supported in this environment")
	ErrPopupBlocked            = errors.New("flow: popup blocked")
	ErrWidgetLoadFailed        = errors.New("flow: widget failed to load")
	ErrCancelled               = errors.New("flow: cancelled")
	ErrTimedOut                = errors.New("flow: timed out")
	ErrEmptyCredential         = errors.New("flow: empty credential payload")
)

// ValidationError carries field-keyed messages for local validation
// failures. It never becomes a pending attempt and never reaches the
// network.
type ValidationError map[string]string

func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// BackendError reports an exchange that completed but was rejected by the
// backend. Message is the backend-provided user-facing text, if any.
type BackendError struct {
	StatusCode int
	Message    string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend rejected exchange (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("backend rejected exchange (status %d): %s", e.StatusCode, e.Message)
}

// NetworkError reports an exchange call that could not complete at all.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }
