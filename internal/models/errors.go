// Package models: error taxonomy surfaced at the core boundary.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared across modules.
var (
	ErrNotFound               = errors.New("record not found")
	ErrAccessDenied           = errors.New("access denied")
	ErrQuotaExhausted         = errors.New("quota exhausted")
	ErrEventAlreadyInProgress = errors.New("event already in progress")
)

// ValidationItem is a single shape-level violation with a field path,
// rendered verbatim to callers.
type ValidationItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationError carries one or more shape-level violations.
type ValidationError struct {
	Items []ValidationItem
}

func (e *ValidationError) Error() string {
	if len(e.Items) == 1 {
		return e.Items[0].Msg
	}
	msgs := make([]string, len(e.Items))
	for i, item := range e.Items {
		msgs[i] = item.Msg
	}
	return strings.Join(msgs, "; ")
}

// NewValidationError builds a single-item ValidationError with the given
// field path and message.
func NewValidationError(msg string, loc ...string) *ValidationError {
	return &ValidationError{Items: []ValidationItem{{Loc: loc, Msg: msg, Type: "value_error"}}}
}

// ReferentialIntegrityError reports a reference to an artifact that does not
// exist as the expected kind, or a deletion blocked by a live reference.
type ReferentialIntegrityError struct {
	Name string
	Kind ArtifactKind
	Msg  string
}

func (e *ReferentialIntegrityError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("%s %q does not exist", e.Kind, e.Name)
}

// AlreadyExistsError reports a (tenant, kind, canonical name) uniqueness
// conflict.
type AlreadyExistsError struct {
	Name string
	Kind ArtifactKind
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with name %q already exists", e.Kind, e.Name)
}

// NotFoundError reports a lookup miss for a named artifact.
type NotFoundError struct {
	Name string
	Kind ArtifactKind
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// DailyLimitExceededError reports quota exhaustion for a named limit.
type DailyLimitExceededError struct {
	Quota string
	Limit int
}

func (e *DailyLimitExceededError) Error() string {
	return fmt.Sprintf("daily limit exceeded for %s (%d per day)", e.Quota, e.Limit)
}

// EventAlreadyInProgressError reports a second attempt to start an exclusive
// per-tenant operation while one is running.
type EventAlreadyInProgressError struct {
	Tenant string
	Class  string
}

func (e *EventAlreadyInProgressError) Error() string {
	return fmt.Sprintf("event of type %s is already in progress for bot %s", e.Class, e.Tenant)
}
