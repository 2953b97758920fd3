package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced to callers.
type ErrorKind string

// Error kinds. Every error returned by the service carries exactly one.
const (
	KindValidation       ErrorKind = "validation"
	KindConflict         ErrorKind = "conflict"
	KindNotFound         ErrorKind = "not_found"
	KindPermission       ErrorKind = "permission"
	KindParentNotVisible ErrorKind = "parent_not_visible"
	KindInternal         ErrorKind = "internal"
)

// Error is the typed failure returned by domain operations.
type Error struct {
	Kind     ErrorKind
	Entity   EntityType
	EntityID string
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Reason
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels (ErrValidation, ErrConflict, ...).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return t.sentinel() && t.Kind == e.Kind
}

func (e *Error) sentinel() bool {
	return e.Reason == "" && e.EntityID == "" && e.Entity == "" && e.Err == nil
}

// Kind sentinels for errors.Is checks.
var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrPermission       = &Error{Kind: KindPermission}
	ErrParentNotVisible = &Error{Kind: KindParentNotVisible}
)

// NewValidationError reports malformed input.
func NewValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

// NewConflictError reports a uniqueness or concurrency conflict.
func NewConflictError(entity EntityType, id string, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Entity: entity, EntityID: id, Reason: fmt.Sprintf(format, args...)}
}

// NewNotFoundError reports an unknown entity.
func NewNotFoundError(entity EntityType, id string) *Error {
	return &Error{Kind: KindNotFound, Entity: entity, EntityID: id, Reason: fmt.Sprintf("%s %q not found", entity, id)}
}

// NewPermissionError reports a failed role or assignment check.
func NewPermissionError(format string, args ...any) *Error {
	return &Error{Kind: KindPermission, Reason: fmt.Sprintf(format, args...)}
}

// NewParentNotVisibleError reports a mutation attempted on a hidden item.
func NewParentNotVisibleError(itemID string, operation string) *Error {
	return &Error{
		Kind:     KindParentNotVisible,
		Entity:   EntityRoomItem,
		EntityID: itemID,
		Reason:   fmt.Sprintf("cannot %s: item %q is removed from use", operation, itemID),
	}
}

// KindOf extracts the error kind, treating blocking rule results as conflicts.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	var rv RuleViolationError
	if errors.As(err, &rv) {
		return KindConflict
	}
	return KindInternal
}
