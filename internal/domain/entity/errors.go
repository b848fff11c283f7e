package entity

import (
	"errors"
	"fmt"
)

// Error kinds of the user domain. Match them with errors.Is; use errors.As
// with the typed errors below to get the details.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("user not found")
	ErrDuplicateEmail         = errors.New("email already in use")
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

// ValidationError reports malformed input detected by the entity.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports a missing user.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return "user not found: " + e.ID }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DuplicateEmailError reports an email owned by another user. It is raised by
// the use cases and by storage adapters when their unique constraint fires.
type DuplicateEmailError struct {
	Email string
}

func (e *DuplicateEmailError) Error() string {
	return fmt.Sprintf("user with email '%s' already exists", e.Email)
}

func (e *DuplicateEmailError) Is(target error) bool { return target == ErrDuplicateEmail }

// InvalidStateTransitionError reports a status change the state machine
// does not allow.
type InvalidStateTransitionError struct {
	From UserStatus
	To   UserStatus
}

func (e *InvalidStateTransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("user is already %s", e.From)
	}
	return fmt.Sprintf("cannot transition user from %s to %s", e.From, e.To)
}

func (e *InvalidStateTransitionError) Is(target error) bool {
	return target == ErrInvalidStateTransition
}

// IsDomainError reports whether err belongs to one of the domain kinds.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicateEmail) ||
		errors.Is(err, ErrInvalidStateTransition)
}
