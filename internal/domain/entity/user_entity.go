package entity

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// UserStatus is the lifecycle state of a user.
type UserStatus string

const (
	UserStatusPending  UserStatus = "pending"
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	// UserStatusSuspended is reserved for administrative action; no transition
	// leads into or out of it yet.
	UserStatusSuspended UserStatus = "suspended"
)

// InitialUserStatus is the status every new user starts in. Users are usable
// right after creation; PENDING is only reached through restored records.
const InitialUserStatus = UserStatusActive

// ParseUserStatus validates s against the closed set of statuses.
func ParseUserStatus(s string) (UserStatus, error) {
	st := UserStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", &ValidationError{Field: "status", Reason: "unknown status " + s}
	}
	return st, nil
}

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusPending, UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	}
	return false
}

func (s UserStatus) String() string { return string(s) }

// Length limits in characters, matching the users table columns.
const (
	MaxEmailLength = 255
	MaxNameLength  = 100
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is the aggregate root for the user domain.
//
// Fields are unexported so every change goes through a method that keeps the
// invariants. Mutating methods take the receiver by value and return a new
// snapshot; the old value stays untouched.
type User struct {
	id        string
	email     string
	name      string
	status    UserStatus
	createdAt time.Time
	updatedAt time.Time
}

// UserChanges holds the optional fields accepted by Update. Nil means keep.
type UserChanges struct {
	Email *string
	Name  *string
}

// NewUser validates email and name and builds a fresh user with a new id.
func NewUser(email, name string, at time.Time) (User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	n, err := validateName(name)
	if err != nil {
		return User{}, err
	}
	at = stamp(at)
	return User{
		id:        uuid.NewString(),
		email:     normalized,
		name:      n,
		status:    InitialUserStatus,
		createdAt: at,
		updatedAt: at,
	}, nil
}

// RestoreUser rebuilds a user from persisted state. It skips factory
// validation; storage is trusted to hold values that passed it before.
func RestoreUser(id, email, name string, status UserStatus, createdAt, updatedAt time.Time) User {
	createdAt = stamp(createdAt)
	updatedAt = stamp(updatedAt)
	if updatedAt.Before(createdAt) {
		updatedAt = createdAt
	}
	return User{
		id:        id,
		email:     email,
		name:      name,
		status:    status,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (u User) ID() string           { return u.id }
func (u User) Email() string        { return u.email }
func (u User) Name() string         { return u.name }
func (u User) Status() UserStatus   { return u.status }
func (u User) CreatedAt() time.Time { return u.createdAt }
func (u User) UpdatedAt() time.Time { return u.updatedAt }
func (u User) IsActive() bool       { return u.status == UserStatusActive }

// Update returns a copy of u with the supplied fields replaced. Email shape is
// checked again; uniqueness is the caller's concern.
func (u User) Update(ch UserChanges, at time.Time) (User, error) {
	next := u
	if ch.Email != nil {
		e, err := NormalizeEmail(*ch.Email)
		if err != nil {
			return User{}, err
		}
		next.email = e
	}
	if ch.Name != nil {
		n, err := validateName(*ch.Name)
		if err != nil {
			return User{}, err
		}
		next.name = n
	}
	next.touch(at)
	return next, nil
}

// Activate moves a pending or inactive user to active.
func (u User) Activate(at time.Time) (User, error) {
	if u.status != UserStatusPending && u.status != UserStatusInactive {
		return User{}, &InvalidStateTransitionError{From: u.status, To: UserStatusActive}
	}
	next := u
	next.status = UserStatusActive
	next.touch(at)
	return next, nil
}

// Deactivate moves an active user to inactive.
func (u User) Deactivate(at time.Time) (User, error) {
	if u.status != UserStatusActive {
		return User{}, &InvalidStateTransitionError{From: u.status, To: UserStatusInactive}
	}
	next := u
	next.status = UserStatusInactive
	next.touch(at)
	return next, nil
}

func (u *User) touch(at time.Time) {
	at = stamp(at)
	if at.Before(u.createdAt) {
		at = u.createdAt
	}
	u.updatedAt = at
}

// NormalizeEmail lower-cases email and checks its shape. Whitespace anywhere
// in the address is rejected rather than trimmed.
func NormalizeEmail(email string) (string, error) {
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return "", &ValidationError{Field: "email", Reason: "must be at most " + strconv.Itoa(MaxEmailLength) + " characters"}
	}
	e := strings.ToLower(email)
	if !emailPattern.MatchString(e) {
		return "", &ValidationError{Field: "email", Reason: "invalid email: " + email}
	}
	return e, nil
}

func validateName(name string) (string, error) {
	n := strings.TrimSpace(name)
	if n == "" {
		return "", &ValidationError{Field: "name", Reason: "name is required"}
	}
	if utf8.RuneCountInString(n) > MaxNameLength {
		return "", &ValidationError{Field: "name", Reason: "must be at most " + strconv.Itoa(MaxNameLength) + " characters"}
	}
	return n, nil
}

// stamp keeps timestamps in UTC at the precision postgres stores.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
