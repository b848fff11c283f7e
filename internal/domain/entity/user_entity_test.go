package entity

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func mustUser(t *testing.T, email, name string) User {
	t.Helper()
	u, err := NewUser(email, name, t0)
	require.NoError(t, err)
	return u
}

func TestNewUserNormalizes(t *testing.T) {
	u := mustUser(t, "Alice@Example.COM", "  Alice  ")

	assert.Equal(t, "alice@example.com", u.Email())
	assert.Equal(t, "Alice", u.Name())
	assert.Equal(t, InitialUserStatus, u.Status())
	assert.True(t, u.IsActive())
	assert.Equal(t, t0, u.CreatedAt())
	assert.Equal(t, u.CreatedAt(), u.UpdatedAt())
	_, err := uuid.Parse(u.ID())
	assert.NoError(t, err)
}

func TestNewUserFreshIDs(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		u := mustUser(t, "a@b.com", "N")
		require.False(t, seen[u.ID()])
		seen[u.ID()] = true
	}
}

func TestNewUserStampsUTCMicroseconds(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	at := time.Date(2024, 5, 1, 19, 0, 0, 123456789, loc)

	u, err := NewUser("a@b.com", "N", at)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, u.CreatedAt().Location())
	assert.Equal(t, 123456000, u.CreatedAt().Nanosecond())
}

func TestMalformedEmails(t *testing.T) {
	for _, email := range []string{
		"",
		"alice",
		"alice.example.com",
		"alice@example",
		"alice@",
		"@example.com",
		"al ice@example.com",
		" alice@example.com",
		"alice@example.com\n",
		"alice@@example.com",
	} {
		t.Run(email, func(t *testing.T) {
			_, err := NewUser(email, "Alice", t0)
			require.ErrorIs(t, err, ErrValidation)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "email", verr.Field)

			u := mustUser(t, "ok@example.com", "Ok")
			_, err = u.Update(UserChanges{Email: &email}, t0)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestBlankName(t *testing.T) {
	_, err := NewUser("a@b.com", "   ", t0)
	require.ErrorIs(t, err, ErrValidation)

	u := mustUser(t, "a@b.com", "N")
	blank := ""
	_, err = u.Update(UserChanges{Name: &blank}, t0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestLengthLimits(t *testing.T) {
	longName := strings.Repeat("n", MaxNameLength+1)
	longEmail := strings.Repeat("a", MaxEmailLength-len("@b.com")+1) + "@b.com"
	require.Len(t, longEmail, MaxEmailLength+1)

	_, err := NewUser("a@b.com", longName, t0)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	_, err = NewUser(longEmail, "N", t0)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	// the limits count characters, not bytes
	_, err = NewUser("a@b.com", strings.Repeat("é", MaxNameLength), t0)
	require.NoError(t, err)
	_, err = NewUser(longEmail[1:], strings.Repeat("n", MaxNameLength), t0)
	require.NoError(t, err)

	u := mustUser(t, "a@b.com", "N")
	_, err = u.Update(UserChanges{Name: &longName}, t0)
	require.ErrorIs(t, err, ErrValidation)
	_, err = u.Update(UserChanges{Email: &longEmail}, t0)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateReturnsNewSnapshot(t *testing.T) {
	u := mustUser(t, "alice@example.com", "Alice")
	name, email := "Alicia", "ALICIA@example.com"

	next, err := u.Update(UserChanges{Name: &name, Email: &email}, t0.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "Alicia", next.Name())
	assert.Equal(t, "alicia@example.com", next.Email())
	assert.Equal(t, t0.Add(time.Minute), next.UpdatedAt())
	assert.Equal(t, u.ID(), next.ID())
	assert.Equal(t, u.CreatedAt(), next.CreatedAt())

	// the earlier snapshot is untouched
	assert.Equal(t, "Alice", u.Name())
	assert.Equal(t, t0, u.UpdatedAt())
}

func TestUpdateNeverMovesBeforeCreation(t *testing.T) {
	u := mustUser(t, "a@b.com", "N")
	name := "M"
	next, err := u.Update(UserChanges{Name: &name}, t0.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, u.CreatedAt(), next.UpdatedAt())
}

func TestTransitions(t *testing.T) {
	active := mustUser(t, "a@b.com", "N")

	inactive, err := active.Deactivate(t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, UserStatusInactive, inactive.Status())
	assert.False(t, inactive.IsActive())

	_, err = inactive.Deactivate(t0.Add(2 * time.Second))
	require.ErrorIs(t, err, ErrInvalidStateTransition)
	assert.EqualError(t, err, "user is already inactive")

	again, err := inactive.Activate(t0.Add(3 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, UserStatusActive, again.Status())

	_, err = again.Activate(t0.Add(4 * time.Second))
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	pending := RestoreUser(uuid.NewString(), "p@b.com", "P", UserStatusPending, t0, t0)
	_, err = pending.Deactivate(t0)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
	activated, err := pending.Activate(t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, UserStatusActive, activated.Status())

	suspended := RestoreUser(uuid.NewString(), "s@b.com", "S", UserStatusSuspended, t0, t0)
	_, err = suspended.Activate(t0)
	require.ErrorIs(t, err, ErrInvalidStateTransition)
	_, err = suspended.Deactivate(t0)
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	var terr *InvalidStateTransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, UserStatusSuspended, terr.From)
	assert.Equal(t, UserStatusInactive, terr.To)
}

func TestRestoreUserClampsUpdatedAt(t *testing.T) {
	u := RestoreUser("id", "a@b.com", "N", UserStatusActive, t0, t0.Add(-time.Minute))
	assert.Equal(t, t0, u.UpdatedAt())
}

func TestParseUserStatus(t *testing.T) {
	st, err := ParseUserStatus(" Inactive ")
	require.NoError(t, err)
	assert.Equal(t, UserStatusInactive, st)

	_, err = ParseUserStatus("deleted")
	require.ErrorIs(t, err, ErrValidation)
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
		msg  string
	}{
		{&ValidationError{Field: "email", Reason: "bad"}, ErrValidation, "email: bad"},
		{&NotFoundError{ID: "42"}, ErrNotFound, "user not found: 42"},
		{&DuplicateEmailError{Email: "a@b.com"}, ErrDuplicateEmail, "user with email 'a@b.com' already exists"},
		{&InvalidStateTransitionError{From: UserStatusPending, To: UserStatusInactive}, ErrInvalidStateTransition, "cannot transition user from pending to inactive"},
	}
	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.kind)
		assert.EqualError(t, tc.err, tc.msg)
		assert.True(t, IsDomainError(tc.err))
	}
	assert.False(t, IsDomainError(errors.New("connection reset")))
}
