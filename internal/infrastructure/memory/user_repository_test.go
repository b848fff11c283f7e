package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newUser(t *testing.T, email string, at time.Time) *entity.User {
	t.Helper()
	u, err := entity.NewUser(email, "User", at)
	require.NoError(t, err)
	return &u
}

func TestRoundTrip(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	u := newUser(t, "a@b.com", base)

	_, err := repo.Save(ctx, u)
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, u.ID())
	require.NoError(t, err)
	require.Equal(t, *u, *got)

	byEmail, err := repo.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	require.Equal(t, *u, *byEmail)

	missing, err := repo.FindByID(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestSaveRejectsForeignEmail(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	_, err := repo.Save(ctx, newUser(t, "a@b.com", base))
	require.NoError(t, err)
	_, err = repo.Save(ctx, newUser(t, "a@b.com", base))
	require.ErrorIs(t, err, entity.ErrDuplicateEmail)

	n, err := repo.Count(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestSaveReindexesChangedEmail(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	u := newUser(t, "old@b.com", base)
	_, err := repo.Save(ctx, u)
	require.NoError(t, err)

	email := "new@b.com"
	next, err := u.Update(entity.UserChanges{Email: &email}, base.Add(time.Minute))
	require.NoError(t, err)
	_, err = repo.Save(ctx, &next)
	require.NoError(t, err)

	old, err := repo.FindByEmail(ctx, "old@b.com")
	require.NoError(t, err)
	assert.Nil(t, old)

	// the old address is free again
	_, err = repo.Save(ctx, newUser(t, "old@b.com", base))
	require.NoError(t, err)
}

func TestSaveKeepsCreatedAt(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	u := newUser(t, "a@b.com", base)
	_, err := repo.Save(ctx, u)
	require.NoError(t, err)

	forged := entity.RestoreUser(u.ID(), u.Email(), "Other", u.Status(), base.Add(time.Hour), base.Add(2*time.Hour))
	saved, err := repo.Save(ctx, &forged)
	require.NoError(t, err)
	assert.Equal(t, base, saved.CreatedAt())
	assert.Equal(t, "Other", saved.Name())
}

func TestFindAllOrderingAndPaging(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		u := newUser(t, fmt.Sprintf("u%d@b.com", i), base.Add(time.Duration(i)*time.Minute))
		if i == 1 || i == 3 {
			next, err := u.Deactivate(base.Add(time.Hour))
			require.NoError(t, err)
			u = &next
		}
		_, err := repo.Save(ctx, u)
		require.NoError(t, err)
		ids = append(ids, u.ID())
	}

	page, err := repo.FindAll(ctx, 2, 0, "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[4], page[0].ID())
	assert.Equal(t, ids[3], page[1].ID())

	tail, err := repo.FindAll(ctx, 2, 4, "")
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, ids[0], tail[0].ID())

	past, err := repo.FindAll(ctx, 2, 9, "")
	require.NoError(t, err)
	assert.Empty(t, past)

	inactive, err := repo.FindAll(ctx, 10, 0, entity.UserStatusInactive)
	require.NoError(t, err)
	require.Len(t, inactive, 2)
	assert.Equal(t, ids[3], inactive[0].ID())

	total, err := repo.Count(ctx, entity.UserStatusActive)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestFindAllTieBreaksOnID(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := repo.Save(ctx, newUser(t, fmt.Sprintf("t%d@b.com", i), base))
		require.NoError(t, err)
	}

	all, err := repo.FindAll(ctx, 10, 0, "")
	require.NoError(t, err)
	for i := 1; i < len(all); i++ {
		assert.Greater(t, all[i-1].ID(), all[i].ID())
	}
}

func TestFindAfterWalksByCursor(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	// two share a timestamp so the id tie-break is crossed mid-walk
	for i, at := range []time.Time{base, base.Add(time.Minute), base.Add(time.Minute), base.Add(2 * time.Minute)} {
		_, err := repo.Save(ctx, newUser(t, fmt.Sprintf("c%d@b.com", i), at))
		require.NoError(t, err)
	}
	want, err := repo.FindAll(ctx, 10, 0, "")
	require.NoError(t, err)

	var got []*entity.User
	var cursor *repository.Cursor
	for {
		page, err := repo.FindAfter(ctx, cursor, 1)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		got = append(got, page...)
		cursor = repository.CursorAt(page[0])

		// newer rows never show up behind the cursor
		_, err = repo.Save(ctx, newUser(t, fmt.Sprintf("n%d@b.com", len(got)), base.Add(time.Hour)))
		require.NoError(t, err)
	}
	require.Equal(t, want, got)
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	u := newUser(t, "a@b.com", base)
	_, err := repo.Save(ctx, u)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, u.ID()))
	require.NoError(t, repo.Delete(ctx, u.ID()))

	got, err := repo.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestConcurrentSavesOfSameEmail(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := entity.NewUser("race@b.com", "Racer", base)
			if err != nil {
				return
			}
			if _, err := repo.Save(ctx, &u); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	n, err := repo.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
