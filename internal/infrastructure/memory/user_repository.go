// Package memory provides a process-local UserRepository. It backs
// REPOSITORY_DRIVER=memory for local runs and doubles as a test fake.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]entity.User
	byEmail map[string]string // email -> id, the uniqueness index
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]entity.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	u := r.byID[id]
	return &u, nil
}

func (r *UserRepository) FindAll(_ context.Context, limit, offset int, status entity.UserStatus) ([]*entity.User, error) {
	r.mu.RLock()
	matched := r.filter(status)
	r.mu.RUnlock()
	sortNewestFirst(matched)

	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []*entity.User{}, nil
	}
	end := len(matched)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], nil
}

func (r *UserRepository) FindAfter(_ context.Context, cursor *repository.Cursor, limit int) ([]*entity.User, error) {
	r.mu.RLock()
	all := r.filter("")
	r.mu.RUnlock()
	sortNewestFirst(all)

	out := make([]*entity.User, 0, limit)
	for _, u := range all {
		if len(out) == limit {
			break
		}
		if cursor != nil && !pastCursor(cursor, u) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (r *UserRepository) Count(_ context.Context, status entity.UserStatus) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.filter(status)), nil
}

// Save upserts by id. Like the postgres unique index, it refuses an email
// already owned by another id.
func (r *UserRepository) Save(_ context.Context, u *entity.User) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.byEmail[u.Email()]; ok && owner != u.ID() {
		return nil, &entity.DuplicateEmailError{Email: u.Email()}
	}

	stored := *u
	if prev, ok := r.byID[u.ID()]; ok {
		// created_at is immutable once stored
		stored = entity.RestoreUser(u.ID(), u.Email(), u.Name(), u.Status(), prev.CreatedAt(), u.UpdatedAt())
		if prev.Email() != u.Email() {
			delete(r.byEmail, prev.Email())
		}
	}
	r.byID[stored.ID()] = stored
	r.byEmail[stored.Email()] = stored.ID()

	out := stored
	return &out, nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[id]; ok {
		delete(r.byEmail, u.Email())
		delete(r.byID, id)
	}
	return nil
}

// filter must be called with r.mu held.
func (r *UserRepository) filter(status entity.UserStatus) []*entity.User {
	out := make([]*entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		if status != "" && u.Status() != status {
			continue
		}
		u := u
		out = append(out, &u)
	}
	return out
}

func sortNewestFirst(users []*entity.User) {
	sort.Slice(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if !a.CreatedAt().Equal(b.CreatedAt()) {
			return a.CreatedAt().After(b.CreatedAt())
		}
		return a.ID() > b.ID()
	})
}

// pastCursor reports whether u sorts after the cursor position.
func pastCursor(c *repository.Cursor, u *entity.User) bool {
	if !u.CreatedAt().Equal(c.CreatedAt) {
		return u.CreatedAt().Before(c.CreatedAt)
	}
	return u.ID() < c.ID
}

var _ repository.UserRepository = (*UserRepository)(nil)
