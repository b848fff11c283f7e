// Package repository defines the storage contract the use cases depend on.
//
//go:generate mockgen -package mockrepository -source=user_repository.go -destination=mock/mock_user_repository.go
package repository

import (
	"context"
	"time"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
)

// UserRepository defines the persistence operations for users. Every storage
// adapter (postgres, memory, and the cache/event decorators) implements it.
type UserRepository interface {
	// FindByID returns the user with the given id, or nil when it does not exist.
	FindByID(ctx context.Context, id string) (*entity.User, error)
	// FindByEmail returns the user owning the normalized email, or nil. It must
	// observe every committed write.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// FindAll returns a page of users ordered by created_at descending. An empty
	// status matches every user.
	FindAll(ctx context.Context, limit, offset int, status entity.UserStatus) ([]*entity.User, error)
	// FindAfter returns up to limit users that sort strictly after cursor in
	// FindAll's order, starting at the newest user when cursor is nil. Users
	// created while paging sort before the cursor, so no row repeats.
	FindAfter(ctx context.Context, cursor *Cursor, limit int) ([]*entity.User, error)
	// Count returns the number of users matching status, ignoring paging.
	Count(ctx context.Context, status entity.UserStatus) (int, error)
	// Save inserts or overwrites the user by id and returns the stored state.
	// A unique email violation is reported as *entity.DuplicateEmailError.
	Save(ctx context.Context, u *entity.User) (*entity.User, error)
	// Delete removes the user. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

// Cursor is a position in created_at DESC, id DESC order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorAt returns the cursor positioned on u.
func CursorAt(u *entity.User) *Cursor {
	return &Cursor{CreatedAt: u.CreatedAt(), ID: u.ID()}
}
