// Package redis holds the Redis-backed read cache for users.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
	"github.com/oksasatya/go-ddd-user-service/pkg/helpers"
)

// CachedUserRepository caches FindByID lookups in Redis in front of another
// UserRepository. Email lookups, lists and counts always go to the wrapped
// repository so uniqueness checks see committed state.
//
// Reads fail open: a Redis error means a storage read. Writes fail closed:
// Save and Delete first invalidate the entry and refuse to write when that
// fails, because a stale entry could later resurrect a deleted user through
// an upserting Save. Every write bumps a per-user version, and a read only
// fills the cache if the version it saw before reading storage is unchanged.
type CachedUserRepository struct {
	next   repository.UserRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCachedUserRepository(next repository.UserRepository, rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedUserRepository {
	return &CachedUserRepository{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

type cachedUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// The hash tag keeps both keys of a user in one cluster slot.
func userKey(id string) string    { return "user:{" + id + "}" }
func versionKey(id string) string { return "user:{" + id + "}:ver" }

func (r *CachedUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var cu cachedUser
	found, err := helpers.RedisGetJSON(ctx, r.rdb, userKey(id), &cu)
	if err != nil {
		r.warn(err, id, "redis get failed")
		return r.next.FindByID(ctx, id)
	}
	if found {
		u := entity.RestoreUser(cu.ID, cu.Email, cu.Name, entity.UserStatus(cu.Status), cu.CreatedAt, cu.UpdatedAt)
		return &u, nil
	}

	version, verErr := helpers.RedisVersion(ctx, r.rdb, versionKey(id))
	u, err := r.next.FindByID(ctx, id)
	if err != nil || u == nil {
		return u, err
	}
	if verErr != nil {
		r.warn(verErr, id, "redis version read failed")
		return u, nil
	}
	if _, err := helpers.RedisSetJSONIfVersion(ctx, r.rdb, versionKey(id), userKey(id), version, toCached(u), r.ttl); err != nil {
		r.warn(err, id, "redis set failed")
	}
	return u, nil
}

func (r *CachedUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.next.FindByEmail(ctx, email)
}

func (r *CachedUserRepository) FindAll(ctx context.Context, limit, offset int, status entity.UserStatus) ([]*entity.User, error) {
	return r.next.FindAll(ctx, limit, offset, status)
}

func (r *CachedUserRepository) FindAfter(ctx context.Context, cursor *repository.Cursor, limit int) ([]*entity.User, error) {
	return r.next.FindAfter(ctx, cursor, limit)
}

func (r *CachedUserRepository) Count(ctx context.Context, status entity.UserStatus) (int, error) {
	return r.next.Count(ctx, status)
}

func (r *CachedUserRepository) Save(ctx context.Context, u *entity.User) (*entity.User, error) {
	if err := r.invalidate(ctx, u.ID()); err != nil {
		return nil, err
	}
	saved, err := r.next.Save(ctx, u)
	if err != nil {
		return nil, err
	}
	// a reader that loaded the old row between the two bumps cannot fill now
	if err := r.invalidate(ctx, u.ID()); err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *CachedUserRepository) Delete(ctx context.Context, id string) error {
	if err := r.invalidate(ctx, id); err != nil {
		return err
	}
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	return r.invalidate(ctx, id)
}

func (r *CachedUserRepository) invalidate(ctx context.Context, id string) error {
	// the version must outlive any read that started before the bump
	if err := helpers.RedisBumpVersion(ctx, r.rdb, versionKey(id), r.ttl+time.Minute, userKey(id)); err != nil {
		return fmt.Errorf("could not invalidate cached user: %w", err)
	}
	return nil
}

func toCached(u *entity.User) cachedUser {
	return cachedUser{
		ID:        u.ID(),
		Email:     u.Email(),
		Name:      u.Name(),
		Status:    u.Status().String(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}

func (r *CachedUserRepository) warn(err error, id, msg string) {
	if r.logger != nil {
		r.logger.WithError(err).WithField("user_id", id).Warn(msg)
	}
}

var _ repository.UserRepository = (*CachedUserRepository)(nil)
