package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

const (
	userColumns = `id::text, email, name, status, created_at, updated_at`

	uniqueViolation     = "23505"
	usersEmailUniqueKey = "users_email_key"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	// a malformed id cannot match a uuid primary key
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanOne(row)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, email)
	return scanOne(row)
}

func (r *UserRepository) FindAll(ctx context.Context, limit, offset int, status entity.UserStatus) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("could not query users: %w", err)
	}
	defer rows.Close()

	users := make([]*entity.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) FindAfter(ctx context.Context, cursor *repository.Cursor, limit int) ([]*entity.User, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if cursor == nil {
		rows, err = r.pool.Query(ctx, `
			SELECT `+userColumns+`
			FROM users
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		`, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+userColumns+`
			FROM users
			WHERE (created_at, id) < ($1, $2::uuid)
			ORDER BY created_at DESC, id DESC
			LIMIT $3
		`, cursor.CreatedAt, cursor.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("could not query users: %w", err)
	}
	defer rows.Close()

	users := make([]*entity.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context, status entity.UserStatus) (int, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM users
		WHERE ($1::text = '' OR status = $1::text)
	`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("could not count users: %w", err)
	}
	return int(n), nil
}

// Save upserts by id. created_at is never overwritten on conflict.
func (r *UserRepository) Save(ctx context.Context, u *entity.User) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
		    name = EXCLUDED.name,
		    status = EXCLUDED.status,
		    updated_at = EXCLUDED.updated_at
		RETURNING `+userColumns,
		u.ID(), u.Email(), u.Name(), string(u.Status()), u.CreatedAt(), u.UpdatedAt())

	saved, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == usersEmailUniqueKey {
			return nil, &entity.DuplicateEmailError{Email: u.Email()}
		}
		return nil, err
	}
	return saved, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("could not delete user: %w", err)
	}
	return nil
}

// Ping reports whether the pool can reach the database.
func (r *UserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanOne(row pgx.Row) (*entity.User, error) {
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var (
		id, email, name, status string
		createdAt, updatedAt    time.Time
	)
	if err := row.Scan(&id, &email, &name, &status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("could not scan user: %w", err)
	}
	u := entity.RestoreUser(id, email, name, entity.UserStatus(status), createdAt, updatedAt)
	return &u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
