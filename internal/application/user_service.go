package application

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	repo "github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// Service runs the user use cases. Each method is a short transaction script
// over the entity rules and one repository; it keeps no state between calls.
type Service struct {
	Repo repo.UserRepository
	// Now is the clock used for entity timestamps.
	Now func() time.Time
}

func NewService(repo repo.UserRepository) *Service {
	return &Service{
		Repo: repo,
		Now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser registers a new user. The email check here gives a clean
// DuplicateEmailError; the storage unique constraint is what actually
// guarantees uniqueness under concurrent requests.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (UserOutput, error) {
	email, err := entity.NormalizeEmail(in.Email)
	if err != nil {
		return UserOutput{}, err
	}
	existing, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		return UserOutput{}, fail("find user by email", err)
	}
	if existing != nil {
		return UserOutput{}, &entity.DuplicateEmailError{Email: email}
	}

	u, err := entity.NewUser(email, in.Name, s.Now())
	if err != nil {
		return UserOutput{}, err
	}
	saved, err := s.Repo.Save(ctx, &u)
	if err != nil {
		return UserOutput{}, fail("save user", err)
	}
	return toOutput(saved), nil
}

func (s *Service) GetUser(ctx context.Context, id string) (UserOutput, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return UserOutput{}, err
	}
	return toOutput(u), nil
}

// ListUsers returns one page and the total under the same filter. The two
// reads are not snapshot-consistent; Total may lag Data under concurrent writes.
func (s *Service) ListUsers(ctx context.Context, in ListUsersInput) (UserListOutput, error) {
	var status entity.UserStatus
	if in.Status != "" {
		st, err := entity.ParseUserStatus(in.Status)
		if err != nil {
			return UserListOutput{}, err
		}
		status = st
	}

	users, err := s.Repo.FindAll(ctx, in.Limit, in.Offset, status)
	if err != nil {
		return UserListOutput{}, fail("list users", err)
	}
	total, err := s.Repo.Count(ctx, status)
	if err != nil {
		return UserListOutput{}, fail("count users", err)
	}

	data := make([]UserOutput, 0, len(users))
	for _, u := range users {
		data = append(data, toOutput(u))
	}
	return UserListOutput{Data: data, Total: total, Limit: in.Limit, Offset: in.Offset}, nil
}

// UpdateUser applies the supplied changes. Switching to an email held by a
// different user fails; re-submitting the user's own email does not.
func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (UserOutput, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return UserOutput{}, err
	}

	changes := entity.UserChanges{Name: in.Name}
	if in.Email != nil {
		email, err := entity.NormalizeEmail(*in.Email)
		if err != nil {
			return UserOutput{}, err
		}
		if email != u.Email() {
			other, err := s.Repo.FindByEmail(ctx, email)
			if err != nil {
				return UserOutput{}, fail("find user by email", err)
			}
			if other != nil && other.ID() != u.ID() {
				return UserOutput{}, &entity.DuplicateEmailError{Email: email}
			}
		}
		changes.Email = &email
	}

	next, err := u.Update(changes, s.Now())
	if err != nil {
		return UserOutput{}, err
	}
	return s.save(ctx, next)
}

func (s *Service) ActivateUser(ctx context.Context, id string) (UserOutput, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return UserOutput{}, err
	}
	next, err := u.Activate(s.Now())
	if err != nil {
		return UserOutput{}, err
	}
	return s.save(ctx, next)
}

func (s *Service) DeactivateUser(ctx context.Context, id string) (UserOutput, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return UserOutput{}, err
	}
	next, err := u.Deactivate(s.Now())
	if err != nil {
		return UserOutput{}, err
	}
	return s.save(ctx, next)
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fail("delete user", err)
	}
	return nil
}

// ExportUsers writes every user as one JSON object per line, newest first.
// It pages by a (created_at, id) cursor, so users created or deleted during
// the export never cause duplicates or skips among the rest. It returns the
// number of users written.
func (s *Service) ExportUsers(ctx context.Context, w io.Writer, pageSize int) (int, error) {
	if pageSize <= 0 {
		pageSize = 500
	}
	enc := json.NewEncoder(w)
	written := 0
	var cursor *repo.Cursor
	for {
		page, err := s.Repo.FindAfter(ctx, cursor, pageSize)
		if err != nil {
			return written, fail("export users", err)
		}
		for _, u := range page {
			if err := enc.Encode(exportRecord{
				ID:        u.ID(),
				Email:     u.Email(),
				Name:      u.Name(),
				Status:    u.Status().String(),
				CreatedAt: u.CreatedAt(),
				UpdatedAt: u.UpdatedAt(),
			}); err != nil {
				return written, err
			}
			written++
		}
		if len(page) < pageSize {
			return written, nil
		}
		cursor = repo.CursorAt(page[len(page)-1])
	}
}

type exportRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Service) find(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, fail("find user by id", err)
	}
	if u == nil {
		return nil, &entity.NotFoundError{ID: id}
	}
	return u, nil
}

func (s *Service) save(ctx context.Context, u entity.User) (UserOutput, error) {
	saved, err := s.Repo.Save(ctx, &u)
	if err != nil {
		return UserOutput{}, fail("save user", err)
	}
	return toOutput(saved), nil
}

// fail passes domain errors through untouched and wraps everything else as
// an infrastructure failure.
func fail(op string, err error) error {
	if entity.IsDomainError(err) {
		return err
	}
	return &InfrastructureError{Op: op, Err: err}
}
