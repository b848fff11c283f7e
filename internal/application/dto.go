package application

import (
	"time"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
)

// CreateUserInput carries the fields needed to register a user.
type CreateUserInput struct {
	Email string
	Name  string
}

// UpdateUserInput carries optional replacements. Nil leaves a field unchanged.
type UpdateUserInput struct {
	Email *string
	Name  *string
}

// ListUsersInput selects a page of users. Bounds are enforced by the caller.
// An empty Status lists every user.
type ListUsersInput struct {
	Limit  int
	Offset int
	Status string
}

// UserOutput is the public view of a user.
type UserOutput struct {
	ID        string
	Email     string
	Name      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserListOutput is one page of users plus what the caller needs to page on.
type UserListOutput struct {
	Data   []UserOutput
	Total  int
	Limit  int
	Offset int
}

// HasMore reports whether another page follows this one.
func (o UserListOutput) HasMore() bool {
	return o.Offset+len(o.Data) < o.Total
}

func toOutput(u *entity.User) UserOutput {
	return UserOutput{
		ID:        u.ID(),
		Email:     u.Email(),
		Name:      u.Name(),
		Status:    u.Status().String(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}
