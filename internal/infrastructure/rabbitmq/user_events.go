// Package rabbitmq publishes user lifecycle events after successful writes.
package rabbitmq

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/internal/domain/entity"
	"github.com/oksasatya/go-ddd-user-service/internal/domain/repository"
)

// Event types carried in UserEvent.Type.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// UserEvent is the message body published to the user events queue. User is
// nil for deletions. Previous is set on updates when the prior state could
// be read before the write.
type UserEvent struct {
	Type       string        `json:"type"`
	UserID     string        `json:"user_id"`
	User       *UserSnapshot `json:"user,omitempty"`
	Previous   *UserSnapshot `json:"previous,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

type UserSnapshot struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// EventedUserRepository wraps a UserRepository and emits a UserEvent after
// every successful Save or Delete.
type EventedUserRepository struct {
	next      repository.UserRepository
	publisher Publisher
	logger    *logrus.Logger
	now       func() time.Time
}

func NewEventedUserRepository(next repository.UserRepository, publisher Publisher, logger *logrus.Logger) *EventedUserRepository {
	return &EventedUserRepository{
		next:      next,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (r *EventedUserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return r.next.FindByID(ctx, id)
}

func (r *EventedUserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.next.FindByEmail(ctx, email)
}

func (r *EventedUserRepository) FindAll(ctx context.Context, limit, offset int, status entity.UserStatus) ([]*entity.User, error) {
	return r.next.FindAll(ctx, limit, offset, status)
}

func (r *EventedUserRepository) FindAfter(ctx context.Context, cursor *repository.Cursor, limit int) ([]*entity.User, error) {
	return r.next.FindAfter(ctx, cursor, limit)
}

func (r *EventedUserRepository) Count(ctx context.Context, status entity.UserStatus) (int, error) {
	return r.next.Count(ctx, status)
}

// Save reads the stored row first: no row means the write creates the user,
// otherwise it is an update and the row becomes Previous. If that read
// fails the event is still sent, typed by whether the timestamps differ.
func (r *EventedUserRepository) Save(ctx context.Context, u *entity.User) (*entity.User, error) {
	prev, readErr := r.next.FindByID(ctx, u.ID())
	if readErr != nil && r.logger != nil {
		r.logger.WithError(readErr).WithField("user_id", u.ID()).Warn("could not read user before save")
	}

	saved, err := r.next.Save(ctx, u)
	if err != nil {
		return nil, err
	}

	ev := UserEvent{
		Type:       EventUserUpdated,
		UserID:     saved.ID(),
		User:       Snapshot(saved),
		OccurredAt: saved.UpdatedAt(),
	}
	switch {
	case prev != nil:
		ev.Previous = Snapshot(prev)
	case readErr == nil, saved.CreatedAt().Equal(saved.UpdatedAt()):
		ev.Type = EventUserCreated
	}
	r.publish(ctx, ev)
	return saved, nil
}

func (r *EventedUserRepository) Delete(ctx context.Context, id string) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.publish(ctx, UserEvent{Type: EventUserDeleted, UserID: id, OccurredAt: r.now()})
	return nil
}

// publish never fails the caller; the write it reports is already committed.
func (r *EventedUserRepository) publish(ctx context.Context, ev UserEvent) {
	if err := r.publisher.PublishJSON(ctx, ev); err != nil && r.logger != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event":   ev.Type,
			"user_id": ev.UserID,
		}).Error("failed to publish user event")
	}
}

// Snapshot converts a user into its event representation.
func Snapshot(u *entity.User) *UserSnapshot {
	return &UserSnapshot{
		ID:        u.ID(),
		Email:     u.Email(),
		Name:      u.Name(),
		Status:    u.Status().String(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
}

var _ repository.UserRepository = (*EventedUserRepository)(nil)
