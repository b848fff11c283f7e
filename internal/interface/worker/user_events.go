// Package worker consumes user lifecycle events. It keeps the search index
// current and sends the matching transactional emails.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-user-service/config"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/elasticsearch"
	"github.com/oksasatya/go-ddd-user-service/internal/infrastructure/rabbitmq"
	"github.com/oksasatya/go-ddd-user-service/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-user-service/pkg/mailer/templates"
)

// ErrMalformedEvent marks messages that can never be processed. They are
// dropped instead of requeued.
var ErrMalformedEvent = errors.New("malformed user event")

// UserIndexer applies documents and deletions ordered by their timestamps,
// so out-of-order deliveries keep the newest state.
type UserIndexer interface {
	Index(ctx context.Context, doc elasticsearch.UserDocument) error
	Delete(ctx context.Context, id string, at time.Time) error
}

type UserEventHandler struct {
	Index  UserIndexer
	Mail   mailer.Sender // nil disables email
	Config *config.Config
	Logger *logrus.Logger
}

func NewUserEventHandler(index UserIndexer, mail mailer.Sender, cfg *config.Config, logger *logrus.Logger) *UserEventHandler {
	return &UserEventHandler{Index: index, Mail: mail, Config: cfg, Logger: logger}
}

// Handle processes one encoded rabbitmq.UserEvent.
func (h *UserEventHandler) Handle(ctx context.Context, body []byte) error {
	var ev rabbitmq.UserEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.UserID == "" {
		return fmt.Errorf("%w: missing user_id", ErrMalformedEvent)
	}

	switch ev.Type {
	case rabbitmq.EventUserDeleted:
		return h.Index.Delete(ctx, ev.UserID, ev.OccurredAt)
	case rabbitmq.EventUserCreated, rabbitmq.EventUserUpdated:
		if ev.User == nil {
			return fmt.Errorf("%w: %s without user", ErrMalformedEvent, ev.Type)
		}
		if err := h.Index.Index(ctx, toDocument(ev.User)); err != nil {
			return err
		}
		if job, ok := h.emailFor(ev); ok && h.Mail != nil {
			return mailer.Deliver(ctx, h.Mail, job)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, ev.Type)
	}
}

// Run handles deliveries until ctx is done or the channel closes. Malformed
// messages are dropped; other failures are requeued.
func (h *UserEventHandler) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-deliveries:
			if !ok {
				return
			}
			h.process(ctx, msg)
		}
	}
}

func (h *UserEventHandler) process(ctx context.Context, msg amqp.Delivery) {
	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	err := h.Handle(c, msg.Body)
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, ErrMalformedEvent):
		h.Logger.WithError(err).Warn("dropping user event")
		_ = msg.Nack(false, false)
	default:
		h.Logger.WithError(err).WithField("delivery_tag", msg.DeliveryTag).Error("user event failed, requeueing")
		_ = msg.Nack(false, true)
	}
}

func (h *UserEventHandler) emailFor(ev rabbitmq.UserEvent) (mailer.EmailJob, bool) {
	u := ev.User
	at := mailtpl.WithTime(ev.OccurredAt)
	job := mailer.EmailJob{To: u.Email}

	switch {
	case ev.Type == rabbitmq.EventUserCreated:
		job.Template = mailtpl.Welcome
		job.Data = mailtpl.NewWelcomeData(h.Config, u.Name, u.Email, at)
	case ev.Previous == nil:
		return job, false
	case ev.Previous.Status != u.Status:
		job.Template = mailtpl.AccountStatus
		job.Data = mailtpl.NewAccountStatusData(h.Config, u.Name, u.Email, ev.Previous.Status, u.Status, at)
	default:
		changes := profileChanges(ev.Previous, u)
		if len(changes) == 0 {
			return job, false
		}
		job.Template = mailtpl.ProfileUpdated
		job.Data = mailtpl.NewProfileUpdatedData(h.Config, u.Name, u.Email, changes, at)
	}
	return job, true
}

func profileChanges(prev, cur *rabbitmq.UserSnapshot) map[string]string {
	changes := map[string]string{}
	if prev.Email != cur.Email {
		changes["email"] = prev.Email + " -> " + cur.Email
	}
	if prev.Name != cur.Name {
		changes["name"] = prev.Name + " -> " + cur.Name
	}
	return changes
}

func toDocument(u *rabbitmq.UserSnapshot) elasticsearch.UserDocument {
	return elasticsearch.UserDocument{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
