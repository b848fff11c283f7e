package templates

import (
	"time"

	"github.com/oksasatya/go-ddd-user-service/config"
)

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithChanges(ch map[string]string) Option {
	return func(d *EmailData) { d.Changes = ch }
}

func WithStatus(previous, current string) Option {
	return func(d *EmailData) {
		d.PreviousStatus = previous
		d.Status = current
	}
}

// NewBaseEmailData fills the common fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:  name,
		Email: email,
		Type:  typ,

		CompanyName: cfg.CompanyName,
		AppName:     cfg.AppName,
		SupportURL:  cfg.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(cfg *config.Config, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(cfg, Welcome, name, email, opts...))
}

func NewAccountStatusData(cfg *config.Config, name, email, previous, current string, opts ...Option) map[string]any {
	opts = append([]Option{WithStatus(previous, current)}, opts...)
	return ToMap(NewBaseEmailData(cfg, AccountStatus, name, email, opts...))
}

func NewProfileUpdatedData(cfg *config.Config, name, email string, changes map[string]string, opts ...Option) map[string]any {
	opts = append([]Option{WithChanges(changes)}, opts...)
	return ToMap(NewBaseEmailData(cfg, ProfileUpdated, name, email, opts...))
}
