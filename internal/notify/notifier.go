package notify

import (
	"context"
	"strings"

	"example.com/backstage/services/dairy/config"
	"example.com/backstage/services/dairy/internal/messaging"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrNotConfigured is returned when the notifier lacks a required setting
var ErrNotConfigured = errors.New("notifier is not configured")

// Notifier delivers HTML emails
type Notifier interface {
	// Send delivers to the operator address
	Send(ctx context.Context, subject, htmlBody string) error
	// SendTo delivers to an explicit recipient
	SendTo(ctx context.Context, to, subject, htmlBody string) error
}

// Drivers
const (
	DriverSendGrid   = "sendgrid"
	DriverServiceBus = "servicebus"
	DriverLog        = "log"
)

// New builds the notifier selected by cfg.Driver. Missing settings yield
// ErrNotConfigured so callers can fail fast.
func New(cfg config.NotifierConfig, azure config.AzureConfig) (Notifier, error) {
	if strings.TrimSpace(cfg.AdminAddress) == "" {
		return nil, errors.Wrap(ErrNotConfigured, "notifier.admin_address is missing")
	}
	if strings.TrimSpace(cfg.FromAddress) == "" {
		return nil, errors.Wrap(ErrNotConfigured, "notifier.from_address is missing")
	}

	switch cfg.Driver {
	case DriverSendGrid, "":
		if strings.TrimSpace(cfg.SendGridAPIKey) == "" {
			return nil, errors.Wrap(ErrNotConfigured, "SENDGRID_API_KEY is missing")
		}
		return NewSendGridNotifier(cfg), nil
	case DriverServiceBus:
		if azure.QueueConnStr == "" {
			return nil, errors.Wrap(ErrNotConfigured, "azure.queue_conn_str is missing")
		}
		publisher, err := messaging.NewServiceBusPublisher(azure, "dairy")
		if err != nil {
			return nil, err
		}
		return NewQueueNotifier(cfg, publisher), nil
	case DriverLog:
		return &LogNotifier{admin: cfg.AdminAddress}, nil
	default:
		return nil, errors.Wrapf(ErrNotConfigured, "unknown notifier driver %q", cfg.Driver)
	}
}

// Unavailable returns a notifier that fails every send with err. It stands in
// for a misconfigured notifier so the API can report the configuration error.
func Unavailable(err error) Notifier {
	if !errors.Is(err, ErrNotConfigured) {
		err = errors.Wrap(ErrNotConfigured, err.Error())
	}
	return unavailable{err: err}
}

// Ready reports the configuration error of a notifier that cannot send
func Ready(n Notifier) error {
	if u, ok := n.(unavailable); ok {
		return u.err
	}
	return nil
}

type unavailable struct {
	err error
}

func (u unavailable) Send(ctx context.Context, subject, htmlBody string) error {
	return u.err
}

func (u unavailable) SendTo(ctx context.Context, to, subject, htmlBody string) error {
	return u.err
}

// LogNotifier writes emails to the log instead of delivering them
type LogNotifier struct {
	admin string
}

// Send logs an operator email
func (n *LogNotifier) Send(ctx context.Context, subject, htmlBody string) error {
	return n.SendTo(ctx, n.admin, subject, htmlBody)
}

// SendTo logs an email
func (n *LogNotifier) SendTo(ctx context.Context, to, subject, htmlBody string) error {
	log.Info().
		Str("to", to).
		Str("subject", subject).
		Int("body_bytes", len(htmlBody)).
		Msg("Email delivery skipped by log notifier")
	return nil
}
