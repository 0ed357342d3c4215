package notify

import (
	"context"

	"example.com/backstage/services/dairy/config"
	"example.com/backstage/services/dairy/internal/messaging"

	"github.com/pkg/errors"
)

// EmailJob is the message published for an out-of-process mail sender
type EmailJob struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// QueueNotifier hands emails to a queue. A successful publish counts as a
// successful send.
type QueueNotifier struct {
	publisher messaging.Publisher
	from      string
	admin     string
}

// NewQueueNotifier creates a queue-backed notifier
func NewQueueNotifier(cfg config.NotifierConfig, publisher messaging.Publisher) *QueueNotifier {
	return &QueueNotifier{
		publisher: publisher,
		from:      cfg.FromAddress,
		admin:     cfg.AdminAddress,
	}
}

// Send publishes an operator email
func (n *QueueNotifier) Send(ctx context.Context, subject, htmlBody string) error {
	return n.SendTo(ctx, n.admin, subject, htmlBody)
}

// SendTo publishes an email job
func (n *QueueNotifier) SendTo(ctx context.Context, to, subject, htmlBody string) error {
	job := EmailJob{
		From:    n.from,
		To:      to,
		Subject: subject,
		HTML:    htmlBody,
	}
	if err := n.publisher.Publish(ctx, "email", job); err != nil {
		return errors.Wrap(err, "failed to publish email job")
	}
	return nil
}

// Close releases the underlying publisher
func (n *QueueNotifier) Close() error {
	return n.publisher.Close()
}
