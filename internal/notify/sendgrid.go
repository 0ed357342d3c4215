package notify

import (
	"context"

	"example.com/backstage/services/dairy/config"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const senderName = "Milk Attendance"

type mailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier delivers email through the SendGrid v3 API
type SendGridNotifier struct {
	client mailClient
	from   string
	admin  string
}

// NewSendGridNotifier creates a SendGrid notifier
func NewSendGridNotifier(cfg config.NotifierConfig) *SendGridNotifier {
	return &SendGridNotifier{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   cfg.FromAddress,
		admin:  cfg.AdminAddress,
	}
}

// Send delivers to the operator address
func (n *SendGridNotifier) Send(ctx context.Context, subject, htmlBody string) error {
	return n.SendTo(ctx, n.admin, subject, htmlBody)
}

// SendTo delivers to an explicit recipient
func (n *SendGridNotifier) SendTo(ctx context.Context, to, subject, htmlBody string) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(senderName, n.from),
		subject,
		mail.NewEmail("", to),
		"",
		htmlBody,
	)

	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return errors.Wrap(err, "failed to call SendGrid")
	}
	if resp.StatusCode >= 300 {
		return errors.Errorf("SendGrid rejected email: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
