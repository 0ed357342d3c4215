package messaging

import (
	"context"
	"encoding/json"
	"time"

	"example.com/backstage/services/dairy/config"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/pkg/errors"
)

// Publisher sends JSON messages to a queue
type Publisher interface {
	Publish(ctx context.Context, subject string, body interface{}) error
	Close() error
}

// ServiceBusPublisher implements Publisher on an Azure Service Bus queue
type ServiceBusPublisher struct {
	client    *azservicebus.Client
	sender    *azservicebus.Sender
	queueName string
	source    string
}

// NewServiceBusPublisher creates a sender for the configured queue
func NewServiceBusPublisher(cfg config.AzureConfig, source string) (*ServiceBusPublisher, error) {
	if cfg.QueueConnStr == "" {
		return nil, errors.New("Azure Service Bus connection string is empty")
	}

	client, err := azservicebus.NewClientFromConnectionString(cfg.QueueConnStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus client")
	}

	sender, err := client.NewSender(cfg.QueueName, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Service Bus sender")
	}

	return &ServiceBusPublisher{
		client:    client,
		sender:    sender,
		queueName: cfg.QueueName,
		source:    source,
	}, nil
}

// NewMessage builds the queue message for a JSON body
func NewMessage(source, subject string, body interface{}, now time.Time) (*azservicebus.Message, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message body")
	}

	contentType := "application/json"
	return &azservicebus.Message{
		Body:        data,
		ContentType: &contentType,
		Subject:     &subject,
		ApplicationProperties: map[string]interface{}{
			"source": source,
			"time":   now.UTC().Format(time.RFC3339),
		},
	}, nil
}

// Publish sends one message to the queue
func (p *ServiceBusPublisher) Publish(ctx context.Context, subject string, body interface{}) error {
	msg, err := NewMessage(p.source, subject, body, time.Now())
	if err != nil {
		return err
	}

	if err := p.sender.SendMessage(ctx, msg, nil); err != nil {
		return errors.Wrapf(err, "failed to send message to queue %s", p.queueName)
	}
	return nil
}

// Close closes the sender and the client
func (p *ServiceBusPublisher) Close() error {
	if p.sender != nil {
		if err := p.sender.Close(context.Background()); err != nil {
			return err
		}
	}
	if p.client != nil {
		return p.client.Close(context.Background())
	}
	return nil
}
