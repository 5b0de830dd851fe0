package events

import (
	"context"

	domainEvents "github.com/AzielCF/az-wabridge/domains/events"
	"github.com/sirupsen/logrus"
)

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

var _ domainEvents.IPublisher = NopPublisher{}

func (NopPublisher) Publish(ctx context.Context, key string, msg domainEvents.Envelope) error {
	logrus.Tracef("[EVENTS] %s dropped, no broker configured", key)
	return nil
}

func (NopPublisher) Close() error { return nil }

// NewPublisher returns an AMQP publisher when url is set and NopPublisher otherwise.
func NewPublisher(ctx context.Context, url, exchange string) (domainEvents.IPublisher, error) {
	if url == "" {
		return NopPublisher{}, nil
	}
	return NewAMQPPublisher(ctx, url, exchange)
}
