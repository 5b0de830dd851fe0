package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainEvents "github.com/AzielCF/az-wabridge/domains/events"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	dialAttempts = 3
	dialDelay    = time.Second
)

// AMQPPublisher publishes envelopes to a durable topic exchange.
type AMQPPublisher struct {
	conn     *amqp091.Connection
	exchange string
}

var _ domainEvents.IPublisher = (*AMQPPublisher)(nil)

func NewAMQPPublisher(ctx context.Context, url, exchange string) (*AMQPPublisher, error) {
	conn, err := dialWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	logrus.Infof("[EVENTS] Publishing to AMQP exchange %s", exchange)
	return &AMQPPublisher{conn: conn, exchange: exchange}, nil
}

func dialWithRetry(ctx context.Context, url string) (*amqp091.Connection, error) {
	var lastErr error
	delay := dialDelay
	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err := amqp091.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		logrus.WithError(err).Warnf("[EVENTS] AMQP dial attempt %d failed", attempt)

		if attempt == dialAttempts {
			break
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return nil, fmt.Errorf("amqp dial failed after %d attempts: %w", dialAttempts, lastErr)
}

func (p *AMQPPublisher) Publish(ctx context.Context, key string, msg domainEvents.Envelope) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	msgID := msg.Meta.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	correlationID := msgID
	if msg.Meta.CorrelationID != nil {
		correlationID = *msg.Meta.CorrelationID
	}

	err = ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		MessageId:     msgID,
		CorrelationId: correlationID,
		Timestamp:     msg.Meta.Time,
		Type:          msg.Meta.Type,
		Body:          body,
	})
	if err != nil {
		return err
	}
	logrus.Debugf("[EVENTS] published %s to %s", key, p.exchange)
	return nil
}

func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}
