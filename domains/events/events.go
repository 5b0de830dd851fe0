package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeInbound  = "wabridge.inbound.v1"
	TypeOutbound = "wabridge.outbound.v1"
)

type Meta struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	Time          time.Time `json:"time"`
	Producer      *string   `json:"producer,omitempty"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

type InboundEvent struct {
	ThreadID  string `json:"thread_id"`
	PostID    string `json:"post_id"`
	RemoteJID string `json:"remote_jid"`
	IsGroup   bool   `json:"is_group"`
	AuthorID  string `json:"author_id"`
	HasMedia  bool   `json:"has_media"`
}

type OutboundEvent struct {
	ThreadID  string   `json:"thread_id"`
	PostID    string   `json:"post_id"`
	Recipient string   `json:"recipient"`
	TextSent  bool     `json:"text_sent"`
	MediaSent int      `json:"media_sent"`
	Errors    []string `json:"errors,omitempty"`
}

type IPublisher interface {
	Publish(ctx context.Context, key string, msg Envelope) error
	Close() error
}

// NewEnvelope stamps a fresh id and UTC time.
func NewEnvelope(eventType, producer string, data any) Envelope {
	meta := Meta{
		ID:   uuid.NewString(),
		Type: eventType,
		Time: time.Now().UTC(),
	}
	if producer != "" {
		meta.Producer = &producer
	}
	return Envelope{Meta: meta, Data: data}
}
