package events

import (
	"context"
	"testing"

	domainEvents "github.com/AzielCF/az-wabridge/domains/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisher_NoURLIsNop(t *testing.T) {
	pub, err := NewPublisher(context.Background(), "", "wabridge.events")
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, pub)

	env := domainEvents.NewEnvelope(domainEvents.TypeInbound, "az-wabridge/v1.0.0", domainEvents.InboundEvent{ThreadID: "t-1"})
	assert.NoError(t, pub.Publish(context.Background(), domainEvents.TypeInbound, env))
	assert.NoError(t, pub.Close())
}

func TestNewEnvelope(t *testing.T) {
	env := domainEvents.NewEnvelope(domainEvents.TypeOutbound, "producer", nil)
	assert.NotEmpty(t, env.Meta.ID)
	assert.Equal(t, domainEvents.TypeOutbound, env.Meta.Type)
	require.NotNil(t, env.Meta.Producer)
	assert.Equal(t, "producer", *env.Meta.Producer)
	assert.Nil(t, env.Meta.CorrelationID)
}
