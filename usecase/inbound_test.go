package usecase

import (
	"context"
	"testing"

	domainGateway "github.com/AzielCF/az-wabridge/domains/gateway"
	domainWebhook "github.com/AzielCF/az-wabridge/domains/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_GroupSender(t *testing.T) {
	n := NewInboundNormalizer(newFakeGateway())
	msg, err := n.Normalize(context.Background(), upsert(t, groupKey("120363@g.us", "51999@s.whatsapp.net", "X1"), " Ana ", map[string]any{"conversation": "hi"}))
	require.NoError(t, err)

	assert.Equal(t, domainWebhook.InboundMessage{
		MessageID:   "X1",
		RemoteJID:   "120363@g.us",
		IsGroup:     true,
		SenderJID:   "51999@s.whatsapp.net",
		DisplayName: "Ana",
		TextBody:    "hi",
	}, msg)
}

func TestNormalize_UnwrapsEphemeralAndViewOnce(t *testing.T) {
	gw := newFakeGateway()
	gw.mediaB64 = "QUJD"
	n := NewInboundNormalizer(gw)

	msg, err := n.Normalize(context.Background(), upsert(t, directKey("51999", "E1"), "", map[string]any{
		"ephemeralMessage": map[string]any{"message": map[string]any{
			"extendedTextMessage": map[string]any{"text": "disappearing"},
		}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "disappearing", msg.TextBody)

	msg, err = n.Normalize(context.Background(), upsert(t, directKey("51999", "V1"), "", map[string]any{
		"viewOnceMessageV2": map[string]any{"message": map[string]any{
			"videoMessage": map[string]any{"mimetype": "video/mp4", "caption": "once"},
		}},
	}))
	require.NoError(t, err)
	require.NotNil(t, msg.Media)
	assert.Equal(t, domainGateway.MediaVideo, msg.Media.Kind)
	assert.Equal(t, "whatsapp_video.mp4", msg.Media.FileName)
	assert.Equal(t, "once", msg.TextBody)
}

func TestNormalize_MediaPrecedence(t *testing.T) {
	gw := newFakeGateway()
	gw.mediaB64 = "QUJD"
	n := NewInboundNormalizer(gw)

	msg, err := n.Normalize(context.Background(), upsert(t, directKey("51999", "P1"), "", map[string]any{
		"documentMessage": map[string]any{"fileName": "report.pdf", "mimetype": "application/pdf"},
		"imageMessage":    map[string]any{"mimetype": "image/png"},
	}))
	require.NoError(t, err)
	assert.Equal(t, domainGateway.MediaImage, msg.Media.Kind)
	assert.Equal(t, "whatsapp_image.png", msg.Media.FileName)
	assert.Len(t, gw.mediaFetch, 1)
}

func TestNormalize_KeepsDeclaredDocumentName(t *testing.T) {
	gw := newFakeGateway()
	gw.mediaB64 = "QUJD"
	n := NewInboundNormalizer(gw)

	msg, err := n.Normalize(context.Background(), upsert(t, directKey("51999", "D1"), "", map[string]any{
		"documentWithCaptionMessage": map[string]any{"message": map[string]any{
			"documentMessage": map[string]any{"fileName": "contract.v2.pdf", "mimetype": "application/pdf", "caption": "sign"},
		}},
	}))
	require.NoError(t, err)
	assert.Equal(t, domainGateway.MediaDocument, msg.Media.Kind)
	assert.Equal(t, "contract.v2.pdf", msg.Media.FileName)
	assert.Equal(t, "sign", msg.TextBody)
}

func TestNormalize_WhitespaceTextIsNoContent(t *testing.T) {
	n := NewInboundNormalizer(newFakeGateway())
	_, err := n.Normalize(context.Background(), upsert(t, directKey("51999", "W1"), "", map[string]any{"conversation": "   "}))

	var rejection *domainWebhook.Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, domainWebhook.Outcome{Status: domainWebhook.StatusIgnored, Reason: domainWebhook.ReasonNoContent}, rejection.Outcome())
}

func TestNormalize_DataWithWrongShape(t *testing.T) {
	n := NewInboundNormalizer(newFakeGateway())
	_, err := n.Normalize(context.Background(), []byte(`{"event":"messages.upsert","data":"oops"}`))

	var rejection *domainWebhook.Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Equal(t, domainWebhook.ReasonNoJID, rejection.Reason)
}
