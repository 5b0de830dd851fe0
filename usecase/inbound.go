package usecase

import (
	"context"
	"encoding/json"
	"strings"

	domainGateway "github.com/AzielCF/az-wabridge/domains/gateway"
	domainWebhook "github.com/AzielCF/az-wabridge/domains/webhook"
	"github.com/AzielCF/az-wabridge/pkg/chatmedia"
	"github.com/AzielCF/az-wabridge/pkg/utils"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const upsertEvent = "messages.upsert"

type webhookEvent struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type messageKey struct {
	RemoteJID   string `json:"remoteJid"`
	FromMe      bool   `json:"fromMe"`
	ID          string `json:"id"`
	Participant string `json:"participant"`
}

type messageData struct {
	Key      messageKey                 `json:"key"`
	PushName string                     `json:"pushName"`
	Message  map[string]json.RawMessage `json:"message"`
}

type mediaInfo struct {
	Caption  string `json:"caption"`
	Mimetype string `json:"mimetype"`
	FileName string `json:"fileName"`
}

// Order matters: the first matching key wins.
var mediaKeys = []struct {
	key  string
	kind domainGateway.MediaKind
}{
	{"imageMessage", domainGateway.MediaImage},
	{"videoMessage", domainGateway.MediaVideo},
	{"documentMessage", domainGateway.MediaDocument},
	{"audioMessage", domainGateway.MediaAudio},
	{"stickerMessage", domainGateway.MediaImage},
}

// Wrappers that nest the real content one level down under "message".
var wrapperKeys = []string{"ephemeralMessage", "viewOnceMessage", "viewOnceMessageV2", "documentWithCaptionMessage"}

type inboundNormalizer struct {
	gateway domainGateway.IGatewayClient
}

func NewInboundNormalizer(gateway domainGateway.IGatewayClient) domainWebhook.INormalizer {
	return &inboundNormalizer{gateway: gateway}
}

// Normalize turns a raw Evolution webhook into an InboundMessage. Events
// that are not processed come back as *webhook.Rejection.
func (n *inboundNormalizer) Normalize(ctx context.Context, raw []byte) (domainWebhook.InboundMessage, error) {
	var evt webhookEvent
	if err := json.Unmarshal(raw, &evt); err != nil {
		return domainWebhook.InboundMessage{}, &domainWebhook.Rejection{Status: domainWebhook.StatusError, Reason: domainWebhook.ReasonBadJSON}
	}

	eventType := evt.Type
	if eventType == "" {
		eventType = evt.Event
	}
	if normalizeEventName(eventType) != upsertEvent {
		return domainWebhook.InboundMessage{}, domainWebhook.Ignored(domainWebhook.ReasonNotUpsert)
	}

	var data messageData
	if len(evt.Data) > 0 {
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			logrus.WithError(err).Debug("[WEBHOOK] upsert data has an unexpected shape")
			return domainWebhook.InboundMessage{}, domainWebhook.Ignored(domainWebhook.ReasonNoJID)
		}
	}
	if data.Key.FromMe {
		return domainWebhook.InboundMessage{}, domainWebhook.Ignored(domainWebhook.ReasonFromMe)
	}
	remoteJID := strings.TrimSpace(data.Key.RemoteJID)
	if remoteJID == "" {
		return domainWebhook.InboundMessage{}, domainWebhook.Ignored(domainWebhook.ReasonNoJID)
	}

	msg := domainWebhook.InboundMessage{
		MessageID:   data.Key.ID,
		RemoteJID:   remoteJID,
		IsGroup:     utils.IsGroupJID(remoteJID),
		DisplayName: strings.TrimSpace(data.PushName),
	}
	msg.SenderJID = remoteJID
	if msg.IsGroup && data.Key.Participant != "" {
		msg.SenderJID = data.Key.Participant
	}

	content := unwrapMessage(data.Message)
	if media, caption, ok := n.extractMedia(ctx, content, evt.Data); ok {
		msg.Media = media
		msg.TextBody = caption
	} else if caption != "" {
		msg.TextBody = caption
	} else {
		msg.TextBody = extractText(content)
	}

	if strings.TrimSpace(msg.TextBody) == "" && msg.Media == nil {
		return domainWebhook.InboundMessage{}, domainWebhook.Ignored(domainWebhook.ReasonNoContent)
	}
	return msg, nil
}

// normalizeEventName accepts both "messages.upsert" and "MESSAGES_UPSERT".
func normalizeEventName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", ".")
}

func unwrapMessage(content map[string]json.RawMessage) map[string]json.RawMessage {
	for depth := 0; depth < 3; depth++ {
		unwrapped := false
		for _, key := range wrapperKeys {
			raw, ok := content[key]
			if !ok {
				continue
			}
			var wrapper struct {
				Message map[string]json.RawMessage `json:"message"`
			}
			if json.Unmarshal(raw, &wrapper) == nil && len(wrapper.Message) > 0 {
				content = wrapper.Message
				unwrapped = true
				break
			}
		}
		if !unwrapped {
			break
		}
	}
	return content
}

// extractMedia returns the caption even when the content fetch fails, so
// the message can still be delivered as text.
func (n *inboundNormalizer) extractMedia(ctx context.Context, content map[string]json.RawMessage, envelope json.RawMessage) (*domainWebhook.Media, string, bool) {
	for _, mk := range mediaKeys {
		raw, ok := content[mk.key]
		if !ok {
			continue
		}
		var info mediaInfo
		_ = json.Unmarshal(raw, &info)

		b64 := n.gateway.FetchMediaBase64(ctx, envelope)
		if b64 == "" {
			logrus.Warnf("[WEBHOOK] could not fetch %s content", mk.key)
			return nil, info.Caption, false
		}

		data, err := chatmedia.DecodeBase64(b64)
		if err != nil || len(data) == 0 {
			logrus.WithError(err).Warnf("[WEBHOOK] %s content is not valid base64", mk.key)
			return nil, info.Caption, false
		}

		fileName := chatmedia.ResolveFileName(info.FileName, string(mk.kind), info.Mimetype)
		logrus.Debugf("[WEBHOOK] fetched %s %s (%s)", mk.kind, fileName, humanize.Bytes(uint64(len(data))))

		return &domainWebhook.Media{
			Kind:          mk.kind,
			MimeType:      info.Mimetype,
			FileName:      fileName,
			ContentBase64: b64,
			Caption:       info.Caption,
		}, info.Caption, true
	}
	return nil, "", false
}

func extractText(content map[string]json.RawMessage) string {
	if raw, ok := content["conversation"]; ok {
		var text string
		if json.Unmarshal(raw, &text) == nil && text != "" {
			return text
		}
	}
	if raw, ok := content["extendedTextMessage"]; ok {
		var ext struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(raw, &ext) == nil {
			return ext.Text
		}
	}
	return ""
}
