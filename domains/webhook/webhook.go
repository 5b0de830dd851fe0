package webhook

import (
	"context"
	"fmt"

	"github.com/AzielCF/az-wabridge/domains/gateway"
)

type Status string

const (
	StatusSuccess         Status = "success"
	StatusIgnored         Status = "ignored"
	StatusPendingApproval Status = "pending_approval"
	StatusError           Status = "error"
)

const (
	ReasonBadJSON          = "bad_json"
	ReasonNotUpsert        = "not_upsert"
	ReasonFromMe           = "from_me"
	ReasonNoJID            = "no_jid"
	ReasonNoContent        = "no_content"
	ReasonGroupNotAccepted = "group_not_accepted"
	ReasonDuplicate        = "duplicate"
	ReasonGroupGate        = "group_gate_failed"
	ReasonIdentity         = "identity_failed"
	ReasonIngest           = "ingest_failed"
)

// Outcome is always delivered with HTTP 200.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Rejection is returned by normalization when an event is not processed.
type Rejection struct {
	Status Status
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("webhook %s: %s", r.Status, r.Reason)
}

func (r *Rejection) Outcome() Outcome {
	return Outcome{Status: r.Status, Reason: r.Reason}
}

func Ignored(reason string) *Rejection {
	return &Rejection{Status: StatusIgnored, Reason: reason}
}

type Media struct {
	Kind          gateway.MediaKind
	MimeType      string
	FileName      string
	ContentBase64 string
	Caption       string
}

// InboundMessage is the normalized form of a messages.upsert event.
type InboundMessage struct {
	MessageID   string
	RemoteJID   string
	IsGroup     bool
	SenderJID   string
	DisplayName string
	TextBody    string
	Media       *Media
}

type INormalizer interface {
	Normalize(ctx context.Context, raw []byte) (InboundMessage, error)
}

type IWebhookUsecase interface {
	Handle(ctx context.Context, raw []byte) Outcome
}
