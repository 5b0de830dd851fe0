package thread

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-wabridge/domains/contact"
	"github.com/AzielCF/az-wabridge/domains/group"
	"github.com/AzielCF/az-wabridge/domains/webhook"
)

type Kind string

const (
	KindDirect Kind = "direct"
	KindGroup  Kind = "group"
)

type Origin string

const (
	OriginExternal Origin = "external"
	OriginOperator Origin = "operator"
)

type MessageType string

const (
	MessageComment      MessageType = "comment"
	MessageNotification MessageType = "notification"
)

var (
	ErrThreadNotFound  = errors.New("thread not found")
	ErrDuplicateThread = errors.New("thread already linked to this chat")
)

type Thread struct {
	ID            string     `json:"id"`
	Kind          Kind       `json:"kind"`
	Name          string     `json:"name"`
	ExternalKey   string     `json:"external_key,omitempty"`
	AvatarBase64  string     `json:"avatar_base64,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsWhatsApp reports whether the thread is linked to a WhatsApp chat.
func (t Thread) IsWhatsApp() bool {
	return t.ExternalKey != ""
}

type Attachment struct {
	ID            string `json:"id"`
	FileName      string `json:"file_name"`
	MimeType      string `json:"mime_type"`
	Size          int64  `json:"size"`
	ContentBase64 string `json:"content_base64,omitempty"`
}

type Post struct {
	ID          string       `json:"id"`
	ThreadID    string       `json:"thread_id"`
	AuthorID    string       `json:"author_id"`
	Body        string       `json:"body"`
	Origin      Origin       `json:"origin"`
	MessageType MessageType  `json:"message_type"`
	ExternalID  string       `json:"external_id,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type NewPost struct {
	AuthorID    string
	Body        string
	Origin      Origin
	MessageType MessageType
	ExternalID  string
	Attachments []Attachment
}

// ForwardResult reports what an operator post produced on WhatsApp.
type ForwardResult struct {
	Forwarded bool     `json:"forwarded"`
	Skipped   string   `json:"skipped,omitempty"`
	TextSent  bool     `json:"text_sent"`
	MediaSent int      `json:"media_sent"`
	Errors    []string `json:"errors,omitempty"`
}

type PostResult struct {
	Post    Post          `json:"post"`
	Forward ForwardResult `json:"forward"`
}

type AttachmentRequest struct {
	FileName      string `json:"file_name"`
	MimeType      string `json:"mime_type"`
	ContentBase64 string `json:"content_base64"`
}

type ReplyRequest struct {
	Body        string              `json:"body"`
	Attachments []AttachmentRequest `json:"attachments"`
	// Notification posts are stored but never forwarded.
	Notification bool `json:"notification"`
}

type OpenChatRequest struct {
	ContactID string `json:"contact_id"`
	Phone     string `json:"phone"`
	Name      string `json:"name"`
}

type PostListener func(t Thread, p Post)

type IThreadRepository interface {
	InitSchema(ctx context.Context) error
	GetByID(ctx context.Context, id string) (*Thread, error)
	FindByExternalKey(ctx context.Context, key string) (*Thread, error)
	Create(ctx context.Context, t *Thread, memberIDs ...string) error
	UpdateAvatar(ctx context.Context, id, avatarBase64 string) error
	// AddMember is idempotent and reports whether a row was added.
	AddMember(ctx context.Context, threadID, contactID string) (bool, error)
	ListMembers(ctx context.Context, threadID string) ([]string, error)
	CreatePost(ctx context.Context, p *Post) error
	ListPosts(ctx context.Context, threadID string, limit int) ([]Post, error)
}

type IThreadUsecase interface {
	Ingest(ctx context.Context, author contact.Contact, msg webhook.InboundMessage, grp *group.Group) (Post, error)
	Post(ctx context.Context, threadID string, req NewPost) (PostResult, error)
	Reply(ctx context.Context, threadID string, req ReplyRequest) (PostResult, error)
	OnThreadPost(ctx context.Context, t Thread, p Post) (ForwardResult, error)
	OpenDirectChat(ctx context.Context, req OpenChatRequest) (Thread, error)
	ListPosts(ctx context.Context, threadID string, limit int) ([]Post, error)
	Subscribe(listener PostListener)
}
