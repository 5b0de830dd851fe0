package contact

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	SystemKeyOperator   = "operator"
	SystemKeyGroupGuest = "group_guest"
)

var (
	ErrContactNotFound  = errors.New("contact not found")
	ErrDuplicateContact = errors.New("contact already exists")
)

type Contact struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone,omitempty"`
	Mobile      string    `json:"mobile,omitempty"`
	ImageBase64 string    `json:"image_base64,omitempty"`
	SystemKey   string    `json:"system_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Number prefers the mobile number over the landline.
func (c Contact) Number() string {
	if c.Mobile != "" {
		return c.Mobile
	}
	return c.Phone
}

type IContactRepository interface {
	InitSchema(ctx context.Context) error
	GetByID(ctx context.Context, id string) (*Contact, error)
	// FindByPhone matches phone or mobile exactly.
	FindByPhone(ctx context.Context, phone string) (*Contact, error)
	Create(ctx context.Context, c *Contact) error
	UpdateImage(ctx context.Context, id, imageBase64 string) error
	EnsureSystemContact(ctx context.Context, key, name string) (*Contact, error)
}

type ResolveRequest struct {
	SenderJID string
	RemoteJID string
	IsGroup   bool
	PushName  string
}

// Resolution is the directory identity a message is attributed to. Guest is
// set when a group sender is unknown and the shared guest contact is used.
type Resolution struct {
	Contact    *Contact
	JID        string
	Guest      bool
	SenderName string
}

// Attribute prefixes the body with the sender name for guest posts.
func (r Resolution) Attribute(body string, hasMedia bool) string {
	if !r.Guest {
		return body
	}
	if body != "" {
		return fmt.Sprintf("*%s*: %s", r.SenderName, body)
	}
	if hasMedia {
		return fmt.Sprintf("*%s* sent an attachment", r.SenderName)
	}
	return body
}

type IIdentityResolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (Resolution, error)
}
