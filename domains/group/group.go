package group

import (
	"context"
	"errors"
	"time"
)

type State string

const (
	StatePending  State = "pending"
	StateAccepted State = "accepted"
	StateRejected State = "rejected"
)

// GateOutcome tells the webhook pipeline what to do with a group message.
type GateOutcome string

const (
	GatePass    GateOutcome = "pass"
	GatePending GateOutcome = "pending_approval"
	GateBlocked GateOutcome = "blocked"
)

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrDuplicateGroup = errors.New("group already registered")
)

type Group struct {
	ID         string    `json:"id"`
	JID        string    `json:"jid"`
	Name       string    `json:"name"`
	State      State     `json:"state"`
	IconBase64 string    `json:"icon_base64,omitempty"`
	ThreadID   string    `json:"thread_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type SyncReport struct {
	Found        int    `json:"found"`
	Created      int    `json:"created"`
	Renamed      int    `json:"renamed"`
	IconsFetched int    `json:"icons_fetched"`
	Message      string `json:"message"`
}

type RejectRequest struct {
	IDs []string `json:"ids"`
}

type IGroupRepository interface {
	InitSchema(ctx context.Context) error
	GetByID(ctx context.Context, id string) (*Group, error)
	GetByJID(ctx context.Context, jid string) (*Group, error)
	List(ctx context.Context, state State) ([]Group, error)
	Create(ctx context.Context, g *Group) error
	Update(ctx context.Context, g *Group) error
	// SetState moves only records currently in from.
	SetState(ctx context.Context, ids []string, from, to State) (int64, error)
}

type IGroupUsecase interface {
	Gate(ctx context.Context, jid string) (Group, GateOutcome, error)
	Approve(ctx context.Context, id string) (Group, error)
	Reject(ctx context.Context, ids []string) (int, error)
	Sync(ctx context.Context) (SyncReport, error)
	FetchIcons(ctx context.Context, ids []string) (int, error)
	List(ctx context.Context, state State) ([]Group, error)
}
