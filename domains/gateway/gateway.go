package gateway

import (
	"context"
	"encoding/json"
)

type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
)

// UnknownGroupSubject is reported for groups that carry neither subject nor name.
const UnknownGroupSubject = "Unknown Group"

// Config is the effective connection configuration for the Evolution API.
type Config struct {
	BaseURL      string `json:"base_url"`
	Token        string `json:"token"`
	InstanceName string `json:"instance_name"`
}

func (c Config) Complete() bool {
	return c.BaseURL != "" && c.Token != ""
}

// ConfigSource is read on every gateway call, so edits apply without restart.
type ConfigSource interface {
	GatewayConfig(ctx context.Context) (Config, error)
}

// ConfigFunc adapts a plain function to ConfigSource.
type ConfigFunc func(ctx context.Context) (Config, error)

func (f ConfigFunc) GatewayConfig(ctx context.Context) (Config, error) {
	return f(ctx)
}

type MediaRequest struct {
	Phone    string
	Kind     MediaKind
	Base64   string
	Caption  string
	FileName string
	MimeType string
}

type SendResult struct {
	MessageID string `json:"message_id,omitempty"`
	Status    string `json:"status,omitempty"`
}

type Group struct {
	JID     string `json:"jid"`
	Subject string `json:"subject"`
}

type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type IGatewayClient interface {
	SendText(ctx context.Context, phone, text string) (SendResult, error)
	SendMedia(ctx context.Context, req MediaRequest) (SendResult, error)
	// FetchMediaBase64 returns "" when the content cannot be retrieved.
	FetchMediaBase64(ctx context.Context, envelope json.RawMessage) string
	// FetchProfilePicture returns "" when no picture is available.
	FetchProfilePicture(ctx context.Context, jid string) string
	TestConnection(ctx context.Context) ConnectionResult
	FetchAllGroups(ctx context.Context) []Group
}

type ISettingsUsecase interface {
	GetConfig(ctx context.Context) (Config, error)
	SaveConfig(ctx context.Context, cfg Config) (Config, error)
	// TestConnection persists override first when it is not nil.
	TestConnection(ctx context.Context, override *Config) (ConnectionResult, error)
}
