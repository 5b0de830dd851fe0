package domain

import "context"

// ISettingsRepository persists operator-editable key/value settings.
type ISettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error

	InitSchema(ctx context.Context) error
}

const (
	KeyEvolutionAPIURL       = "whatsapp.evolution_api_url"
	KeyEvolutionAPIToken     = "whatsapp.evolution_api_token"
	KeyEvolutionInstanceName = "whatsapp.evolution_instance_name"
)
