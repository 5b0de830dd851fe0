package application

import (
	"context"
	"fmt"
	"strings"

	coreconfig "github.com/AzielCF/az-wabridge/core/config"
	"github.com/AzielCF/az-wabridge/core/settings/domain"
	"github.com/AzielCF/az-wabridge/core/settings/infrastructure"
	"github.com/AzielCF/az-wabridge/domains/gateway"
	"github.com/AzielCF/az-wabridge/pkg/crypto"
	"gorm.io/gorm"
)

// SettingsService stores the gateway connection settings. Stored values
// override the environment defaults key by key.
type SettingsService struct {
	repo     domain.ISettingsRepository
	defaults coreconfig.EvolutionConfig
	sealer   *crypto.Sealer
}

func NewSettingsService(db *gorm.DB, defaults coreconfig.EvolutionConfig) *SettingsService {
	return NewSettingsServiceWithRepo(infrastructure.NewSettingsGormRepository(db), defaults)
}

func NewSettingsServiceWithRepo(repo domain.ISettingsRepository, defaults coreconfig.EvolutionConfig) *SettingsService {
	return &SettingsService{repo: repo, defaults: defaults}
}

// WithTokenSealer encrypts the stored API token. Tokens saved as plain text
// earlier stay readable.
func (s *SettingsService) WithTokenSealer(sealer *crypto.Sealer) *SettingsService {
	s.sealer = sealer
	return s
}

func (s *SettingsService) InitSchema(ctx context.Context) error {
	return s.repo.InitSchema(ctx)
}

// GatewayConfig returns the effective configuration with the base URL
// trimmed of trailing slashes and the instance name defaulted.
func (s *SettingsService) GatewayConfig(ctx context.Context) (gateway.Config, error) {
	stored, err := s.repo.GetMany(ctx,
		domain.KeyEvolutionAPIURL,
		domain.KeyEvolutionAPIToken,
		domain.KeyEvolutionInstanceName,
	)
	if err != nil {
		return gateway.Config{}, err
	}

	token, err := s.sealer.Open(stored[domain.KeyEvolutionAPIToken])
	if err != nil {
		return gateway.Config{}, fmt.Errorf("stored gateway token: %w", err)
	}

	cfg := gateway.Config{
		BaseURL:      firstNonEmpty(stored[domain.KeyEvolutionAPIURL], s.defaults.BaseURL),
		Token:        firstNonEmpty(token, s.defaults.Token),
		InstanceName: firstNonEmpty(stored[domain.KeyEvolutionInstanceName], s.defaults.InstanceName, coreconfig.DefaultInstanceName),
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg, nil
}

// SetGatewayConfig stores every non-empty field; empty fields keep the current value.
func (s *SettingsService) SetGatewayConfig(ctx context.Context, cfg gateway.Config) error {
	values := map[string]string{
		domain.KeyEvolutionAPIURL:       strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		domain.KeyEvolutionAPIToken:     strings.TrimSpace(cfg.Token),
		domain.KeyEvolutionInstanceName: strings.TrimSpace(cfg.InstanceName),
	}
	for _, key := range []string{domain.KeyEvolutionAPIURL, domain.KeyEvolutionAPIToken, domain.KeyEvolutionInstanceName} {
		value := values[key]
		if value == "" {
			continue
		}
		if key == domain.KeyEvolutionAPIToken {
			sealed, err := s.sealer.Seal(value)
			if err != nil {
				return err
			}
			value = sealed
		}
		if err := s.repo.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
