package usecase

import (
	"context"

	domainGateway "github.com/AzielCF/az-wabridge/domains/gateway"
	"github.com/AzielCF/az-wabridge/validations"
)

// GatewaySettingsStore is satisfied by the settings service.
type GatewaySettingsStore interface {
	domainGateway.ConfigSource
	SetGatewayConfig(ctx context.Context, cfg domainGateway.Config) error
}

type serviceGatewaySettings struct {
	store  GatewaySettingsStore
	client domainGateway.IGatewayClient
}

func NewGatewaySettingsService(store GatewaySettingsStore, client domainGateway.IGatewayClient) domainGateway.ISettingsUsecase {
	return &serviceGatewaySettings{store: store, client: client}
}

func (service *serviceGatewaySettings) GetConfig(ctx context.Context) (domainGateway.Config, error) {
	return service.store.GatewayConfig(ctx)
}

func (service *serviceGatewaySettings) SaveConfig(ctx context.Context, cfg domainGateway.Config) (domainGateway.Config, error) {
	if err := validations.ValidateGatewayConfig(ctx, cfg); err != nil {
		return domainGateway.Config{}, err
	}
	if err := service.store.SetGatewayConfig(ctx, cfg); err != nil {
		return domainGateway.Config{}, err
	}
	return service.store.GatewayConfig(ctx)
}

func (service *serviceGatewaySettings) TestConnection(ctx context.Context, override *domainGateway.Config) (domainGateway.ConnectionResult, error) {
	if override != nil {
		if _, err := service.SaveConfig(ctx, *override); err != nil {
			return domainGateway.ConnectionResult{}, err
		}
	}
	return service.client.TestConnection(ctx), nil
}
