package usecase

import (
	"context"
	"testing"

	coreconfig "github.com/AzielCF/az-wabridge/core/config"
	"github.com/AzielCF/az-wabridge/core/settings/application"
	domainGateway "github.com/AzielCF/az-wabridge/domains/gateway"
	pkgError "github.com/AzielCF/az-wabridge/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGatewaySettings(t *testing.T) (domainGateway.ISettingsUsecase, *application.SettingsService) {
	t.Helper()
	db := openTestDB(t)
	store := application.NewSettingsService(db, coreconfig.EvolutionConfig{BaseURL: "http://env:8080", Token: "env-token"})
	require.NoError(t, store.InitSchema(context.Background()))
	return NewGatewaySettingsService(store, newFakeGateway()), store
}

func TestGatewaySettings_DefaultsAndSave(t *testing.T) {
	svc, _ := newGatewaySettings(t)
	ctx := context.Background()

	cfg, err := svc.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://env:8080", cfg.BaseURL)
	assert.Equal(t, coreconfig.DefaultInstanceName, cfg.InstanceName)

	saved, err := svc.SaveConfig(ctx, domainGateway.Config{BaseURL: "https://evo.example.com/", InstanceName: "Sales"})
	require.NoError(t, err)
	assert.Equal(t, "https://evo.example.com", saved.BaseURL)
	assert.Equal(t, "env-token", saved.Token)
	assert.Equal(t, "Sales", saved.InstanceName)
}

func TestGatewaySettings_RejectsBadURL(t *testing.T) {
	svc, _ := newGatewaySettings(t)

	_, err := svc.SaveConfig(context.Background(), domainGateway.Config{BaseURL: "not a url"})
	var validationErr pkgError.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestGatewaySettings_TestConnectionSavesOverride(t *testing.T) {
	svc, store := newGatewaySettings(t)
	ctx := context.Background()

	res, err := svc.TestConnection(ctx, &domainGateway.Config{Token: "new-token"})
	require.NoError(t, err)
	assert.True(t, res.Success)

	cfg, err := store.GatewayConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new-token", cfg.Token)

	res, err = svc.TestConnection(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, "Connection Successful! Instance State: open", res.Message)
}
