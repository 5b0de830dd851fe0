package rest

import (
	"strings"

	domainGateway "github.com/AzielCF/az-wabridge/domains/gateway"
	"github.com/AzielCF/az-wabridge/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Settings struct {
	Service domainGateway.ISettingsUsecase
}

type gatewaySettingsResponse struct {
	BaseURL      string `json:"evolution_api_url"`
	Token        string `json:"evolution_api_token"`
	InstanceName string `json:"evolution_instance_name"`
	Complete     bool   `json:"complete"`
}

type gatewaySettingsRequest struct {
	BaseURL      string `json:"evolution_api_url"`
	Token        string `json:"evolution_api_token"`
	InstanceName string `json:"evolution_instance_name"`
}

func (r gatewaySettingsRequest) config() domainGateway.Config {
	return domainGateway.Config{BaseURL: r.BaseURL, Token: r.Token, InstanceName: r.InstanceName}
}

func (r gatewaySettingsRequest) empty() bool {
	return strings.TrimSpace(r.BaseURL+r.Token+r.InstanceName) == ""
}

func InitRestSettings(app fiber.Router, service domainGateway.ISettingsUsecase) Settings {
	rest := Settings{Service: service}
	app.Get("/settings/gateway", rest.Get)
	app.Put("/settings/gateway", rest.Save)
	app.Post("/settings/gateway/test", rest.TestConnection)
	return rest
}

func (controller *Settings) Get(c *fiber.Ctx) error {
	cfg, err := controller.Service.GetConfig(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch gateway settings",
		Results: maskedSettings(cfg),
	})
}

func (controller *Settings) Save(c *fiber.Ctx) error {
	var request gatewaySettingsRequest
	parseBody(c, &request)

	cfg, err := controller.Service.SaveConfig(c.UserContext(), request.config())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Gateway settings saved",
		Results: maskedSettings(cfg),
	})
}

// TestConnection saves the posted values first when any are given.
func (controller *Settings) TestConnection(c *fiber.Ctx) error {
	var request gatewaySettingsRequest
	if len(c.Body()) > 0 {
		parseBody(c, &request)
	}

	var override *domainGateway.Config
	if !request.empty() {
		cfg := request.config()
		override = &cfg
	}

	result, err := controller.Service.TestConnection(c.UserContext(), override)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: result.Message,
		Results: result,
	})
}

func maskedSettings(cfg domainGateway.Config) gatewaySettingsResponse {
	return gatewaySettingsResponse{
		BaseURL:      cfg.BaseURL,
		Token:        maskToken(cfg.Token),
		InstanceName: cfg.InstanceName,
		Complete:     cfg.Complete(),
	}
}

// maskToken keeps the last four characters of long tokens.
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}
