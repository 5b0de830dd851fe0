package rest

import (
	domainWebhook "github.com/AzielCF/az-wabridge/domains/webhook"
	"github.com/gofiber/fiber/v2"
)

type Webhook struct {
	Service domainWebhook.IWebhookUsecase
}

// InitRestWebhook registers the public gateway callback. It must be mounted
// outside the basic-auth group.
func InitRestWebhook(app fiber.Router, service domainWebhook.IWebhookUsecase) Webhook {
	rest := Webhook{Service: service}
	app.Post("/whatsapp/evolution/webhook", rest.Receive)
	return rest
}

// Receive always answers 200 so the gateway never retries on our account;
// the outcome travels in the body.
func (controller *Webhook) Receive(c *fiber.Ctx) error {
	// fasthttp reuses the request buffer once the handler returns.
	raw := append([]byte(nil), c.Body()...)
	outcome := controller.Service.Handle(c.UserContext(), raw)
	return c.Status(fiber.StatusOK).JSON(outcome)
}
