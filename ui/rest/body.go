package rest

import (
	"fmt"

	pkgError "github.com/AzielCF/az-wabridge/pkg/error"
	"github.com/AzielCF/az-wabridge/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

func parseBody(c *fiber.Ctx, out any) {
	if err := c.BodyParser(out); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError(fmt.Sprintf("invalid request body: %v", err)))
	}
}
