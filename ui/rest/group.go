package rest

import (
	domainGroup "github.com/AzielCF/az-wabridge/domains/group"
	pkgError "github.com/AzielCF/az-wabridge/pkg/error"
	"github.com/AzielCF/az-wabridge/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Group struct {
	Service domainGroup.IGroupUsecase
}

func InitRestGroup(app fiber.Router, service domainGroup.IGroupUsecase) Group {
	rest := Group{Service: service}
	app.Get("/groups", rest.List)
	app.Post("/groups/sync", rest.Sync)
	app.Post("/groups/reject", rest.Reject)
	app.Post("/groups/:id/approve", rest.Approve)
	app.Post("/groups/:id/icon", rest.FetchIcon)
	return rest
}

func (controller *Group) List(c *fiber.Ctx) error {
	state := domainGroup.State(c.Query("state"))
	switch state {
	case "", domainGroup.StatePending, domainGroup.StateAccepted, domainGroup.StateRejected:
	default:
		utils.PanicIfNeeded(pkgError.ValidationError("state must be one of pending, accepted, rejected"))
	}

	groups, err := controller.Service.List(c.UserContext(), state)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch groups",
		Results: groups,
	})
}

func (controller *Group) Sync(c *fiber.Ctx) error {
	report, err := controller.Service.Sync(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: report.Message,
		Results: report,
	})
}

func (controller *Group) Reject(c *fiber.Ctx) error {
	var request domainGroup.RejectRequest
	parseBody(c, &request)

	n, err := controller.Service.Reject(c.UserContext(), request.IDs)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success reject groups",
		Results: fiber.Map{"rejected": n},
	})
}

func (controller *Group) Approve(c *fiber.Ctx) error {
	g, err := controller.Service.Approve(c.UserContext(), c.Params("id"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success approve group",
		Results: g,
	})
}

func (controller *Group) FetchIcon(c *fiber.Ctx) error {
	n, err := controller.Service.FetchIcons(c.UserContext(), []string{c.Params("id")})
	utils.PanicIfNeeded(err)

	message := "Group icon updated"
	if n == 0 {
		message = "No icon available for this group"
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: fiber.Map{"updated": n},
	})
}
