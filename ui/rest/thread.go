package rest

import (
	domainThread "github.com/AzielCF/az-wabridge/domains/thread"
	"github.com/AzielCF/az-wabridge/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

const maxPostsPage = 200

type Thread struct {
	Service domainThread.IThreadUsecase
}

func InitRestThread(app fiber.Router, service domainThread.IThreadUsecase) Thread {
	rest := Thread{Service: service}
	app.Post("/threads/open", rest.OpenDirectChat)
	app.Get("/threads/:id/posts", rest.ListPosts)
	app.Post("/threads/:id/posts", rest.Reply)
	return rest
}

func (controller *Thread) OpenDirectChat(c *fiber.Ctx) error {
	var request domainThread.OpenChatRequest
	parseBody(c, &request)

	t, err := controller.Service.OpenDirectChat(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "WhatsApp chat ready",
		Results: t,
	})
}

func (controller *Thread) ListPosts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > maxPostsPage {
		limit = maxPostsPage
	}

	posts, err := controller.Service.ListPosts(c.UserContext(), c.Params("id"), limit)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch posts",
		Results: posts,
	})
}

func (controller *Thread) Reply(c *fiber.Ctx) error {
	var request domainThread.ReplyRequest
	parseBody(c, &request)

	result, err := controller.Service.Reply(c.UserContext(), c.Params("id"), request)
	utils.PanicIfNeeded(err)

	message := "Reply posted"
	if len(result.Forward.Errors) > 0 {
		message = "Reply posted but WhatsApp delivery failed"
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: result,
	})
}
