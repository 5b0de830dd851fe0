package rest

import (
	"github.com/AzielCF/az-wabridge/pkg/msgworker"
	"github.com/AzielCF/az-wabridge/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type WorkerPool struct {
	Pool *msgworker.Pool
}

func InitRestWorkerPool(app fiber.Router, pool *msgworker.Pool) WorkerPool {
	rest := WorkerPool{Pool: pool}
	app.Get("/worker-pool/stats", rest.Stats)
	return rest
}

// Stats returns real-time webhook worker pool statistics.
func (controller *WorkerPool) Stats(c *fiber.Ctx) error {
	if controller.Pool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
			Status:  fiber.StatusServiceUnavailable,
			Code:    "SERVICE_UNAVAILABLE",
			Message: "Worker pool not initialized",
		})
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch worker pool stats",
		Results: controller.Pool.Stats(),
	})
}
