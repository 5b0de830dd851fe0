package middleware

import (
	"errors"
	"fmt"

	domainContact "github.com/AzielCF/az-wabridge/domains/contact"
	domainGroup "github.com/AzielCF/az-wabridge/domains/group"
	domainThread "github.com/AzielCF/az-wabridge/domains/thread"
	pkgError "github.com/AzielCF/az-wabridge/pkg/error"
	"github.com/AzielCF/az-wabridge/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				res := ErrorResponse(r)
				if res.Status >= 500 {
					logrus.Errorf("[REST] panic recovered on %s %s: %v", ctx.Method(), ctx.Path(), r)
				}
				_ = ctx.Status(res.Status).JSON(res)
			}
		}()

		return ctx.Next()
	}
}

// ErrorResponse renders a recovered value as the response envelope.
// GenericError values keep their own status and code, domain lookups
// that missed become 404 and everything else is a 500.
func ErrorResponse(r any) utils.ResponseData {
	res := utils.ResponseData{
		Status:  fiber.StatusInternalServerError,
		Code:    "INTERNAL_SERVER_ERROR",
		Message: fmt.Sprintf("%v", r),
	}

	err, ok := r.(error)
	if !ok {
		return res
	}

	var generic pkgError.GenericError
	switch {
	case errors.As(err, &generic):
		res.Status = generic.StatusCode()
		res.Code = generic.ErrCode()
		res.Message = generic.Error()
	case errors.Is(err, domainContact.ErrContactNotFound),
		errors.Is(err, domainGroup.ErrGroupNotFound),
		errors.Is(err, domainThread.ErrThreadNotFound):
		res.Status = fiber.StatusNotFound
		res.Code = "NOT_FOUND_ERROR"
		res.Message = err.Error()
	}
	return res
}
