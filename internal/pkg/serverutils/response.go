package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func ErrorResponse(code int, message string) fiber.Map {
	return fiber.Map{
		"success": false,
		"error":   errorBody{Code: code, Message: message},
	}
}

func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}

// ErrorHandlerMiddleware turns errors returned by later handlers into the
// standard JSON error body.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}
