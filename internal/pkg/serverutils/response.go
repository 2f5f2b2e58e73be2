package serverutils

import (
	"errors"

	"github.com/longlongyang/wechat-article-insight/pkg/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type SuccessBody[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"` // machine code from the error taxonomy
}

func SuccessResponse[T any](message string, data T) SuccessBody[T] {
	return SuccessBody[T]{Message: message, Data: data}
}

func ErrorResponse(code int, message string) ErrorBody {
	return ErrorBody{Code: code, Message: message}
}

var validate = validator.New()

func ValidateRequest(s interface{}) error {
	return validate.Struct(s)
}

// ErrorHandlerMiddleware translates errors escaping controllers into the
// JSON error envelope. Classified errors map by kind; validation errors
// map to 400; *fiber.Error values keep their own status code and message;
// everything else is a 500 with a generic message.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return ctx.Status(fiber.StatusBadRequest).JSON(ErrorBody{
				Code:    fiber.StatusBadRequest,
				Message: err.Error(),
			})
		}

		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			status := statusForKind(appErr.Kind)
			return ctx.Status(status).JSON(ErrorBody{
				Code:    status,
				Message: appErr.Message,
				Kind:    appErr.Kind.String(),
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorBody{
				Code:    fiberErr.Code,
				Message: fiberErr.Message,
			})
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorBody{
			Code:    fiber.StatusInternalServerError,
			Message: "internal server error",
		})
	}
}

func statusForKind(k apperr.Kind) int {
	switch k {
	case apperr.KindSessionExpired, apperr.KindAuthInvalid:
		return fiber.StatusUnauthorized
	case apperr.KindRateLimited, apperr.KindQuotaExhausted:
		return fiber.StatusTooManyRequests
	case apperr.KindTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}
