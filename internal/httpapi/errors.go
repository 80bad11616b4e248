package httpapi

import (
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/Aman-CERP/choralmind/internal/errors"
	"github.com/Aman-CERP/choralmind/internal/synth"
)

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Status int               `json:"status"`
	Errors map[string]string `json:"errors"`
}

func (e ValidationError) Error() string {
	return "validation failed"
}

// ErrBadRequest is returned for bodies that are not valid JSON.
var ErrBadRequest = fiber.NewError(fiber.StatusBadRequest, "invalid JSON request")

// newValidationError converts validator output to a ValidationError.
func newValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ValidationError(err.Error(), err)
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		field := e.Field()
		switch {
		case field == "query" && e.Tag() == "required":
			fields[field] = synth.EmptyQueryMessage
		case e.Param() != "":
			fields[field] = fmt.Sprintf("failed on '%s=%s'", e.Tag(), e.Param())
		default:
			fields[field] = fmt.Sprintf("failed on '%s'", e.Tag())
		}
	}
	return ValidationError{Status: fiber.StatusUnprocessableEntity, Errors: fields}
}

// statusFor maps an application error to an HTTP status.
func statusFor(ae *errors.AppError) int {
	switch ae.Code {
	case errors.ErrCodeIndexNotFound:
		return fiber.StatusServiceUnavailable
	case errors.ErrCodeModelMismatch:
		return fiber.StatusConflict
	case errors.ErrCodeFileCorrupt, errors.ErrCodeCorruptIndex:
		return fiber.StatusInternalServerError
	}
	switch ae.Category {
	case errors.CategoryValidation:
		return fiber.StatusBadRequest
	case errors.CategoryProvider:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error returned by a handler as JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	if verr, ok := err.(ValidationError); ok {
		return c.Status(verr.Status).JSON(verr)
	}
	if ferr, ok := err.(*fiber.Error); ok {
		return c.Status(ferr.Code).JSON(fiber.Map{"code": ferr.Code, "error": ferr.Message})
	}

	ae, ok := errors.As(err)
	if !ok {
		ae = errors.Wrap(errors.ErrCodeInternal, err)
	}
	status := statusFor(ae)
	if status >= fiber.StatusInternalServerError {
		attrs := append([]slog.Attr{
			slog.String("path", c.Path()),
			slog.Int("status", status),
		}, errors.LogAttrs(err)...)
		slog.LogAttrs(c.UserContext(), slog.LevelError, "http_request_failed", attrs...)
	}

	body, jerr := errors.FormatJSON(ae)
	if jerr != nil {
		return c.Status(status).JSON(fiber.Map{"error": ae.Message})
	}
	c.Status(status)
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}
