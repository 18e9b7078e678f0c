package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/example/storefront/internal/apperr"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:      fiber.StatusBadRequest,
	apperr.KindSessionExpired:  fiber.StatusUnauthorized,
	apperr.KindNotFound:        fiber.StatusNotFound,
	apperr.KindExpired:         fiber.StatusGone,
	apperr.KindMismatch:        fiber.StatusBadRequest,
	apperr.KindConflict:        fiber.StatusConflict,
	apperr.KindDependency:      fiber.StatusBadGateway,
	apperr.KindUnauthorized:    fiber.StatusUnauthorized,
	apperr.KindTooManyRequests: fiber.StatusTooManyRequests,
	apperr.KindInternal:        fiber.StatusInternalServerError,
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error returned by a handler as
// {"success": false, "error": {...}}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{
			"success": false,
			"error": fiber.Map{
				"code":    codeForStatus(fe.Code),
				"message": fe.Message,
			},
		})
	}

	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal(err)
	}

	status := StatusFor(appErr.Kind)
	message := appErr.Message
	if status >= fiber.StatusInternalServerError {
		log.Error().Err(err).Str("component", "http").
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")
		if appErr.Kind == apperr.KindInternal {
			message = "internal server error"
		}
	}

	body := fiber.Map{
		"code":    appErr.Kind,
		"message": message,
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	return c.Status(status).JSON(fiber.Map{"success": false, "error": body})
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return string(apperr.KindValidation)
	case fiber.StatusUnauthorized:
		return string(apperr.KindUnauthorized)
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusNotFound:
		return string(apperr.KindNotFound)
	case fiber.StatusTooManyRequests:
		return string(apperr.KindTooManyRequests)
	}
	if status >= fiber.StatusInternalServerError {
		return string(apperr.KindInternal)
	}
	return "error"
}

// warningBody renders a soft failure attached to a successful response.
func warningBody(w *apperr.Error) fiber.Map {
	if w == nil {
		return nil
	}
	return fiber.Map{"code": w.Kind, "message": w.Message}
}
