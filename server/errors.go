package server

import (
	"errors"
	"strings"

	"personyze/models"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const forbiddenMessage = "Sorry, you are not allowed to do that."

// classify maps an error to its HTTP status and WordPress error code
func classify(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return fiber.StatusUnauthorized, "rest_forbidden"
	case errors.Is(err, models.ErrForbidden):
		return fiber.StatusForbidden, "rest_forbidden"
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest, "rest_invalid_param"
	case errors.Is(err, models.ErrDependencyMissing):
		return fiber.StatusInternalServerError, "rest_dependency_missing"
	case errors.Is(err, models.ErrQuery):
		return fiber.StatusInternalServerError, "rest_custom_error"
	case errors.As(err, &fe):
		if fe.Code == fiber.StatusNotFound {
			return fe.Code, "rest_no_route"
		}
		return fe.Code, "rest_error"
	default:
		return fiber.StatusInternalServerError, "rest_custom_error"
	}
}

func message(err error) string {
	switch {
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrForbidden):
		return forbiddenMessage
	default:
		return err.Error()
	}
}

// restError writes err as a WordPress REST error object
func restError(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	if status >= fiber.StatusInternalServerError {
		log.WithFields(log.Fields{
			"route": c.Route().Path,
			"code":  code,
		}).WithError(err).Error("Request failed")
	}

	return c.Status(status).JSON(fiber.Map{
		"code":    code,
		"message": message(err),
		"data":    fiber.Map{"status": status},
	})
}

// ajaxError writes err the way wp_send_json_error reports a WP_Error
func ajaxError(c *fiber.Ctx, err error) error {
	status, _ := classify(err)
	if status >= fiber.StatusInternalServerError {
		log.WithFields(log.Fields{
			"route": c.Route().Path,
		}).WithError(err).Error("AJAX request failed")
	}

	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"data": []fiber.Map{
			{"code": 1, "message": err.Error()},
		},
	})
}

// errorHandler reports errors that escape the handlers, such as unknown routes
func errorHandler(c *fiber.Ctx, err error) error {
	if strings.HasPrefix(c.Path(), restPrefix) {
		return restError(c, err)
	}

	status, _ := classify(err)
	return c.Status(status).SendString(err.Error())
}
