package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/healthmate/server/internal/services"
	"github.com/healthmate/server/internal/session"
	"github.com/healthmate/server/pkg/logger"
	"github.com/healthmate/server/pkg/utils"
)

const (
	msgDuplicateEmail     = "This email is already registered. Try logging in."
	msgInvalidCredentials = "Invalid email or password."
	msgSessionExpired     = "session expired, please log in again"
)

func parseID(value string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func userIDString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// respondServiceError maps a service or session error onto the response envelope.
func respondServiceError(c *fiber.Ctx, err error, action string) error {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return utils.Error(c, fiber.StatusBadRequest, validationErr.Error())
	case errors.Is(err, services.ErrValidation):
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrDuplicateEmail):
		return utils.Error(c, fiber.StatusConflict, msgDuplicateEmail)
	case errors.Is(err, services.ErrInvalidCredentials):
		return utils.Error(c, fiber.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, session.ErrSessionNotFound):
		return utils.Error(c, fiber.StatusUnauthorized, msgSessionExpired)
	case errors.Is(err, services.ErrGatewayTimeout):
		return utils.Error(c, fiber.StatusGatewayTimeout, "the assistant took too long to respond, please try again")
	case errors.Is(err, services.ErrGateway):
		return utils.Error(c, fiber.StatusBadGateway, "the assistant is unavailable right now, please try again")
	case errors.Is(err, services.ErrExtractionFailed):
		return utils.Error(c, fiber.StatusUnprocessableEntity, "could not read text from this record")
	case errors.Is(err, services.ErrStorageIO):
		logger.Error(action, err, nil)
		return utils.Error(c, fiber.StatusBadGateway, "record storage is unavailable")
	case errors.Is(err, services.ErrStagedUploadNotFound):
		return utils.Error(c, fiber.StatusNotFound, "staged upload not found")
	case errors.Is(err, services.ErrDocumentNotFound):
		return utils.Error(c, fiber.StatusNotFound, "record not found")
	case errors.Is(err, services.ErrUnknownOwner):
		return utils.Error(c, fiber.StatusNotFound, "record owner not found")
	case errors.Is(err, services.ErrDuplicateLocation):
		return utils.Error(c, fiber.StatusConflict, "record already registered")
	default:
		logger.Error(action, err, map[string]interface{}{
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusInternalServerError, "internal server error")
	}
}
