package handler

import (
	"bakery-backoffice/internal/apperr"
	"bakery-backoffice/internal/model"
	"bakery-backoffice/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// getCaller reads the identity RequireAuth stored in the request locals.
func getCaller(c *fiber.Ctx) model.Caller {
	userID, _ := c.Locals("user_id").(string)
	name, _ := c.Locals("user_name").(string)
	role, _ := c.Locals("user_role").(string)
	return model.Caller{UserID: userID, Name: name, Role: model.Role(role)}
}

func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindValidation,
		apperr.KindIncompatibleUnit,
		apperr.KindUnknownUnit,
		apperr.KindInvalidIngredientConfig,
		apperr.KindInvalidStockState,
		apperr.KindCostComputation,
		apperr.KindRecipeCostUndefined,
		apperr.KindInvalidStatus:
		return fiber.StatusBadRequest
	case apperr.KindInsufficientStock, apperr.KindOrderClosed, apperr.KindConflict:
		return fiber.StatusConflict
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError renders a service error. Internal failures keep their detail
// in the log only.
func respondError(c *fiber.Ctx, log *logger.Logger, err error) error {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error", "kind": apperr.KindInternal.String()})
	}

	body := fiber.Map{"error": e.Message, "kind": e.Kind.String()}
	if e.Details != nil {
		body["details"] = e.Details
	}
	return c.Status(statusFor(e.Kind)).JSON(body)
}
