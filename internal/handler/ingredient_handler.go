package handler

import (
	"bakery-backoffice/internal/service"
	"bakery-backoffice/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type IngredientHandler struct {
	service service.IngredientService
	log     *logger.Logger
}

func NewIngredientHandler(s service.IngredientService, log *logger.Logger) *IngredientHandler {
	return &IngredientHandler{service: s, log: log}
}

// GetIngredients lists ingredients, optionally filtered by ?name=
func (h *IngredientHandler) GetIngredients(c *fiber.Ctx) error {
	ingredients, err := h.service.ListIngredients(c.UserContext(), c.Query("name"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(ingredients)
}

func (h *IngredientHandler) GetIngredient(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid ingredient ID"})
	}

	ingredient, err := h.service.GetIngredient(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(ingredient)
}

// GetIngredientUsage lists the recipes that use the ingredient
func (h *IngredientHandler) GetIngredientUsage(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid ingredient ID"})
	}

	usage, err := h.service.IngredientUsage(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(usage)
}

func (h *IngredientHandler) CreateIngredient(c *fiber.Ctx) error {
	var req service.CreateIngredientInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	ingredient, err := h.service.CreateIngredient(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Ingredient created", "data": ingredient})
}

func (h *IngredientHandler) UpdateIngredient(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid ingredient ID"})
	}

	var req service.UpdateIngredientInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	ingredient, err := h.service.UpdateIngredient(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Ingredient updated", "data": ingredient})
}

// DeleteIngredient answers 409 with the affected recipes and orders unless
// ?force=true is given.
func (h *IngredientHandler) DeleteIngredient(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid ingredient ID"})
	}

	result, err := h.service.DeleteIngredient(c.UserContext(), id, c.QueryBool("force"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return deleteResponse(c, result)
}

func deleteResponse(c *fiber.Ctx, result *service.DeleteResult) error {
	if result.Result == service.ResultConfirmationRequired {
		return c.Status(409).JSON(result)
	}
	return c.JSON(result)
}
