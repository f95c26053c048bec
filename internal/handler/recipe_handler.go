package handler

import (
	"bakery-backoffice/internal/service"
	"bakery-backoffice/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type RecipeHandler struct {
	service service.RecipeService
	log     *logger.Logger
}

func NewRecipeHandler(s service.RecipeService, log *logger.Logger) *RecipeHandler {
	return &RecipeHandler{service: s, log: log}
}

func (h *RecipeHandler) GetRecipes(c *fiber.Ctx) error {
	recipes, err := h.service.ListRecipes(c.UserContext(), c.Query("name"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(recipes)
}

func (h *RecipeHandler) GetRecipe(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid recipe ID"})
	}

	recipe, err := h.service.GetRecipe(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(recipe)
}

func (h *RecipeHandler) CreateRecipe(c *fiber.Ctx) error {
	var req service.CreateRecipeInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	recipe, err := h.service.CreateRecipe(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Recipe created", "data": recipe})
}

func (h *RecipeHandler) UpdateRecipe(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid recipe ID"})
	}

	var req service.UpdateRecipeInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	recipe, err := h.service.UpdateRecipe(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Recipe updated", "data": recipe})
}

func (h *RecipeHandler) DeleteRecipe(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid recipe ID"})
	}

	result, err := h.service.DeleteRecipe(c.UserContext(), id, c.QueryBool("force"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return deleteResponse(c, result)
}

// GetRecipeUsage tells whether any order references the recipe
func (h *RecipeHandler) GetRecipeUsage(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid recipe ID"})
	}

	usage, err := h.service.RecipeUsage(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(usage)
}

func (h *RecipeHandler) AddIngredient(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid recipe ID"})
	}

	var req service.RecipeIngredientInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	recipe, err := h.service.AddIngredient(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Ingredient added", "data": recipe})
}

func (h *RecipeHandler) UpdateIngredient(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid recipe ID"})
	}
	ingredientID, err := parseUUID(c.Params("ingredientId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid ingredient ID"})
	}

	var req service.RecipeIngredientInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	req.IngredientID = ingredientID

	recipe, err := h.service.UpdateIngredient(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Ingredient updated", "data": recipe})
}

func (h *RecipeHandler) RemoveIngredient(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid recipe ID"})
	}
	ingredientID, err := parseUUID(c.Params("ingredientId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid ingredient ID"})
	}

	recipe, err := h.service.RemoveIngredient(c.UserContext(), id, ingredientID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Ingredient removed", "data": recipe})
}
