package handler

import (
	"bakery-backoffice/internal/service"
	"bakery-backoffice/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	service service.OrderService
	log     *logger.Logger
}

func NewOrderHandler(s service.OrderService, log *logger.Logger) *OrderHandler {
	return &OrderHandler{service: s, log: log}
}

type resizeLineRequest struct {
	Quantity *int `json:"quantity"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

// GetOrders lists orders, optionally filtered by ?customer=
func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListOrders(c.UserContext(), c.Query("customer"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(orders)
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	order, err := h.service.GetOrder(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(order)
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req service.CreateOrderInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.service.CreateOrder(c.UserContext(), req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Order created", "data": order})
}

// ReplaceOrder swaps the whole composition of an open order
func (h *OrderHandler) ReplaceOrder(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var req service.ReplaceOrderInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.service.ReplaceComposition(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Order updated", "data": order})
}

func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	if err := h.service.DeleteOrder(c.UserContext(), id); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Order deleted"})
}

// AddLine adds a recipe to the order or increments its quantity
func (h *OrderHandler) AddLine(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var req service.LineInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.service.AddOrIncrementLine(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Order updated", "data": order})
}

// ResizeLine sets a line's quantity; zero removes the line
func (h *OrderHandler) ResizeLine(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}
	recipeID, err := parseUUID(c.Params("recipeId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid recipe ID"})
	}

	var req resizeLineRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.Quantity == nil {
		return c.Status(400).JSON(fiber.Map{"error": "quantity is required"})
	}

	order, err := h.service.ResizeLine(c.UserContext(), id, recipeID, *req.Quantity)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Order updated", "data": order})
}

func (h *OrderHandler) RemoveLine(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}
	recipeID, err := parseUUID(c.Params("recipeId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid recipe ID"})
	}

	order, err := h.service.RemoveLine(c.UserContext(), id, recipeID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Order updated", "data": order})
}

func (h *OrderHandler) SetStatus(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var req setStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	order, err := h.service.SetStatus(c.UserContext(), id, req.Status, getCaller(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Order status updated", "data": order})
}
