package handler

import (
	"strconv"

	"bakery-backoffice/internal/service"
	"bakery-backoffice/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
	log     *logger.Logger
}

func NewDashboardHandler(s service.DashboardService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{service: s, log: log}
}

// GetOrderVolume returns orders and revenue per day for charts
// Query params: days (default 7, at most 90)
func (h *DashboardHandler) GetOrderVolume(c *fiber.Ctx) error {
	days := service.DefaultVolumeDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid days"})
		}
		days = n
	}

	data, err := h.service.GetOrderVolume(days)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

// GetDashboardStats returns overview statistics
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats()
	if err != nil {
		h.log.Error("dashboard stats failed", "error", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch dashboard stats"})
	}

	return c.JSON(stats)
}
