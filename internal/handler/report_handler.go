package handler

import (
	"strconv"
	"time"

	"github.com/veritriariyanto/Backend-TallyPOS/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(s service.ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

func (h *ReportHandler) GetSalesReport(c *fiber.Ctx) error {
	// Default window: the last 7 days.
	now := time.Now().UTC()
	startDate := now.AddDate(0, 0, -7)
	endDate := now

	start, end, err := parseDateRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	if start != nil {
		startDate, endDate = *start, *end
	}

	report, err := h.service.GetSalesReport(startDate, endDate)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(report)
}

func (h *ReportHandler) GetTopProducts(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "10"))

	products, err := h.service.GetTopProducts(limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(products)
}
