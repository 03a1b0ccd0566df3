package handler

import (
	"github.com/veritriariyanto/Backend-TallyPOS/internal/model"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/repository"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SaleHandler struct {
	service service.SaleService
}

func NewSaleHandler(s service.SaleService) *SaleHandler {
	return &SaleHandler{service: s}
}

func (h *SaleHandler) CreateSale(c *fiber.Ctx) error {
	var req service.CreateSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	transaction, err := h.service.CreateSale(&req, getUserID(c))
	if err != nil {
		return errJSON(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Sale completed", "data": transaction})
}

func (h *SaleHandler) CancelSale(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	transaction, err := h.service.CancelSale(id, getUserID(c))
	if err != nil {
		return errJSON(c, err)
	}

	return c.JSON(fiber.Map{"message": "Sale cancelled", "data": transaction})
}

func (h *SaleHandler) GetSales(c *fiber.Ctx) error {
	filter := repository.TransactionFilter{
		UserID: c.Query("user_id"),
		Status: model.TransactionStatus(c.Query("status")),
	}

	start, end, err := parseDateRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	filter.StartDate = start
	filter.EndDate = end

	transactions, err := h.service.GetSales(filter)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(transactions)
}

func (h *SaleHandler) GetSale(c *fiber.Ctx) error {
	id, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid transaction ID"})
	}

	transaction, err := h.service.GetSaleByID(id)
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(transaction)
}

func (h *SaleHandler) GetSaleByCode(c *fiber.Ctx) error {
	transaction, err := h.service.GetSaleByCode(c.Params("code"))
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(transaction)
}
