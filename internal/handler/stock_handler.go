package handler

import (
	"github.com/veritriariyanto/Backend-TallyPOS/internal/model"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/repository"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/service"

	"github.com/gofiber/fiber/v2"
)

type StockHandler struct {
	ledger service.StockLedger
}

func NewStockHandler(ledger service.StockLedger) *StockHandler {
	return &StockHandler{ledger: ledger}
}

func (h *StockHandler) ApplyMovement(c *fiber.Ctx) error {
	var req service.ApplyMovementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.ReferenceType == "" {
		req.ReferenceType = model.ReferenceManual
	}

	movement, err := h.ledger.ApplyMovement(&req, getUserID(c))
	if err != nil {
		return errJSON(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Stock movement recorded", "data": movement})
}

func (h *StockHandler) GetMovements(c *fiber.Ctx) error {
	filter := repository.MovementFilter{
		Type: model.MovementType(c.Query("type")),
	}
	if id, err := parseUUID(c.Query("product_id")); err == nil {
		filter.ProductID = &id
	}
	start, end, err := parseDateRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	filter.StartDate = start
	filter.EndDate = end

	movements, err := h.ledger.GetMovements(filter)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(movements)
}

func (h *StockHandler) GetMovementsByProduct(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("productId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	movements, err := h.ledger.GetMovementsByProduct(productID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(movements)
}

func (h *StockHandler) GetSummary(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("productId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	startDate, endDate, err := parseDateRange(c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	summary, err := h.ledger.GetSummary(productID, startDate, endDate)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.JSON(summary)
}

// VerifyProduct audits the ledger invariant for one product.
func (h *StockHandler) VerifyProduct(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("productId"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	if err := h.ledger.VerifyProduct(productID); err != nil {
		return errJSON(c, err)
	}
	return c.JSON(fiber.Map{"message": "Ledger consistent"})
}
