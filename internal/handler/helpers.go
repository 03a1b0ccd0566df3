package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/veritriariyanto/Backend-TallyPOS/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Helper to get the acting user ID from the JWT context (set by RequireAuth)
func getUserID(c *fiber.Ctx) string {
	userID := c.Locals("user_id")
	if userID == nil {
		return "system" // shouldn't happen on protected routes
	}
	return userID.(string)
}

func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

// parseDateRange parses a start_date/end_date query pair (YYYY-MM-DD). Both
// empty means no range; a half-specified or malformed pair is an error, never
// a silent fallback. The end is extended to the inclusive end of its day.
func parseDateRange(startRaw, endRaw string) (*time.Time, *time.Time, error) {
	if startRaw == "" && endRaw == "" {
		return nil, nil, nil
	}
	start, err := time.Parse("2006-01-02", startRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid start_date %q, want YYYY-MM-DD", startRaw)
	}
	end, err := time.Parse("2006-01-02", endRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid end_date %q, want YYYY-MM-DD", endRaw)
	}
	if end.Before(start) {
		return nil, nil, fmt.Errorf("end_date %q before start_date %q", endRaw, startRaw)
	}
	end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return &start, &end, nil
}

// errStatus maps service error kinds to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCustomerNotFound),
		errors.Is(err, service.ErrCategoryNotFound),
		errors.Is(err, service.ErrTransactionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrCodeConflict),
		errors.Is(err, service.ErrDuplicateSKU),
		errors.Is(err, service.ErrDuplicateBarcode),
		errors.Is(err, service.ErrDuplicateCategory),
		errors.Is(err, service.ErrCategoryInUse):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrInvalidStatus):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrIntegrityFault):
		return fiber.StatusInternalServerError
	default:
		// validation, quantity, discount, payment, insufficient stock
		return fiber.StatusBadRequest
	}
}

func errJSON(c *fiber.Ctx, err error) error {
	return c.Status(errStatus(err)).JSON(fiber.Map{"error": err.Error()})
}
