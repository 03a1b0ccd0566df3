package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/veritriariyanto/Backend-TallyPOS/internal/model"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/repository"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/ws"
	"github.com/veritriariyanto/Backend-TallyPOS/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplyMovementRequest describes one stock change. Quantity is signed:
// positive for in/return, negative for out/damaged, either for adjustment.
type ApplyMovementRequest struct {
	ProductID     uuid.UUID          `json:"product_id" validate:"uuid_required"`
	Type          model.MovementType `json:"type" validate:"required,oneof=in out adjustment return damaged"`
	Quantity      int                `json:"quantity"`
	ReferenceType string             `json:"reference_type"`
	ReferenceID   string             `json:"reference_id"`
	Notes         string             `json:"notes"`
}

// StockLedger is the single gateway for stock mutation. Every stock counter
// write in the system goes through ApplyMovement so the counter always equals
// the sum of the movement history.
type StockLedger interface {
	ApplyMovement(req *ApplyMovementRequest, userID string) (*model.StockMovement, error)
	GetMovements(filter repository.MovementFilter) ([]model.StockMovement, error)
	GetMovementsByProduct(productID uuid.UUID) ([]model.StockMovement, error)
	GetMovementsByReference(referenceType, referenceID string) ([]model.StockMovement, error)
	GetSummary(productID uuid.UUID, startDate, endDate *time.Time) (*repository.StockSummary, error)
	VerifyProduct(productID uuid.UUID) error
}

type stockLedger struct {
	db           *gorm.DB
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
	wsHub        *ws.Hub
}

func NewStockLedger(db *gorm.DB, productRepo repository.ProductRepository, movementRepo repository.StockMovementRepository, hub *ws.Hub) StockLedger {
	return &stockLedger{
		db:           db,
		productRepo:  productRepo,
		movementRepo: movementRepo,
		wsHub:        hub,
	}
}

// validateMovementQuantity enforces the sign convention per movement type.
func validateMovementQuantity(movementType model.MovementType, quantity int) error {
	if quantity == 0 {
		return fmt.Errorf("%w: quantity must not be zero", ErrInvalidQuantity)
	}
	switch movementType {
	case model.MovementIn, model.MovementReturn:
		if quantity < 0 {
			return fmt.Errorf("%w: %s movement requires positive quantity", ErrInvalidQuantity, movementType)
		}
	case model.MovementOut, model.MovementDamaged:
		if quantity > 0 {
			return fmt.Errorf("%w: %s movement requires negative quantity", ErrInvalidQuantity, movementType)
		}
	case model.MovementAdjustment:
		// either sign
	default:
		return fmt.Errorf("%w: unknown movement type %q", ErrInvalidQuantity, movementType)
	}
	return nil
}

func (l *stockLedger) ApplyMovement(req *ApplyMovementRequest, userID string) (*model.StockMovement, error) {
	// 1. Validate input
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}
	if err := validateMovementQuantity(req.Type, req.Quantity); err != nil {
		return nil, err
	}

	var movement *model.StockMovement
	var productName string

	// 2. Movement insert and counter update commit together or not at all.
	err := l.db.Transaction(func(tx *gorm.DB) error {
		// Row lock serializes concurrent writers on the same product, so
		// the read below always sees the latest committed stock.
		var product model.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, "id = ?", req.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrProductNotFound, req.ProductID)
			}
			return err
		}
		productName = product.Name

		stockBefore := product.Stock
		stockAfter := stockBefore + req.Quantity
		if stockAfter < 0 {
			return fmt.Errorf("%w for product %s: current %d, requested %d",
				ErrInsufficientStock, product.Name, stockBefore, -req.Quantity)
		}

		movement = &model.StockMovement{
			ProductID:     product.ID,
			UserID:        userID,
			Type:          req.Type,
			Quantity:      req.Quantity,
			StockBefore:   stockBefore,
			StockAfter:    stockAfter,
			ReferenceType: req.ReferenceType,
			ReferenceID:   req.ReferenceID,
			Notes:         req.Notes,
		}
		if err := l.movementRepo.Create(tx, movement); err != nil {
			return err
		}
		return l.productRepo.UpdateStock(tx, product.ID, stockAfter, userID)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(l.wsHub, map[string]interface{}{
		"type": "stock_update",
		"movement": map[string]interface{}{
			"id":           movement.ID,
			"product_id":   movement.ProductID,
			"product_name": productName,
			"movement":     movement.Type,
			"quantity":     movement.Quantity,
			"stock_after":  movement.StockAfter,
		},
		"user_id": userID,
	})

	return movement, nil
}

func (l *stockLedger) GetMovements(filter repository.MovementFilter) ([]model.StockMovement, error) {
	return l.movementRepo.FindAll(filter)
}

func (l *stockLedger) GetMovementsByProduct(productID uuid.UUID) ([]model.StockMovement, error) {
	// Last 100 movements
	return l.movementRepo.FindByProduct(productID, 100)
}

func (l *stockLedger) GetMovementsByReference(referenceType, referenceID string) ([]model.StockMovement, error) {
	return l.movementRepo.FindByReference(referenceType, referenceID)
}

func (l *stockLedger) GetSummary(productID uuid.UUID, startDate, endDate *time.Time) (*repository.StockSummary, error) {
	return l.movementRepo.GetSummary(productID, startDate, endDate)
}

// VerifyProduct checks the ledger invariant for one product: the stock
// counter must equal the running sum of its movements. A mismatch is a fatal
// data-integrity bug, never silently repaired.
func (l *stockLedger) VerifyProduct(productID uuid.UUID) error {
	product, err := l.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return err
	}

	sum, err := l.movementRepo.SumQuantities(productID)
	if err != nil {
		return err
	}
	if sum != product.Stock {
		return fmt.Errorf("%w: product %s counter=%d, movement sum=%d",
			ErrIntegrityFault, product.Name, product.Stock, sum)
	}
	return nil
}
