package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/veritriariyanto/Backend-TallyPOS/internal/model"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/repository"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/ws"
	"github.com/veritriariyanto/Backend-TallyPOS/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// How many times a sale may regenerate its code after a duplicate-key
// conflict before giving up.
const codeRetryLimit = 2

type SaleItemRequest struct {
	ProductID      string          `json:"product_id" validate:"required,uuid4"`
	Quantity       int             `json:"quantity" validate:"required,gt=0"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

type CreateSaleRequest struct {
	CustomerID     string              `json:"customer_id" validate:"omitempty,uuid4"`
	Items          []SaleItemRequest   `json:"items" validate:"required,min=1,dive"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	DiscountPct    decimal.Decimal     `json:"discount_percentage"`
	TaxAmount      decimal.Decimal     `json:"tax_amount"`
	PaymentMethod  model.PaymentMethod `json:"payment_method" validate:"required,oneof=cash debit credit qris transfer"`
	PaymentAmount  decimal.Decimal     `json:"payment_amount"`
	Notes          string              `json:"notes"`
}

type SaleService interface {
	CreateSale(req *CreateSaleRequest, userID string) (*model.Transaction, error)
	CancelSale(id uuid.UUID, userID string) (*model.Transaction, error)
	GetSales(filter repository.TransactionFilter) ([]model.Transaction, error)
	GetSaleByID(id uuid.UUID) (*model.Transaction, error)
	GetSaleByCode(code string) (*model.Transaction, error)
}

type saleService struct {
	txRepo       repository.TransactionRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	ledger       StockLedger
	codeGen      TransactionCodeGenerator
	wsHub        *ws.Hub
}

func NewSaleService(
	txRepo repository.TransactionRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	ledger StockLedger,
	codeGen TransactionCodeGenerator,
	hub *ws.Hub,
) SaleService {
	return &saleService{
		txRepo:       txRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		ledger:       ledger,
		codeGen:      codeGen,
		wsHub:        hub,
	}
}

var oneHundred = decimal.NewFromInt(100)

// computeSaleTotals derives the header money fields from the accumulated
// line subtotal and the cart-level discount/tax inputs.
func computeSaleTotals(subtotal, discountAmount, discountPct, taxAmount decimal.Decimal) (totalDiscount, totalAmount decimal.Decimal) {
	discountFromPct := subtotal.Mul(discountPct).Div(oneHundred).Round(2)
	totalDiscount = discountAmount.Add(discountFromPct)
	totalAmount = subtotal.Sub(totalDiscount).Add(taxAmount)
	return totalDiscount, totalAmount
}

func (s *saleService) CreateSale(req *CreateSaleRequest, userID string) (*model.Transaction, error) {
	// 1. Validate input
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return nil, fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}
	if req.DiscountAmount.IsNegative() || req.DiscountPct.IsNegative() || req.TaxAmount.IsNegative() {
		return nil, fmt.Errorf("%w: discount and tax must not be negative", ErrInvalidDiscount)
	}

	// 2. Verify customer if provided
	var customerID *uuid.UUID
	if req.CustomerID != "" {
		parsed, err := uuid.Parse(req.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, req.CustomerID)
		}
		if _, err := s.customerRepo.FindByID(parsed); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, parsed)
			}
			return nil, err
		}
		customerID = &parsed
	}

	// 3. Resolve products, snapshot prices, accumulate subtotal.
	// Stock is only pre-checked here to fail fast; the ledger re-validates
	// under a row lock when the movements are applied.
	subtotal := decimal.Zero
	details := make([]model.TransactionDetail, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, item.ProductID)
		}
		product, err := s.productRepo.FindByID(productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
			}
			return nil, err
		}
		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("%w for product %s: available %d, requested %d",
				ErrInsufficientStock, product.Name, product.Stock, item.Quantity)
		}

		lineAmount := product.SellingPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if item.DiscountAmount.IsNegative() || item.DiscountAmount.GreaterThan(lineAmount) {
			return nil, fmt.Errorf("%w: line discount on product %s outside [0, line amount]", ErrInvalidDiscount, product.Name)
		}
		lineSubtotal := lineAmount.Sub(item.DiscountAmount)

		details = append(details, model.TransactionDetail{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Quantity:       item.Quantity,
			UnitPrice:      product.SellingPrice,
			DiscountAmount: item.DiscountAmount,
			Subtotal:       lineSubtotal,
		})
		subtotal = subtotal.Add(lineSubtotal)
	}

	// 4. Totals and payment check
	totalDiscount, totalAmount := computeSaleTotals(subtotal, req.DiscountAmount, req.DiscountPct, req.TaxAmount)
	if req.PaymentAmount.LessThan(totalAmount) {
		return nil, fmt.Errorf("%w: total %s, payment %s", ErrInvalidPayment, totalAmount, req.PaymentAmount)
	}
	changeAmount := req.PaymentAmount.Sub(totalAmount)

	// 5+6. Generate code and persist header + lines. The unique index on
	// transaction_code closes the read-then-increment race between
	// concurrent sales; on a duplicate key we regenerate once and retry.
	transaction := &model.Transaction{
		UserID:          userID,
		CustomerID:      customerID,
		TransactionDate: time.Now().UTC(),
		Subtotal:        subtotal,
		DiscountAmount:  totalDiscount,
		DiscountPct:     req.DiscountPct,
		TaxAmount:       req.TaxAmount,
		TotalAmount:     totalAmount,
		PaymentMethod:   req.PaymentMethod,
		PaymentAmount:   req.PaymentAmount,
		ChangeAmount:    changeAmount,
		Notes:           req.Notes,
		Status:          model.StatusCompleted,
		Details:         details,
	}

	created := false
	for attempt := 0; attempt < codeRetryLimit; attempt++ {
		code, err := s.codeGen.NextCode(transaction.TransactionDate)
		if err != nil {
			return nil, err
		}
		transaction.TransactionCode = code

		err = s.txRepo.Create(transaction)
		if err == nil {
			created = true
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	if !created {
		return nil, fmt.Errorf("%w: code %s", ErrCodeConflict, transaction.TransactionCode)
	}

	// 7. Apply stock movements through the ledger. A concurrent sale may
	// have depleted stock since step 3, so any line can still fail; in that
	// case the movements already applied for this sale are compensated and
	// the header is rolled back. No partial sales.
	for i := range transaction.Details {
		detail := &transaction.Details[i]
		_, err := s.ledger.ApplyMovement(&ApplyMovementRequest{
			ProductID:     detail.ProductID,
			Type:          model.MovementOut,
			Quantity:      -detail.Quantity,
			ReferenceType: model.ReferenceTransaction,
			ReferenceID:   transaction.ID.String(),
			Notes:         "sale " + transaction.TransactionCode,
		}, userID)
		if err != nil {
			s.compensateMovements(transaction, i, userID)
			if delErr := s.txRepo.Delete(transaction.ID); delErr != nil {
				log.Printf("[sale] WARN: failed to roll back transaction %s: %v", transaction.ID, delErr)
			}
			return nil, err
		}
	}

	// 8. Update customer aggregates. The sale is durable at this point, so
	// a failure here is logged as an integrity warning instead of undoing
	// committed ledger writes.
	if customerID != nil {
		if err := s.customerRepo.AdjustStats(*customerID, 1, totalAmount); err != nil {
			log.Printf("[sale] WARN: %v: customer %s stats not updated for %s: %v",
				ErrIntegrityFault, customerID, transaction.TransactionCode, err)
		}
	}

	// 9. Return the persisted transaction with lines attached
	saved, err := s.txRepo.FindByID(transaction.ID)
	if err != nil {
		return nil, err
	}

	publishEvent(s.wsHub, map[string]interface{}{
		"type": "sale_completed",
		"transaction": map[string]interface{}{
			"id":           saved.ID,
			"code":         saved.TransactionCode,
			"total_amount": saved.TotalAmount,
			"items":        len(saved.Details),
		},
		"user_id": userID,
	})

	return saved, nil
}

// compensateMovements reverses the ledger writes of details [0, upto) after a
// mid-sale failure.
func (s *saleService) compensateMovements(transaction *model.Transaction, upto int, userID string) {
	for i := 0; i < upto; i++ {
		detail := &transaction.Details[i]
		_, err := s.ledger.ApplyMovement(&ApplyMovementRequest{
			ProductID:     detail.ProductID,
			Type:          model.MovementReturn,
			Quantity:      detail.Quantity,
			ReferenceType: model.ReferenceTransaction,
			ReferenceID:   transaction.ID.String(),
			Notes:         "rollback of failed sale " + transaction.TransactionCode,
		}, userID)
		if err != nil {
			// Restoring stock cannot hit InsufficientStock; anything else
			// left the ledger short and must be visible in the logs.
			log.Printf("[sale] WARN: %v: compensation failed for product %s on %s: %v",
				ErrIntegrityFault, detail.ProductID, transaction.TransactionCode, err)
		}
	}
}

func (s *saleService) CancelSale(id uuid.UUID, userID string) (*model.Transaction, error) {
	// 1. Load the sale with its lines
	transaction, err := s.txRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
		}
		return nil, err
	}

	// 2. Only completed sales can be cancelled; the status is terminal
	// once it leaves completed.
	if transaction.Status != model.StatusCompleted {
		return nil, fmt.Errorf("%w: transaction %s is %s", ErrInvalidStatus, transaction.TransactionCode, transaction.Status)
	}

	// Claim the cancellation before touching stock. The compare-and-set on
	// the status row makes exactly one concurrent cancel win; the losers
	// never reach the inverse movements or the aggregate reversal.
	claimed, err := s.txRepo.MarkCancelled(transaction.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("%w: transaction %s is not completed", ErrInvalidStatus, transaction.TransactionCode)
	}
	transaction.Status = model.StatusCancelled

	// 3. Restore stock with inverse movements. History is never deleted:
	// the original out movements stay, return movements are appended.
	for i := range transaction.Details {
		detail := &transaction.Details[i]
		_, err := s.ledger.ApplyMovement(&ApplyMovementRequest{
			ProductID:     detail.ProductID,
			Type:          model.MovementReturn,
			Quantity:      detail.Quantity,
			ReferenceType: model.ReferenceTransaction,
			ReferenceID:   transaction.ID.String(),
			Notes:         "cancellation of " + transaction.TransactionCode,
		}, userID)
		if err != nil {
			return nil, fmt.Errorf("restore stock for product %s: %w", detail.ProductID, err)
		}
	}

	// 4. Reverse customer aggregates. The count clamps at zero in the
	// store; reaching zero beforehand means an update was skipped somewhere,
	// which is worth a warning but not a failed cancellation.
	if transaction.CustomerID != nil {
		customer, err := s.customerRepo.FindByID(*transaction.CustomerID)
		if err == nil && customer.TotalTransactions == 0 {
			log.Printf("[sale] WARN: %v: customer %s transaction count already zero before cancel of %s",
				ErrIntegrityFault, customer.ID, transaction.TransactionCode)
		}
		if err := s.customerRepo.AdjustStats(*transaction.CustomerID, -1, transaction.TotalAmount.Neg()); err != nil {
			log.Printf("[sale] WARN: customer %s stats not reversed for %s: %v",
				transaction.CustomerID, transaction.TransactionCode, err)
		}
	}

	// 5. The record itself is retained for audit, just terminal
	publishEvent(s.wsHub, map[string]interface{}{
		"type": "sale_cancelled",
		"transaction": map[string]interface{}{
			"id":   transaction.ID,
			"code": transaction.TransactionCode,
		},
		"user_id": userID,
	})

	return transaction, nil
}

func (s *saleService) GetSales(filter repository.TransactionFilter) ([]model.Transaction, error) {
	return s.txRepo.FindAll(filter)
}

func (s *saleService) GetSaleByID(id uuid.UUID) (*model.Transaction, error) {
	transaction, err := s.txRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
		}
		return nil, err
	}
	return transaction, nil
}

func (s *saleService) GetSaleByCode(code string) (*model.Transaction, error) {
	transaction, err := s.txRepo.FindByCode(code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, code)
		}
		return nil, err
	}
	return transaction, nil
}
