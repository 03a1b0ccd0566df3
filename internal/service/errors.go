package service

import "errors"

// Error kinds surfaced by the sale engine. Services wrap these with entity
// context via %w; handlers map them to HTTP status with errors.Is.
var (
	ErrProductNotFound     = errors.New("product not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrCategoryNotFound    = errors.New("category not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidQuantity     = errors.New("movement quantity inconsistent with movement type")
	ErrInvalidDiscount     = errors.New("discount out of range")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidPayment      = errors.New("payment amount is less than total amount")
	ErrInvalidStatus       = errors.New("only completed transactions can be cancelled")
	ErrCodeConflict        = errors.New("transaction code conflict, retries exhausted")
	ErrIntegrityFault      = errors.New("stock ledger integrity fault")
	ErrDuplicateSKU        = errors.New("SKU already exists")
	ErrDuplicateBarcode    = errors.New("barcode already exists")
	ErrDuplicateCategory   = errors.New("category name already exists")
	ErrCategoryInUse       = errors.New("category still has products assigned")
)
