package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentDebit    PaymentMethod = "debit"
	PaymentCredit   PaymentMethod = "credit"
	PaymentQRIS     PaymentMethod = "qris"
	PaymentTransfer PaymentMethod = "transfer"
)

type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	StatusCancelled TransactionStatus = "cancelled"
	StatusRefunded  TransactionStatus = "refunded"
)

// Transaction is the sale header. It has no soft delete: a sale whose stock
// application fails mid-way is rolled back by hard-deleting the header (the
// details cascade), everything else is immutable except the terminal status.
type Transaction struct {
	ID              uuid.UUID           `gorm:"type:uuid;primary_key" json:"id"`
	TransactionCode string              `gorm:"type:varchar(50);uniqueIndex;not null" json:"transaction_code"`
	UserID          string              `gorm:"type:varchar(255);not null" json:"user_id"`
	CustomerID      *uuid.UUID          `gorm:"type:uuid;index" json:"customer_id,omitempty"`
	Customer        *Customer           `json:"customer,omitempty"`
	TransactionDate time.Time           `json:"transaction_date"`
	Subtotal        decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"subtotal"`
	DiscountAmount  decimal.Decimal     `gorm:"type:decimal(15,2);default:0" json:"discount_amount"`
	DiscountPct     decimal.Decimal     `gorm:"column:discount_percentage;type:decimal(5,2);default:0" json:"discount_percentage"`
	TaxAmount       decimal.Decimal     `gorm:"type:decimal(15,2);default:0" json:"tax_amount"`
	TotalAmount     decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"total_amount"`
	PaymentMethod   PaymentMethod       `gorm:"type:varchar(20);default:cash" json:"payment_method"`
	PaymentAmount   decimal.Decimal     `gorm:"type:decimal(15,2);not null" json:"payment_amount"`
	ChangeAmount    decimal.Decimal     `gorm:"type:decimal(15,2);default:0" json:"change_amount"`
	Notes           string              `gorm:"type:text" json:"notes"`
	Status          TransactionStatus   `gorm:"type:varchar(20);default:completed;index" json:"status"`
	Details         []TransactionDetail `gorm:"constraint:OnDelete:CASCADE" json:"details"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TransactionDetail is one sale line. ProductName and UnitPrice are snapshots
// taken at sale time; later catalog edits must not alter historical records.
type TransactionDetail struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	TransactionID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"transaction_id"`
	ProductID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"product_id"`
	ProductName    string          `gorm:"type:varchar(200);not null" json:"product_name"`
	Quantity       int             `gorm:"not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"discount_amount"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (d *TransactionDetail) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
