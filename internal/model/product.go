package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel
	SKU           string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku" validate:"required"`
	Barcode       *string         `gorm:"type:varchar(50);uniqueIndex" json:"barcode,omitempty"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	CategoryID    *uuid.UUID      `gorm:"type:uuid;index" json:"category_id,omitempty"`
	Category      *Category       `json:"category,omitempty" validate:"-"`
	Unit          string          `gorm:"type:varchar(20)" json:"unit"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"purchase_price"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"selling_price"`
	// Stock is written only through the stock ledger so that the counter
	// always matches the sum of the movement history.
	Stock    int  `gorm:"default:0" json:"stock"`
	MinStock int  `gorm:"default:0" json:"min_stock"`
	IsActive bool `gorm:"default:true" json:"is_active"`
}
