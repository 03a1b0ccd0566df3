package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementType string

const (
	MovementIn         MovementType = "in"         // purchase / restock
	MovementOut        MovementType = "out"        // sale
	MovementAdjustment MovementType = "adjustment" // stock opname correction
	MovementReturn     MovementType = "return"     // customer return / sale reversal
	MovementDamaged    MovementType = "damaged"    // write-off
)

// Reference types linking a movement back to its origin.
const (
	ReferenceTransaction = "transaction"
	ReferenceManual      = "manual"
)

// StockMovement is an append-only audit record of one stock change.
// StockBefore/StockAfter are captured at write time and never recomputed;
// the product stock counter must always equal the running sum of Quantity.
type StockMovement struct {
	ID            uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	ProductID     uuid.UUID    `gorm:"type:uuid;index;not null" json:"product_id"`
	Product       *Product     `json:"product,omitempty"`
	UserID        string       `gorm:"type:varchar(255);not null" json:"user_id"`
	Type          MovementType `gorm:"type:varchar(20);not null;index" json:"type"`
	Quantity      int          `gorm:"not null" json:"quantity"` // signed: positive in/return, negative out/damaged
	StockBefore   int          `gorm:"not null" json:"stock_before"`
	StockAfter    int          `gorm:"not null" json:"stock_after"`
	ReferenceType string       `gorm:"type:varchar(50)" json:"reference_type,omitempty"`
	ReferenceID   string       `gorm:"type:varchar(100);index" json:"reference_id,omitempty"`
	Notes         string       `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
