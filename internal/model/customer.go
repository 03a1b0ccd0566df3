package model

import "github.com/shopspring/decimal"

// Customer carries additive purchase aggregates. TotalTransactions and
// TotalSpent are adjusted by the sale processor (and its reversal), never
// recomputed from transaction history.
type Customer struct {
	BaseModel
	Name              string          `gorm:"type:varchar(200);not null" json:"name" validate:"required"`
	Phone             string          `gorm:"type:varchar(20)" json:"phone"`
	Email             string          `gorm:"type:varchar(255)" json:"email" validate:"omitempty,email"`
	Address           string          `gorm:"type:text" json:"address"`
	TotalTransactions int             `gorm:"default:0" json:"total_transactions"`
	TotalSpent        decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_spent"`
}
