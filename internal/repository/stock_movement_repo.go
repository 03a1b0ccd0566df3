package repository

import (
	"time"

	"github.com/veritriariyanto/Backend-TallyPOS/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementFilter struct {
	ProductID *uuid.UUID
	Type      model.MovementType
	StartDate *time.Time
	EndDate   *time.Time
}

// StockSummary totals movement quantities per type for one product.
// Out and damaged quantities are reported as positive magnitudes.
type StockSummary struct {
	ProductID       uuid.UUID `json:"product_id"`
	TotalIn         int       `json:"total_in"`
	TotalOut        int       `json:"total_out"`
	TotalAdjustment int       `json:"total_adjustment"`
	TotalReturn     int       `json:"total_return"`
	TotalDamaged    int       `json:"total_damaged"`
	MovementCount   int       `json:"movement_count"`
}

type StockMovementRepository interface {
	// Create runs on the caller's tx: the movement insert must commit
	// together with the product stock update.
	Create(tx *gorm.DB, movement *model.StockMovement) error
	FindAll(filter MovementFilter) ([]model.StockMovement, error)
	FindByProduct(productID uuid.UUID, limit int) ([]model.StockMovement, error)
	FindByReference(referenceType, referenceID string) ([]model.StockMovement, error)
	GetSummary(productID uuid.UUID, startDate, endDate *time.Time) (*StockSummary, error)
	SumQuantities(productID uuid.UUID) (int, error)
}

type stockMovementRepo struct {
	db *gorm.DB
}

func NewStockMovementRepo(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepo{db}
}

func (r *stockMovementRepo) Create(tx *gorm.DB, movement *model.StockMovement) error {
	return tx.Create(movement).Error
}

func (r *stockMovementRepo) FindAll(filter MovementFilter) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	q := r.db.Preload("Product").Order("created_at DESC")
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.StartDate != nil && filter.EndDate != nil {
		q = q.Where("created_at BETWEEN ? AND ?", *filter.StartDate, *filter.EndDate)
	}
	err := q.Find(&movements).Error
	return movements, err
}

func (r *stockMovementRepo) FindByProduct(productID uuid.UUID, limit int) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.db.Where("product_id = ?", productID).
		Order("created_at DESC").
		Limit(limit).
		Find(&movements).Error
	return movements, err
}

func (r *stockMovementRepo) FindByReference(referenceType, referenceID string) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.db.Where("reference_type = ? AND reference_id = ?", referenceType, referenceID).
		Order("created_at ASC").
		Find(&movements).Error
	return movements, err
}

func (r *stockMovementRepo) GetSummary(productID uuid.UUID, startDate, endDate *time.Time) (*StockSummary, error) {
	q := r.db.Model(&model.StockMovement{}).Where("product_id = ?", productID)
	if startDate != nil && endDate != nil {
		q = q.Where("created_at BETWEEN ? AND ?", *startDate, *endDate)
	}

	summary := &StockSummary{ProductID: productID}
	rows, err := q.Select(`
			COALESCE(SUM(CASE WHEN type = 'in' THEN quantity ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'out' THEN ABS(quantity) ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'adjustment' THEN quantity ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'return' THEN quantity ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'damaged' THEN ABS(quantity) ELSE 0 END), 0),
			COUNT(*)
		`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(
			&summary.TotalIn,
			&summary.TotalOut,
			&summary.TotalAdjustment,
			&summary.TotalReturn,
			&summary.TotalDamaged,
			&summary.MovementCount,
		); err != nil {
			return nil, err
		}
	}
	return summary, rows.Err()
}

// SumQuantities returns the running sum of all movement deltas for a product.
// It must always equal the product's stock counter.
func (r *stockMovementRepo) SumQuantities(productID uuid.UUID) (int, error) {
	var sum int
	err := r.db.Model(&model.StockMovement{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("product_id = ?", productID).
		Scan(&sum).Error
	return sum, err
}
