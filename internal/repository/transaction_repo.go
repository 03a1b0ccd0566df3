package repository

import (
	"time"

	"github.com/veritriariyanto/Backend-TallyPOS/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	UserID    string
	Status    model.TransactionStatus
}

// SalesReport aggregates completed transactions over a date range.
type SalesReport struct {
	StartDate          time.Time       `json:"start_date"`
	EndDate            time.Time       `json:"end_date"`
	TotalSales         decimal.Decimal `json:"total_sales"`
	TotalTransactions  int64           `json:"total_transactions"`
	TotalItems         int64           `json:"total_items"`
	AverageTransaction decimal.Decimal `json:"average_transaction"`
}

// TopProduct is one row of the best-seller ranking.
type TopProduct struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

type TransactionRepository interface {
	Create(t *model.Transaction) error
	Delete(id uuid.UUID) error
	// MarkCancelled flips a completed transaction to cancelled and reports
	// whether this call won the flip. A compare-and-set on the status row:
	// concurrent cancels of the same sale see RowsAffected == 0 and lose.
	MarkCancelled(id uuid.UUID) (bool, error)
	FindAll(filter TransactionFilter) ([]model.Transaction, error)
	FindByID(id uuid.UUID) (*model.Transaction, error)
	FindByCode(code string) (*model.Transaction, error)
	// FindLastCodeWithPrefix returns the lexicographically greatest
	// transaction code starting with prefix, or "" when none exists.
	FindLastCodeWithPrefix(prefix string) (string, error)
	GetSalesReport(startDate, endDate time.Time) (*SalesReport, error)
	GetTopProducts(limit int) ([]TopProduct, error)
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

// Create inserts the header together with its details; GORM writes the
// association in the same transaction, so a duplicate transaction_code rolls
// back the lines as well.
func (r *transactionRepo) Create(t *model.Transaction) error {
	return r.db.Create(t).Error
}

// Delete removes a half-applied sale during rollback. The FK cascade drops
// the detail rows with the header.
func (r *transactionRepo) Delete(id uuid.UUID) error {
	return r.db.Delete(&model.Transaction{}, "id = ?", id).Error
}

func (r *transactionRepo) MarkCancelled(id uuid.UUID) (bool, error) {
	res := r.db.Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, model.StatusCompleted).
		Update("status", model.StatusCancelled)
	return res.RowsAffected > 0, res.Error
}

func (r *transactionRepo) FindAll(filter TransactionFilter) ([]model.Transaction, error) {
	var transactions []model.Transaction
	q := r.db.Preload("Details").Preload("Customer").Order("transaction_date DESC")
	if filter.StartDate != nil && filter.EndDate != nil {
		q = q.Where("transaction_date BETWEEN ? AND ?", *filter.StartDate, *filter.EndDate)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	err := q.Find(&transactions).Error
	return transactions, err
}

func (r *transactionRepo) FindByID(id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	err := r.db.Preload("Details").Preload("Customer").First(&transaction, "id = ?", id).Error
	return &transaction, err
}

func (r *transactionRepo) FindByCode(code string) (*model.Transaction, error) {
	var transaction model.Transaction
	err := r.db.Preload("Details").Preload("Customer").First(&transaction, "transaction_code = ?", code).Error
	return &transaction, err
}

func (r *transactionRepo) FindLastCodeWithPrefix(prefix string) (string, error) {
	var code string
	err := r.db.Model(&model.Transaction{}).
		Select("transaction_code").
		Where("transaction_code LIKE ?", prefix+"%").
		Order("transaction_code DESC").
		Limit(1).
		Scan(&code).Error
	return code, err
}

func (r *transactionRepo) GetSalesReport(startDate, endDate time.Time) (*SalesReport, error) {
	report := &SalesReport{
		StartDate:          startDate,
		EndDate:            endDate,
		TotalSales:         decimal.Zero,
		AverageTransaction: decimal.Zero,
	}

	var totalSales decimal.NullDecimal
	err := r.db.Model(&model.Transaction{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("status = ? AND transaction_date BETWEEN ? AND ?", model.StatusCompleted, startDate, endDate).
		Scan(&totalSales).Error
	if err != nil {
		return nil, err
	}
	if totalSales.Valid {
		report.TotalSales = totalSales.Decimal
	}

	err = r.db.Model(&model.Transaction{}).
		Where("status = ? AND transaction_date BETWEEN ? AND ?", model.StatusCompleted, startDate, endDate).
		Count(&report.TotalTransactions).Error
	if err != nil {
		return nil, err
	}

	err = r.db.Model(&model.TransactionDetail{}).
		Select("COALESCE(SUM(transaction_details.quantity), 0)").
		Joins("JOIN transactions ON transactions.id = transaction_details.transaction_id").
		Where("transactions.status = ? AND transactions.transaction_date BETWEEN ? AND ?",
			model.StatusCompleted, startDate, endDate).
		Scan(&report.TotalItems).Error
	if err != nil {
		return nil, err
	}

	if report.TotalTransactions > 0 {
		report.AverageTransaction = report.TotalSales.
			Div(decimal.NewFromInt(report.TotalTransactions)).
			Round(2)
	}
	return report, nil
}

func (r *transactionRepo) GetTopProducts(limit int) ([]TopProduct, error) {
	var results []TopProduct

	rows, err := r.db.Model(&model.TransactionDetail{}).
		Select(`
			transaction_details.product_id,
			MAX(transaction_details.product_name) AS product_name,
			COALESCE(SUM(transaction_details.quantity), 0) AS total_quantity,
			COALESCE(SUM(transaction_details.subtotal), 0) AS total_revenue
		`).
		Joins("JOIN transactions ON transactions.id = transaction_details.transaction_id").
		Where("transactions.status = ?", model.StatusCompleted).
		Group("transaction_details.product_id").
		Order("total_quantity DESC, product_id ASC").
		Limit(limit).
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var row TopProduct
		if err := rows.Scan(&row.ProductID, &row.ProductName, &row.TotalQuantity, &row.TotalRevenue); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
