package repository

import (
	"github.com/veritriariyanto/Backend-TallyPOS/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(customer *model.Customer) error
	FindAll(search string) ([]model.Customer, error)
	FindTop(limit int) ([]model.Customer, error)
	FindByID(id uuid.UUID) (*model.Customer, error)
	FindByPhone(phone string) (*model.Customer, error)
	Update(customer *model.Customer) error
	// AdjustStats applies additive deltas to the purchase aggregates in a
	// single statement. The transaction count is clamped at zero.
	AdjustStats(id uuid.UUID, deltaTransactions int, deltaSpent decimal.Decimal) error
}

type customerRepo struct {
	db *gorm.DB
}

func NewCustomerRepo(db *gorm.DB) CustomerRepository {
	return &customerRepo{db}
}

func (r *customerRepo) Create(customer *model.Customer) error {
	return r.db.Create(customer).Error
}

func (r *customerRepo) FindAll(search string) ([]model.Customer, error) {
	var customers []model.Customer
	q := r.db.Order("created_at DESC")
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("name ILIKE ? OR phone ILIKE ? OR email ILIKE ?", like, like, like)
	}
	err := q.Find(&customers).Error
	return customers, err
}

func (r *customerRepo) FindTop(limit int) ([]model.Customer, error) {
	var customers []model.Customer
	err := r.db.Order("total_spent DESC").Limit(limit).Find(&customers).Error
	return customers, err
}

func (r *customerRepo) FindByID(id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.First(&customer, "id = ?", id).Error
	return &customer, err
}

func (r *customerRepo) FindByPhone(phone string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.First(&customer, "phone = ?", phone).Error
	return &customer, err
}

func (r *customerRepo) Update(customer *model.Customer) error {
	return r.db.Save(customer).Error
}

func (r *customerRepo) AdjustStats(id uuid.UUID, deltaTransactions int, deltaSpent decimal.Decimal) error {
	return r.db.Model(&model.Customer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"total_transactions": gorm.Expr("GREATEST(total_transactions + ?, 0)", deltaTransactions),
			"total_spent":        gorm.Expr("total_spent + ?", deltaSpent),
		}).Error
}
