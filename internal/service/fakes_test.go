package service

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/veritriariyanto/Backend-TallyPOS/internal/model"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// memStore is a shared in-memory backing store for the repository and ledger
// fakes, mirroring the invariants the real Postgres schema enforces: the
// unique index on transaction_code and the atomic movement+counter write.
type memStore struct {
	mu           sync.Mutex
	products     map[uuid.UUID]*model.Product
	categories   map[uuid.UUID]*model.Category
	customers    map[uuid.UUID]*model.Customer
	transactions map[uuid.UUID]*model.Transaction
	codes        map[string]bool
	// concealed codes exist (Create conflicts on them) but are invisible to
	// FindLastCodeWithPrefix until a conflict happens, reproducing the
	// read-then-insert race between two concurrent sales.
	concealed map[string]bool
	movements []model.StockMovement
	// failMovement injects a ledger failure for a product, used to drive
	// the compensation path.
	failMovement map[uuid.UUID]error
}

func newMemStore() *memStore {
	return &memStore{
		products:     make(map[uuid.UUID]*model.Product),
		categories:   make(map[uuid.UUID]*model.Category),
		customers:    make(map[uuid.UUID]*model.Customer),
		transactions: make(map[uuid.UUID]*model.Transaction),
		codes:        make(map[string]bool),
		concealed:    make(map[string]bool),
		failMovement: make(map[uuid.UUID]error),
	}
}

func (s *memStore) addProduct(name string, price int64, stock int) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &model.Product{
		SKU:          fmt.Sprintf("SKU-%d", len(s.products)+1),
		Name:         name,
		SellingPrice: decimal.NewFromInt(price),
		Stock:        stock,
	}
	p.ID = uuid.New()
	s.products[p.ID] = p
	return p.ID
}

func (s *memStore) addCategory(name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &model.Category{Name: name}
	c.ID = uuid.New()
	s.categories[c.ID] = c
	return c.ID
}

func (s *memStore) addCustomer(name string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &model.Customer{Name: name}
	c.ID = uuid.New()
	s.customers[c.ID] = c
	return c.ID
}

func (s *memStore) productStock(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) customerSnapshot(id uuid.UUID) model.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.customers[id]
}

func (s *memStore) movementsFor(id uuid.UUID) []model.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StockMovement
	for _, m := range s.movements {
		if m.ProductID == id {
			out = append(out, m)
		}
	}
	return out
}

// ---- ProductRepository fake ----

type fakeProductRepo struct{ s *memStore }

func (r *fakeProductRepo) Create(p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) FindAll(search string, categoryID *uuid.UUID) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Product
	for _, p := range r.s.products {
		if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeProductRepo) FindLowStock() ([]model.Product, error) { return nil, nil }

func (r *fakeProductRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) FindBySKU(sku string) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if p.SKU == sku {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) FindByBarcode(barcode string) (*model.Product, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) Update(p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	r.s.products[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) UpdateStock(tx *gorm.DB, id uuid.UUID, newStock int, updatedBy string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Stock = newStock
	return nil
}

// ---- CategoryRepository fake ----

type fakeCategoryRepo struct{ s *memStore }

func (r *fakeCategoryRepo) Create(c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	r.s.categories[c.ID] = &cp
	return nil
}

func (r *fakeCategoryRepo) FindAll() ([]model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Category
	for _, c := range r.s.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeCategoryRepo) FindByID(id uuid.UUID) (*model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCategoryRepo) FindByName(name string) (*model.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.categories {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCategoryRepo) Update(c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.categories[c.ID] = &cp
	return nil
}

func (r *fakeCategoryRepo) Delete(id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.categories, id)
	return nil
}

// ---- CustomerRepository fake ----

type fakeCustomerRepo struct{ s *memStore }

func (r *fakeCustomerRepo) Create(c *model.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	cp := *c
	r.s.customers[c.ID] = &cp
	return nil
}

func (r *fakeCustomerRepo) FindAll(search string) ([]model.Customer, error) { return nil, nil }

func (r *fakeCustomerRepo) FindTop(limit int) ([]model.Customer, error) { return nil, nil }

func (r *fakeCustomerRepo) FindByID(id uuid.UUID) (*model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCustomerRepo) FindByPhone(phone string) (*model.Customer, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCustomerRepo) Update(c *model.Customer) error { return nil }

func (r *fakeCustomerRepo) AdjustStats(id uuid.UUID, deltaTransactions int, deltaSpent decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.TotalTransactions += deltaTransactions
	if c.TotalTransactions < 0 {
		c.TotalTransactions = 0
	}
	c.TotalSpent = c.TotalSpent.Add(deltaSpent)
	return nil
}

// ---- TransactionRepository fake ----

type fakeTransactionRepo struct{ s *memStore }

func (r *fakeTransactionRepo) Create(t *model.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.codes[t.TransactionCode] {
		// The conflict makes the concealed writer visible, like a concurrent
		// commit landing between the last-code read and this insert.
		delete(r.s.concealed, t.TransactionCode)
		return gorm.ErrDuplicatedKey
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	for i := range t.Details {
		if t.Details[i].ID == uuid.Nil {
			t.Details[i].ID = uuid.New()
		}
		t.Details[i].TransactionID = t.ID
	}
	r.s.codes[t.TransactionCode] = true
	cp := *t
	cp.Details = append([]model.TransactionDetail(nil), t.Details...)
	r.s.transactions[t.ID] = &cp
	return nil
}

func (r *fakeTransactionRepo) Delete(id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.transactions[id]; ok {
		delete(r.s.codes, t.TransactionCode)
		delete(r.s.transactions, id)
	}
	return nil
}

func (r *fakeTransactionRepo) MarkCancelled(id uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transactions[id]
	if !ok || t.Status != model.StatusCompleted {
		return false, nil
	}
	t.Status = model.StatusCancelled
	return true, nil
}

func (r *fakeTransactionRepo) FindAll(filter repository.TransactionFilter) ([]model.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Transaction
	for _, t := range r.s.transactions {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (r *fakeTransactionRepo) FindByID(id uuid.UUID) (*model.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transactions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	cp.Details = append([]model.TransactionDetail(nil), t.Details...)
	return &cp, nil
}

func (r *fakeTransactionRepo) FindByCode(code string) (*model.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.transactions {
		if t.TransactionCode == code {
			cp := *t
			cp.Details = append([]model.TransactionDetail(nil), t.Details...)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTransactionRepo) FindLastCodeWithPrefix(prefix string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matching []string
	for code := range r.s.codes {
		if strings.HasPrefix(code, prefix) && !r.s.concealed[code] {
			matching = append(matching, code)
		}
	}
	if len(matching) == 0 {
		return "", nil
	}
	sort.Strings(matching)
	return matching[len(matching)-1], nil
}

func (r *fakeTransactionRepo) GetSalesReport(startDate, endDate time.Time) (*repository.SalesReport, error) {
	return &repository.SalesReport{StartDate: startDate, EndDate: endDate}, nil
}

func (r *fakeTransactionRepo) GetTopProducts(limit int) ([]repository.TopProduct, error) {
	return nil, nil
}

// ---- StockLedger fake ----

// fakeLedger keeps the movement append and the counter update under one lock,
// matching the real ledger's transactional guarantee.
type fakeLedger struct{ s *memStore }

func (l *fakeLedger) ApplyMovement(req *ApplyMovementRequest, userID string) (*model.StockMovement, error) {
	if err := validateMovementQuantity(req.Type, req.Quantity); err != nil {
		return nil, err
	}

	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	if err, ok := l.s.failMovement[req.ProductID]; ok {
		return nil, err
	}
	product, ok := l.s.products[req.ProductID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, req.ProductID)
	}

	stockBefore := product.Stock
	stockAfter := stockBefore + req.Quantity
	if stockAfter < 0 {
		return nil, fmt.Errorf("%w for product %s: current %d, requested %d",
			ErrInsufficientStock, product.Name, stockBefore, -req.Quantity)
	}

	movement := model.StockMovement{
		ID:            uuid.New(),
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
	l.s.movements = append(l.s.movements, movement)
	product.Stock = stockAfter
	return &movement, nil
}

func (l *fakeLedger) GetMovements(filter repository.MovementFilter) ([]model.StockMovement, error) {
	return nil, nil
}

func (l *fakeLedger) GetMovementsByProduct(productID uuid.UUID) ([]model.StockMovement, error) {
	return l.s.movementsFor(productID), nil
}

func (l *fakeLedger) GetMovementsByReference(referenceType, referenceID string) ([]model.StockMovement, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	var out []model.StockMovement
	for _, m := range l.s.movements {
		if m.ReferenceType == referenceType && m.ReferenceID == referenceID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (l *fakeLedger) GetSummary(productID uuid.UUID, startDate, endDate *time.Time) (*repository.StockSummary, error) {
	return &repository.StockSummary{ProductID: productID}, nil
}

func (l *fakeLedger) VerifyProduct(productID uuid.UUID) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	product, ok := l.s.products[productID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	sum := 0
	for _, m := range l.s.movements {
		if m.ProductID == productID {
			sum += m.Quantity
		}
	}
	if sum != product.Stock {
		return fmt.Errorf("%w: product %s counter=%d, movement sum=%d",
			ErrIntegrityFault, product.Name, product.Stock, sum)
	}
	return nil
}

// newTestCatalogService wires a catalog service over the fakes.
func newTestCatalogService(s *memStore) CatalogService {
	return NewCatalogService(&fakeProductRepo{s}, &fakeCategoryRepo{s}, nil)
}

// newTestSaleService wires a sale service over the fakes.
func newTestSaleService(s *memStore) SaleService {
	txRepo := &fakeTransactionRepo{s}
	return NewSaleService(
		txRepo,
		&fakeProductRepo{s},
		&fakeCustomerRepo{s},
		&fakeLedger{s},
		NewTransactionCodeGenerator(txRepo),
		nil,
	)
}
