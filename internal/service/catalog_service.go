package service

import (
	"errors"
	"fmt"

	"github.com/veritriariyanto/Backend-TallyPOS/internal/model"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/repository"
	"github.com/veritriariyanto/Backend-TallyPOS/internal/ws"
	"github.com/veritriariyanto/Backend-TallyPOS/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogService manages the product catalog and its categories. It never
// touches the stock counter: all stock mutation goes through the stock ledger.
type CatalogService interface {
	CreateProduct(req *model.Product, userID string) error
	UpdateProduct(id uuid.UUID, req *model.Product, userID string) (*model.Product, error)
	GetProducts(search string, categoryID *uuid.UUID) ([]model.Product, error)
	GetLowStockProducts() ([]model.Product, error)
	GetProduct(id uuid.UUID) (*model.Product, error)

	CreateCategory(req *model.Category, userID string) error
	UpdateCategory(id uuid.UUID, req *model.Category, userID string) (*model.Category, error)
	GetCategories() ([]model.Category, error)
	GetCategory(id uuid.UUID) (*model.Category, error)
	DeleteCategory(id uuid.UUID) error
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	wsHub        *ws.Hub
}

func NewCatalogService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository, hub *ws.Hub) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		wsHub:        hub,
	}
}

// verifyCategory checks that a referenced category exists.
func (s *catalogService) verifyCategory(categoryID *uuid.UUID) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.categoryRepo.FindByID(*categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, categoryID)
		}
		return err
	}
	return nil
}

func (s *catalogService) CreateProduct(req *model.Product, userID string) error {
	// 1. Validate struct
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	// 2. Uniqueness and reference checks
	existing, _ := s.productRepo.FindBySKU(req.SKU)
	if existing != nil && existing.ID != uuid.Nil {
		return ErrDuplicateSKU
	}
	if req.Barcode != nil && *req.Barcode != "" {
		existing, _ := s.productRepo.FindByBarcode(*req.Barcode)
		if existing != nil && existing.ID != uuid.Nil {
			return ErrDuplicateBarcode
		}
	}
	if err := s.verifyCategory(req.CategoryID); err != nil {
		return err
	}

	// 3. Audit fields
	req.CreatedBy = userID
	req.UpdatedBy = userID
	req.IsActive = true

	// New products start with zero stock; initial quantity arrives through
	// an "in" movement on the ledger so the audit trail starts complete.
	req.Stock = 0

	if err := s.productRepo.Create(req); err != nil {
		return err
	}

	publishEvent(s.wsHub, map[string]interface{}{
		"type":    "catalog_update",
		"action":  "product_created",
		"product": map[string]interface{}{"id": req.ID, "sku": req.SKU, "name": req.Name},
		"user_id": userID,
	})
	return nil
}

func (s *catalogService) UpdateProduct(id uuid.UUID, req *model.Product, userID string) (*model.Product, error) {
	existing, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return nil, err
	}

	if req.SKU != "" && req.SKU != existing.SKU {
		conflict, _ := s.productRepo.FindBySKU(req.SKU)
		if conflict != nil && conflict.ID != uuid.Nil {
			return nil, ErrDuplicateSKU
		}
		existing.SKU = req.SKU
	}
	if req.Barcode != nil && (existing.Barcode == nil || *req.Barcode != *existing.Barcode) {
		conflict, _ := s.productRepo.FindByBarcode(*req.Barcode)
		if conflict != nil && conflict.ID != uuid.Nil {
			return nil, ErrDuplicateBarcode
		}
		existing.Barcode = req.Barcode
	}

	if err := s.verifyCategory(req.CategoryID); err != nil {
		return nil, err
	}

	// Stock is deliberately not copied from the request.
	existing.Name = req.Name
	existing.CategoryID = req.CategoryID
	existing.Unit = req.Unit
	existing.PurchasePrice = req.PurchasePrice
	existing.SellingPrice = req.SellingPrice
	existing.MinStock = req.MinStock
	existing.IsActive = req.IsActive
	existing.UpdatedBy = userID

	if err := s.productRepo.Update(existing); err != nil {
		return nil, err
	}

	publishEvent(s.wsHub, map[string]interface{}{
		"type":    "catalog_update",
		"action":  "product_updated",
		"product": map[string]interface{}{"id": existing.ID, "sku": existing.SKU, "name": existing.Name},
		"user_id": userID,
	})
	return existing, nil
}

func (s *catalogService) GetProducts(search string, categoryID *uuid.UUID) ([]model.Product, error) {
	return s.productRepo.FindAll(search, categoryID)
}

func (s *catalogService) GetLowStockProducts() ([]model.Product, error) {
	return s.productRepo.FindLowStock()
}

func (s *catalogService) GetProduct(id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
		}
		return nil, err
	}
	return product, nil
}

func (s *catalogService) CreateCategory(req *model.Category, userID string) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		firstErr := errs[0]
		return fmt.Errorf("validation failed: field '%s' failed on tag '%s'", firstErr.FailedField, firstErr.Tag)
	}

	existing, _ := s.categoryRepo.FindByName(req.Name)
	if existing != nil && existing.ID != uuid.Nil {
		return ErrDuplicateCategory
	}

	req.CreatedBy = userID
	req.UpdatedBy = userID
	return s.categoryRepo.Create(req)
}

func (s *catalogService) UpdateCategory(id uuid.UUID, req *model.Category, userID string) (*model.Category, error) {
	existing, err := s.categoryRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
		}
		return nil, err
	}

	if req.Name != "" && req.Name != existing.Name {
		conflict, _ := s.categoryRepo.FindByName(req.Name)
		if conflict != nil && conflict.ID != uuid.Nil {
			return nil, ErrDuplicateCategory
		}
		existing.Name = req.Name
	}
	existing.Description = req.Description
	existing.UpdatedBy = userID

	if err := s.categoryRepo.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *catalogService) GetCategories() ([]model.Category, error) {
	return s.categoryRepo.FindAll()
}

func (s *catalogService) GetCategory(id uuid.UUID) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
		}
		return nil, err
	}
	return category, nil
}

// DeleteCategory refuses to orphan products; reassign them first.
func (s *catalogService) DeleteCategory(id uuid.UUID) error {
	if _, err := s.categoryRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
		}
		return err
	}

	products, err := s.productRepo.FindAll("", &id)
	if err != nil {
		return err
	}
	if len(products) > 0 {
		return fmt.Errorf("%w: %d products", ErrCategoryInUse, len(products))
	}
	return s.categoryRepo.Delete(id)
}
