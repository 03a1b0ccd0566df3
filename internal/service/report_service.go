package service

import (
	"time"

	"github.com/veritriariyanto/Backend-TallyPOS/internal/repository"
)

// ReportService is read-only aggregation over completed sales and the stock
// ledger. Cancelled and refunded transactions are excluded everywhere.
type ReportService interface {
	GetSalesReport(startDate, endDate time.Time) (*repository.SalesReport, error)
	GetTopProducts(limit int) ([]repository.TopProduct, error)
}

type reportService struct {
	txRepo repository.TransactionRepository
}

func NewReportService(txRepo repository.TransactionRepository) ReportService {
	return &reportService{txRepo: txRepo}
}

func (s *reportService) GetSalesReport(startDate, endDate time.Time) (*repository.SalesReport, error) {
	return s.txRepo.GetSalesReport(startDate, endDate)
}

func (s *reportService) GetTopProducts(limit int) ([]repository.TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	products, err := s.txRepo.GetTopProducts(limit)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []repository.TopProduct{}
	}
	return products, nil
}
