package service

import (
	"context"
	"strings"

	"github.com/carenest-next/internal/models"
	"github.com/carenest-next/internal/repository"

	"github.com/shopspring/decimal"
)

// SalaryLedgerService 薪资台账与平台收入查询服务
type SalaryLedgerService struct {
	ledgerRepo  repository.SalaryLedgerRepository
	revenueRepo repository.RevenueRepository
}

// NewSalaryLedgerService 创建薪资台账服务
func NewSalaryLedgerService(ledgerRepo repository.SalaryLedgerRepository, revenueRepo repository.RevenueRepository) *SalaryLedgerService {
	return &SalaryLedgerService{
		ledgerRepo:  ledgerRepo,
		revenueRepo: revenueRepo,
	}
}

// ListSalaryLedgers 分页查询薪资台账
func (s *SalaryLedgerService) ListSalaryLedgers(ctx context.Context, filter repository.SalaryLedgerListFilter) ([]models.ProviderSalary, int64, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.ledgerRepo.WithContext(ctx).List(filter)
}

// GetSalaryLedger 获取单个服务者的薪资台账
func (s *SalaryLedgerService) GetSalaryLedger(ctx context.Context, providerID uint) (*models.ProviderSalary, error) {
	if providerID == 0 {
		return nil, ErrNotFound
	}
	ledger, err := s.ledgerRepo.WithContext(ctx).GetByProviderID(providerID)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, ErrNotFound
	}
	return ledger, nil
}

// RevenueListResult 平台收入列表及合计
type RevenueListResult struct {
	Items       []models.Revenue
	Total       int64
	TotalAmount models.Money
}

// ListRevenues 分页查询平台收入，并返回过滤条件下的金额合计
func (s *SalaryLedgerService) ListRevenues(ctx context.Context, filter repository.RevenueListFilter) (*RevenueListResult, error) {
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return nil, ErrInvalidFilter
	}
	filter.Source = strings.TrimSpace(filter.Source)
	repo := s.revenueRepo.WithContext(ctx)
	items, total, err := repo.List(filter)
	if err != nil {
		return nil, err
	}
	amount := decimal.Zero
	if total > 0 {
		amount, err = repo.SumAmount(filter)
		if err != nil {
			return nil, err
		}
	}
	return &RevenueListResult{
		Items:       items,
		Total:       total,
		TotalAmount: models.NewMoneyFromDecimal(amount),
	}, nil
}
