package repository

import (
	"context"
	"errors"
	"time"

	"github.com/carenest-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerIncrement 一次结算对薪资台账的增量
type LedgerIncrement struct {
	ServiceProviderID uint
	EPF               decimal.Decimal
	ETF               decimal.Decimal
	NetSalary         decimal.Decimal
	BatchID           uint
	SettledAt         time.Time
}

// SalaryLedgerRepository 薪资台账数据访问接口
type SalaryLedgerRepository interface {
	Increment(delta LedgerIncrement) error
	GetByProviderID(providerID uint) (*models.ProviderSalary, error)
	List(filter SalaryLedgerListFilter) ([]models.ProviderSalary, int64, error)
	WithTx(tx *gorm.DB) SalaryLedgerRepository
	WithContext(ctx context.Context) SalaryLedgerRepository
}

// GormSalaryLedgerRepository GORM 实现
type GormSalaryLedgerRepository struct {
	db *gorm.DB
}

// NewSalaryLedgerRepository 创建薪资台账仓库
func NewSalaryLedgerRepository(db *gorm.DB) *GormSalaryLedgerRepository {
	return &GormSalaryLedgerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSalaryLedgerRepository) WithTx(tx *gorm.DB) SalaryLedgerRepository {
	if tx == nil {
		return r
	}
	return &GormSalaryLedgerRepository{db: tx}
}

// WithContext 绑定上下文
func (r *GormSalaryLedgerRepository) WithContext(ctx context.Context) SalaryLedgerRepository {
	if ctx == nil {
		return r
	}
	return &GormSalaryLedgerRepository{db: r.db.WithContext(ctx)}
}

// Increment 原子累加台账；台账不存在时以增量作为初始值插入
func (r *GormSalaryLedgerRepository) Increment(delta LedgerIncrement) error {
	if delta.ServiceProviderID == 0 {
		return errors.New("service provider id is required")
	}
	settledAt := delta.SettledAt
	if settledAt.IsZero() {
		settledAt = time.Now()
	}
	var batchID *uint
	if delta.BatchID != 0 {
		id := delta.BatchID
		batchID = &id
	}
	ledger := models.ProviderSalary{
		ServiceProviderID: delta.ServiceProviderID,
		EPF:               models.NewMoneyFromDecimal(delta.EPF),
		ETF:               models.NewMoneyFromDecimal(delta.ETF),
		TotalNetSalary:    models.NewMoneyFromDecimal(delta.NetSalary),
		LastSettledAt:     &settledAt,
		LastBatchID:       batchID,
		CreatedAt:         settledAt,
		UpdatedAt:         settledAt,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "service_provider_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"epf":              gorm.Expr("provider_salaries.epf + excluded.epf"),
			"etf":              gorm.Expr("provider_salaries.etf + excluded.etf"),
			"total_net_salary": gorm.Expr("provider_salaries.total_net_salary + excluded.total_net_salary"),
			"last_settled_at":  gorm.Expr("excluded.last_settled_at"),
			"last_batch_id":    gorm.Expr("excluded.last_batch_id"),
			"updated_at":       gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&ledger).Error
}

// GetByProviderID 按服务者获取台账
func (r *GormSalaryLedgerRepository) GetByProviderID(providerID uint) (*models.ProviderSalary, error) {
	if providerID == 0 {
		return nil, nil
	}
	var ledger models.ProviderSalary
	if err := r.db.Preload("ServiceProvider").
		Where("service_provider_id = ?", providerID).
		First(&ledger).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ledger, nil
}

// List 分页查询台账
func (r *GormSalaryLedgerRepository) List(filter SalaryLedgerListFilter) ([]models.ProviderSalary, int64, error) {
	query := r.db.Model(&models.ProviderSalary{})
	if filter.ServiceProviderID != 0 {
		query = query.Where("provider_salaries.service_provider_id = ?", filter.ServiceProviderID)
	}
	if filter.Search != "" {
		query = query.Joins("JOIN service_providers ON service_providers.id = provider_salaries.service_provider_id")
		query = applyLikeSearch(query, filter.Search, "service_providers.name", "service_providers.email")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var ledgers []models.ProviderSalary
	if err := query.Preload("ServiceProvider").
		Order("provider_salaries.total_net_salary DESC, provider_salaries.id ASC").
		Find(&ledgers).Error; err != nil {
		return nil, 0, err
	}
	return ledgers, total, nil
}
