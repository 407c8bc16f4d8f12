package repository

import (
	"context"
	"strings"

	"github.com/carenest-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RevenueRepository 平台收入数据访问接口
type RevenueRepository interface {
	Create(revenue *models.Revenue) error
	List(filter RevenueListFilter) ([]models.Revenue, int64, error)
	SumAmount(filter RevenueListFilter) (decimal.Decimal, error)
	WithTx(tx *gorm.DB) RevenueRepository
	WithContext(ctx context.Context) RevenueRepository
}

// GormRevenueRepository GORM 实现
type GormRevenueRepository struct {
	db *gorm.DB
}

// NewRevenueRepository 创建收入仓库
func NewRevenueRepository(db *gorm.DB) *GormRevenueRepository {
	return &GormRevenueRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRevenueRepository) WithTx(tx *gorm.DB) RevenueRepository {
	if tx == nil {
		return r
	}
	return &GormRevenueRepository{db: tx}
}

// WithContext 绑定上下文
func (r *GormRevenueRepository) WithContext(ctx context.Context) RevenueRepository {
	if ctx == nil {
		return r
	}
	return &GormRevenueRepository{db: r.db.WithContext(ctx)}
}

// Create 追加收入记录
func (r *GormRevenueRepository) Create(revenue *models.Revenue) error {
	return r.db.Create(revenue).Error
}

// List 分页查询收入记录
func (r *GormRevenueRepository) List(filter RevenueListFilter) ([]models.Revenue, int64, error) {
	query := r.applyFilter(r.db.Model(&models.Revenue{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var revenues []models.Revenue
	if err := query.Order("id DESC").Find(&revenues).Error; err != nil {
		return nil, 0, err
	}
	return revenues, total, nil
}

// SumAmount 汇总符合条件的收入金额
func (r *GormRevenueRepository) SumAmount(filter RevenueListFilter) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	query := r.applyFilter(r.db.Model(&models.Revenue{}), filter)
	if err := query.Select("COALESCE(SUM(amount), 0)").Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal.Round(2), nil
}

func (r *GormRevenueRepository) applyFilter(query *gorm.DB, filter RevenueListFilter) *gorm.DB {
	if source := strings.TrimSpace(filter.Source); source != "" {
		query = query.Where("source = ?", source)
	}
	if filter.ServiceProviderID != 0 {
		query = query.Where("service_provider_id = ?", filter.ServiceProviderID)
	}
	if filter.SettlementBatchID != 0 {
		query = query.Where("settlement_batch_id = ?", filter.SettlementBatchID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return query
}
