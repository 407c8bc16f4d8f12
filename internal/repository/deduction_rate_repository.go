package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/carenest-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeductionRateRepository 法定扣款比例数据访问接口
type DeductionRateRepository interface {
	List() ([]models.DeductionRate, error)
	GetByType(rateType string) (*models.DeductionRate, error)
	Upsert(rate *models.DeductionRate) error
	WithContext(ctx context.Context) DeductionRateRepository
}

// GormDeductionRateRepository GORM 实现
type GormDeductionRateRepository struct {
	db *gorm.DB
}

// NewDeductionRateRepository 创建扣款比例仓库
func NewDeductionRateRepository(db *gorm.DB) *GormDeductionRateRepository {
	return &GormDeductionRateRepository{db: db}
}

// WithContext 绑定上下文
func (r *GormDeductionRateRepository) WithContext(ctx context.Context) DeductionRateRepository {
	if ctx == nil {
		return r
	}
	return &GormDeductionRateRepository{db: r.db.WithContext(ctx)}
}

// List 获取全部扣款比例
func (r *GormDeductionRateRepository) List() ([]models.DeductionRate, error) {
	var rates []models.DeductionRate
	if err := r.db.Order("type ASC").Find(&rates).Error; err != nil {
		return nil, err
	}
	return rates, nil
}

// GetByType 按类型获取扣款比例
func (r *GormDeductionRateRepository) GetByType(rateType string) (*models.DeductionRate, error) {
	rateType = strings.TrimSpace(rateType)
	if rateType == "" {
		return nil, nil
	}
	var rate models.DeductionRate
	if err := r.db.Where("type = ?", rateType).First(&rate).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rate, nil
}

// Upsert 按类型新增或更新扣款比例
func (r *GormDeductionRateRepository) Upsert(rate *models.DeductionRate) error {
	if rate == nil {
		return nil
	}
	now := time.Now()
	if rate.CreatedAt.IsZero() {
		rate.CreatedAt = now
	}
	rate.UpdatedAt = now
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"rate", "description", "updated_at"}),
	}).Create(rate).Error
}
