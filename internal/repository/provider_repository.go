package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/carenest-next/internal/models"

	"gorm.io/gorm"
)

// ProviderRepository 服务者数据访问接口
type ProviderRepository interface {
	GetByID(id uint) (*models.ServiceProvider, error)
	GetByIDs(ids []uint) ([]models.ServiceProvider, error)
	List(filter ProviderListFilter) ([]models.ServiceProvider, int64, error)
	Create(provider *models.ServiceProvider) error
	WithContext(ctx context.Context) ProviderRepository
}

// GormProviderRepository GORM 实现
type GormProviderRepository struct {
	db *gorm.DB
}

// NewProviderRepository 创建服务者仓库
func NewProviderRepository(db *gorm.DB) *GormProviderRepository {
	return &GormProviderRepository{db: db}
}

// WithContext 绑定上下文
func (r *GormProviderRepository) WithContext(ctx context.Context) ProviderRepository {
	if ctx == nil {
		return r
	}
	return &GormProviderRepository{db: r.db.WithContext(ctx)}
}

// GetByID 获取服务者
func (r *GormProviderRepository) GetByID(id uint) (*models.ServiceProvider, error) {
	if id == 0 {
		return nil, nil
	}
	var provider models.ServiceProvider
	if err := r.db.Preload("Service").First(&provider, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &provider, nil
}

// GetByIDs 批量获取服务者
func (r *GormProviderRepository) GetByIDs(ids []uint) ([]models.ServiceProvider, error) {
	if len(ids) == 0 {
		return []models.ServiceProvider{}, nil
	}
	var providers []models.ServiceProvider
	if err := r.db.Where("id IN ?", ids).Find(&providers).Error; err != nil {
		return nil, err
	}
	return providers, nil
}

// List 分页查询服务者
func (r *GormProviderRepository) List(filter ProviderListFilter) ([]models.ServiceProvider, int64, error) {
	query := r.db.Model(&models.ServiceProvider{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	query = applyLikeSearch(query, filter.Search, "name", "email", "phone")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var providers []models.ServiceProvider
	if err := query.Preload("Service").Order("id ASC").Find(&providers).Error; err != nil {
		return nil, 0, err
	}
	return providers, total, nil
}

// Create 创建服务者
func (r *GormProviderRepository) Create(provider *models.ServiceProvider) error {
	return r.db.Create(provider).Error
}
