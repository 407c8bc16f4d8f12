package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/models"

	"gorm.io/gorm"
)

// SettlementBatchRepository 结算批次数据访问接口
type SettlementBatchRepository interface {
	Create(batch *models.SettlementBatch) error
	Update(batch *models.SettlementBatch) error
	GetByID(id uint) (*models.SettlementBatch, error)
	GetLatest() (*models.SettlementBatch, error)
	List(filter SettlementBatchListFilter) ([]models.SettlementBatch, int64, error)
	FailStaleRunning(before time.Time, reason string) (int64, error)
	WithContext(ctx context.Context) SettlementBatchRepository
}

// GormSettlementBatchRepository GORM 实现
type GormSettlementBatchRepository struct {
	db *gorm.DB
}

// NewSettlementBatchRepository 创建结算批次仓库
func NewSettlementBatchRepository(db *gorm.DB) *GormSettlementBatchRepository {
	return &GormSettlementBatchRepository{db: db}
}

// WithContext 绑定上下文
func (r *GormSettlementBatchRepository) WithContext(ctx context.Context) SettlementBatchRepository {
	if ctx == nil {
		return r
	}
	return &GormSettlementBatchRepository{db: r.db.WithContext(ctx)}
}

// Create 创建批次
func (r *GormSettlementBatchRepository) Create(batch *models.SettlementBatch) error {
	return r.db.Create(batch).Error
}

// Update 保存批次
func (r *GormSettlementBatchRepository) Update(batch *models.SettlementBatch) error {
	return r.db.Save(batch).Error
}

// GetByID 获取批次
func (r *GormSettlementBatchRepository) GetByID(id uint) (*models.SettlementBatch, error) {
	if id == 0 {
		return nil, nil
	}
	var batch models.SettlementBatch
	if err := r.db.First(&batch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// GetLatest 获取最近一次批次
func (r *GormSettlementBatchRepository) GetLatest() (*models.SettlementBatch, error) {
	var batch models.SettlementBatch
	if err := r.db.Order("id DESC").First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// List 分页查询批次
func (r *GormSettlementBatchRepository) List(filter SettlementBatchListFilter) ([]models.SettlementBatch, int64, error) {
	query := r.db.Model(&models.SettlementBatch{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if trigger := strings.TrimSpace(filter.Trigger); trigger != "" {
		query = query.Where("trigger_type = ?", trigger)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var batches []models.SettlementBatch
	if err := query.Omit("report").Order("id DESC").Find(&batches).Error; err != nil {
		return nil, 0, err
	}
	return batches, total, nil
}

// FailStaleRunning 将长时间停留在运行中的批次标记为失败（进程异常退出遗留）
func (r *GormSettlementBatchRepository) FailStaleRunning(before time.Time, reason string) (int64, error) {
	now := time.Now()
	result := r.db.Model(&models.SettlementBatch{}).
		Where("status = ?", constants.SettlementBatchStatusRunning).
		Where("started_at < ?", before).
		Updates(map[string]interface{}{
			"status":      constants.SettlementBatchStatusFailed,
			"error":       reason,
			"finished_at": now,
			"updated_at":  now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
