package service

import (
	"context"
	"strings"

	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/models"
	"github.com/carenest-next/internal/repository"
)

// SettlementBatchService 结算批次查询服务
type SettlementBatchService struct {
	repo repository.SettlementBatchRepository
}

// NewSettlementBatchService 创建结算批次查询服务
func NewSettlementBatchService(repo repository.SettlementBatchRepository) *SettlementBatchService {
	return &SettlementBatchService{repo: repo}
}

// List 分页查询结算批次
func (s *SettlementBatchService) List(ctx context.Context, filter repository.SettlementBatchListFilter) ([]models.SettlementBatch, int64, error) {
	filter.Status = strings.ToLower(strings.TrimSpace(filter.Status))
	filter.Trigger = strings.ToLower(strings.TrimSpace(filter.Trigger))
	if filter.Status != "" && !isSettlementBatchStatus(filter.Status) {
		return nil, 0, ErrInvalidFilter
	}
	if filter.Trigger != "" && filter.Trigger != constants.SettlementTriggerManual && filter.Trigger != constants.SettlementTriggerSchedule {
		return nil, 0, ErrInvalidFilter
	}
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return nil, 0, ErrInvalidFilter
	}
	return s.repo.WithContext(ctx).List(filter)
}

// Get 获取结算批次详情（含明细快照）
func (s *SettlementBatchService) Get(ctx context.Context, id uint) (*models.SettlementBatch, error) {
	if id == 0 {
		return nil, ErrNotFound
	}
	batch, err := s.repo.WithContext(ctx).GetByID(id)
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrNotFound
	}
	return batch, nil
}

func isSettlementBatchStatus(status string) bool {
	switch status {
	case constants.SettlementBatchStatusRunning,
		constants.SettlementBatchStatusCompleted,
		constants.SettlementBatchStatusPartial,
		constants.SettlementBatchStatusFailed:
		return true
	default:
		return false
	}
}
