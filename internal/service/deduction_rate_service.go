package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/carenest-next/internal/models"
	"github.com/carenest-next/internal/repository"

	"github.com/shopspring/decimal"
)

const rateDecimalScale = 4

var deductionTypePattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]{1,31}$`)

// DeductionRateService 法定扣款比例服务
type DeductionRateService struct {
	repo repository.DeductionRateRepository
}

// NewDeductionRateService 创建扣款比例服务
func NewDeductionRateService(repo repository.DeductionRateRepository) *DeductionRateService {
	return &DeductionRateService{repo: repo}
}

// DeductionRateInput 扣款比例更新输入
type DeductionRateInput struct {
	Type        string
	Rate        decimal.Decimal
	Description string
}

// List 获取全部扣款比例
func (s *DeductionRateService) List(ctx context.Context) ([]models.DeductionRate, error) {
	return s.repo.WithContext(ctx).List()
}

// Upsert 新增或更新扣款比例（小数形式，取值 0~1）
func (s *DeductionRateService) Upsert(ctx context.Context, input DeductionRateInput) (*models.DeductionRate, error) {
	rateType := strings.ToUpper(strings.TrimSpace(input.Type))
	if !deductionTypePattern.MatchString(rateType) {
		return nil, ErrDeductionTypeInvalid
	}
	if input.Rate.IsNegative() || input.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, ErrDeductionRateInvalid
	}
	if !input.Rate.Round(rateDecimalScale).Equal(input.Rate) {
		return nil, ErrDeductionRateInvalid
	}

	repo := s.repo.WithContext(ctx)
	row := &models.DeductionRate{
		Type:        rateType,
		Rate:        models.NewRateFromDecimal(input.Rate),
		Description: strings.TrimSpace(input.Description),
	}
	if err := repo.Upsert(row); err != nil {
		return nil, err
	}
	saved, err := repo.GetByType(rateType)
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return nil, ErrNotFound
	}
	return saved, nil
}
