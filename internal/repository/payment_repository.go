package repository

import (
	"context"
	"errors"
	"time"

	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementPaymentRow 待结算支付及其归属链路（支付 → 预约 → 服务者 → 服务项目）
type SettlementPaymentRow struct {
	PaymentID         uint                `gorm:"column:payment_id"`
	BookingID         uint                `gorm:"column:booking_id"`
	BookingRef        *uint               `gorm:"column:booking_ref"`
	BookingProviderID *uint               `gorm:"column:booking_provider_id"`
	ServiceProviderID *uint               `gorm:"column:service_provider_id"`
	Amount            decimal.Decimal     `gorm:"column:amount"`
	CommissionRate    decimal.NullDecimal `gorm:"column:commission_rate"`
}

// PaymentRepository 支付数据访问接口
type PaymentRepository interface {
	Create(payment *models.Payment) error
	GetByID(id uint) (*models.Payment, error)
	ListUnsettledCompleted() ([]SettlementPaymentRow, error)
	ClaimForSettlement(paymentIDs []uint, batchID uint, settledAt time.Time) (int64, error)
	CountUnsettledCompleted() (int64, error)
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PaymentRepository
	WithContext(ctx context.Context) PaymentRepository
}

// GormPaymentRepository GORM 实现
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建支付仓库
func NewPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPaymentRepository) WithTx(tx *gorm.DB) PaymentRepository {
	if tx == nil {
		return r
	}
	return &GormPaymentRepository{db: tx}
}

// WithContext 绑定上下文
func (r *GormPaymentRepository) WithContext(ctx context.Context) PaymentRepository {
	if ctx == nil {
		return r
	}
	return &GormPaymentRepository{db: r.db.WithContext(ctx)}
}

// Transaction 执行事务
func (r *GormPaymentRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Create 创建支付记录
func (r *GormPaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// GetByID 获取支付记录
func (r *GormPaymentRepository) GetByID(id uint) (*models.Payment, error) {
	if id == 0 {
		return nil, nil
	}
	var payment models.Payment
	if err := r.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// ListUnsettledCompleted 查询已完成且未结算的支付，附带服务者与佣金比例
// 归属链路中任一环缺失时对应列为 NULL，由调用方判定为无法归属。
func (r *GormPaymentRepository) ListUnsettledCompleted() ([]SettlementPaymentRow, error) {
	var rows []SettlementPaymentRow
	err := r.db.Table("payments").
		Select(`payments.id AS payment_id,
			payments.booking_id AS booking_id,
			payments.amount AS amount,
			bookings.id AS booking_ref,
			bookings.service_provider_id AS booking_provider_id,
			service_providers.id AS service_provider_id,
			services.commission_rate AS commission_rate`).
		Joins("LEFT JOIN bookings ON bookings.id = payments.booking_id AND bookings.deleted_at IS NULL").
		Joins("LEFT JOIN service_providers ON service_providers.id = bookings.service_provider_id AND service_providers.deleted_at IS NULL").
		Joins("LEFT JOIN services ON services.id = service_providers.service_id AND services.deleted_at IS NULL").
		Where("payments.status = ?", constants.PaymentStatusCompleted).
		Where("payments.settled_at IS NULL").
		Where("payments.deleted_at IS NULL").
		Order("payments.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ClaimForSettlement 将支付标记为已结算，仅更新仍未结算的记录，返回实际标记数量；batchID 为 0 时批次置空
func (r *GormPaymentRepository) ClaimForSettlement(paymentIDs []uint, batchID uint, settledAt time.Time) (int64, error) {
	if len(paymentIDs) == 0 {
		return 0, nil
	}
	var batchRef *uint
	if batchID != 0 {
		id := batchID
		batchRef = &id
	}
	result := r.db.Model(&models.Payment{}).
		Where("id IN ?", paymentIDs).
		Where("status = ?", constants.PaymentStatusCompleted).
		Where("settled_at IS NULL").
		Updates(map[string]interface{}{
			"settled_at":          settledAt,
			"settlement_batch_id": batchRef,
			"updated_at":          settledAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CountUnsettledCompleted 统计待结算支付数量
func (r *GormPaymentRepository) CountUnsettledCompleted() (int64, error) {
	var total int64
	err := r.db.Model(&models.Payment{}).
		Where("status = ?", constants.PaymentStatusCompleted).
		Where("settled_at IS NULL").
		Count(&total).Error
	return total, err
}
