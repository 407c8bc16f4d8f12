package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment 支付记录
type Payment struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                    // 主键
	BookingID         uint           `gorm:"index;not null" json:"booking_id"`                        // 预约ID
	Amount            Money          `gorm:"type:decimal(20,2);not null" json:"amount"`               // 支付金额
	Currency          string         `gorm:"type:varchar(16);not null;default:'LKR'" json:"currency"` // 币种
	Status            string         `gorm:"type:varchar(32);index;not null" json:"status"`           // 支付状态（pending/completed/failed）
	ProviderRef       string         `gorm:"index" json:"provider_ref"`                               // 第三方流水号
	PaidAt            *time.Time     `gorm:"index" json:"paid_at"`                                    // 支付时间
	SettledAt         *time.Time     `gorm:"index" json:"settled_at"`                                 // 薪资结算时间（为空表示未结算）
	SettlementBatchID *uint          `gorm:"index" json:"settlement_batch_id"`                        // 结算批次ID
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                 // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间

	Booking *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"` // 预约
}

// TableName 指定表名
func (Payment) TableName() string {
	return "payments"
}
