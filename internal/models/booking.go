package models

import (
	"time"

	"gorm.io/gorm"
)

// Booking 预约记录
type Booking struct {
	ID                uint           `gorm:"primarykey" json:"id"`                          // 主键
	CustomerEmail     string         `gorm:"type:varchar(255);index" json:"customer_email"` // 客户邮箱
	ServiceProviderID *uint          `gorm:"index" json:"service_provider_id"`              // 服务者ID
	Status            string         `gorm:"type:varchar(32);not null;index" json:"status"` // 预约状态
	ScheduledAt       *time.Time     `gorm:"index" json:"scheduled_at"`                     // 预约时间
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                       // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                       // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                // 软删除时间

	ServiceProvider *ServiceProvider `gorm:"foreignKey:ServiceProviderID" json:"service_provider,omitempty"` // 服务者
}

// TableName 指定表名
func (Booking) TableName() string {
	return "bookings"
}
