package models

import (
	"time"

	"gorm.io/gorm"
)

// ServiceProvider 服务者
type ServiceProvider struct {
	ID        uint           `gorm:"primarykey" json:"id"`                                     // 主键
	Name      string         `gorm:"type:varchar(120);not null" json:"name"`                   // 姓名
	Email     string         `gorm:"type:varchar(255);index" json:"email"`                     // 通知邮箱
	Phone     string         `gorm:"type:varchar(32)" json:"phone"`                            // 联系电话
	Status    string         `gorm:"type:varchar(32);not null;default:'active'" json:"status"` // 状态
	ServiceID *uint          `gorm:"index" json:"service_id"`                                  // 所属服务项目
	CreatedAt time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`                                  // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间

	Service *ServiceCatalog `gorm:"foreignKey:ServiceID" json:"service,omitempty"` // 服务项目
}

// TableName 指定表名
func (ServiceProvider) TableName() string {
	return "service_providers"
}
