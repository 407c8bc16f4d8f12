package models

import (
	"time"

	"gorm.io/gorm"
)

// ServiceCatalog 服务项目（护理/陪护等），携带平台佣金比例
type ServiceCatalog struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                    // 主键
	Name           string         `gorm:"type:varchar(120);not null" json:"name"`                  // 服务名称
	Description    string         `gorm:"type:text" json:"description"`                            // 服务描述
	CommissionRate *Money         `gorm:"type:decimal(6,2)" json:"commission_rate"`                // 平台佣金比例（整数百分比，如 15 表示 15%），为空时使用默认值
	BasePrice      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"base_price"` // 参考价格
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                 // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                          // 软删除时间
}

// TableName 指定表名
func (ServiceCatalog) TableName() string {
	return "services"
}
