package models

import "time"

// ProviderSalary 服务者薪资台账（累计值，每次结算原子递增）
type ProviderSalary struct {
	ID                uint       `gorm:"primarykey" json:"id"`                                          // 主键
	ServiceProviderID uint       `gorm:"uniqueIndex;not null" json:"service_provider_id"`               // 服务者ID
	EPF               Money      `gorm:"column:epf;type:decimal(20,2);not null;default:0" json:"epf"`   // 累计 EPF
	ETF               Money      `gorm:"column:etf;type:decimal(20,2);not null;default:0" json:"etf"`   // 累计 ETF
	TotalNetSalary    Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_net_salary"` // 累计净薪资
	LastSettledAt     *time.Time `gorm:"index" json:"last_settled_at"`                                  // 最近结算时间
	LastBatchID       *uint      `json:"last_batch_id"`                                                 // 最近结算批次
	CreatedAt         time.Time  `json:"created_at"`                                                    // 创建时间
	UpdatedAt         time.Time  `json:"updated_at"`                                                    // 更新时间

	ServiceProvider *ServiceProvider `gorm:"foreignKey:ServiceProviderID" json:"service_provider,omitempty"` // 服务者
}

// TableName 指定表名
func (ProviderSalary) TableName() string {
	return "provider_salaries"
}
