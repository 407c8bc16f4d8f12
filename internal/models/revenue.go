package models

import "time"

// Revenue 平台收入流水（只追加）
type Revenue struct {
	ID                uint      `gorm:"primarykey" json:"id"`                          // 主键
	Amount            Money     `gorm:"type:decimal(20,2);not null" json:"amount"`     // 金额
	Source            string    `gorm:"type:varchar(64);not null;index" json:"source"` // 收入来源
	Description       string    `gorm:"type:varchar(255)" json:"description"`          // 描述
	ServiceProviderID *uint     `gorm:"index" json:"service_provider_id"`              // 关联服务者
	SettlementBatchID *uint     `gorm:"index" json:"settlement_batch_id"`              // 关联结算批次
	CreatedAt         time.Time `gorm:"index" json:"created_at"`                       // 创建时间
}

// TableName 指定表名
func (Revenue) TableName() string {
	return "revenues"
}
