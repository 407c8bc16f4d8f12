package models

import "time"

// SettlementBatch 薪资结算批次
type SettlementBatch struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                                    // 主键
	BatchNo         string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"batch_no"`                   // 批次号
	Trigger         string     `gorm:"column:trigger_type;type:varchar(32);not null;index" json:"trigger"`      // 触发方式（manual/schedule）
	TriggeredBy     string     `gorm:"type:varchar(120)" json:"triggered_by"`                                   // 触发人
	Status          string     `gorm:"type:varchar(32);not null;index" json:"status"`                           // 批次状态
	ProviderCount   int        `gorm:"not null;default:0" json:"provider_count"`                                // 参与结算的服务者数
	SettledCount    int        `gorm:"not null;default:0" json:"settled_count"`                                 // 结算成功数
	FailedCount     int        `gorm:"not null;default:0" json:"failed_count"`                                  // 持久化失败数
	ConflictCount   int        `gorm:"not null;default:0" json:"conflict_count"`                                // 并发冲突跳过数
	SkippedPayments int        `gorm:"not null;default:0" json:"skipped_payments"`                              // 无法归属的支付数
	NotifyFailed    int        `gorm:"not null;default:0" json:"notify_failed"`                                 // 通知失败数
	TotalEarning    Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_earning"`              // 总收入
	TotalCommission Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_commission"`           // 总佣金
	TotalEPF        Money      `gorm:"column:total_epf;type:decimal(20,2);not null;default:0" json:"total_epf"` // 总 EPF
	TotalETF        Money      `gorm:"column:total_etf;type:decimal(20,2);not null;default:0" json:"total_etf"` // 总 ETF
	TotalNet        Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_net"`                  // 总净薪资
	Report          JSON       `gorm:"type:json" json:"report"`                                                 // 结算明细快照
	Error           string     `gorm:"type:text" json:"error"`                                                  // 失败原因
	StartedAt       time.Time  `gorm:"index" json:"started_at"`                                                 // 开始时间
	FinishedAt      *time.Time `json:"finished_at"`                                                             // 结束时间
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                                                 // 创建时间
	UpdatedAt       time.Time  `json:"updated_at"`                                                              // 更新时间
}

// TableName 指定表名
func (SettlementBatch) TableName() string {
	return "settlement_batches"
}
