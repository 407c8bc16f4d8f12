package models

import "time"

// DeductionRate 法定扣款比例（EPF/ETF 等）
type DeductionRate struct {
	ID          uint      `gorm:"primarykey" json:"id"`                              // 主键
	Type        string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"type"` // 扣款类型
	Rate        Rate      `gorm:"type:decimal(10,4);not null;default:0" json:"rate"` // 比例（小数形式）
	Description string    `gorm:"type:varchar(255)" json:"description"`              // 说明
	CreatedAt   time.Time `json:"created_at"`                                        // 创建时间
	UpdatedAt   time.Time `json:"updated_at"`                                        // 更新时间
}

// TableName 指定表名
func (DeductionRate) TableName() string {
	return "deduction_rates"
}
