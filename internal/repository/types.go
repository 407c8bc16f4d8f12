package repository

import "time"

// ProviderListFilter 查询服务者列表的过滤条件
type ProviderListFilter struct {
	Page     int
	PageSize int
	Status   string
	Search   string
}

// SalaryLedgerListFilter 查询薪资台账列表的过滤条件
type SalaryLedgerListFilter struct {
	Page              int
	PageSize          int
	ServiceProviderID uint
	Search            string
}

// RevenueListFilter 查询平台收入流水的过滤条件
type RevenueListFilter struct {
	Page              int
	PageSize          int
	Source            string
	ServiceProviderID uint
	SettlementBatchID uint
	CreatedFrom       *time.Time
	CreatedTo         *time.Time
}

// SettlementBatchListFilter 查询结算批次列表的过滤条件
type SettlementBatchListFilter struct {
	Page        int
	PageSize    int
	Status      string
	Trigger     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
