package constants

// 支付状态常量
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

// 服务者状态常量
const (
	ProviderStatusActive   = "active"
	ProviderStatusDisabled = "disabled"
)

// 预约状态常量
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCanceled  = "canceled"
)

// 法定扣款类型常量
const (
	DeductionTypeEPF = "EPF"
	DeductionTypeETF = "ETF"
)

// 结算批次状态常量
const (
	SettlementBatchStatusRunning   = "running"
	SettlementBatchStatusCompleted = "completed"
	SettlementBatchStatusPartial   = "partial"
	SettlementBatchStatusFailed    = "failed"
)

// 结算触发方式常量
const (
	SettlementTriggerManual   = "manual"
	SettlementTriggerSchedule = "schedule"
)

// 单个服务者结算结果状态常量
const (
	SettlementProviderSettled                   = "settled"
	SettlementProviderSettledNotificationFailed = "settled_notification_failed"
	SettlementProviderFailedPersistence         = "failed_persistence"
	SettlementProviderSkippedConflict           = "skipped_conflict"
	SettlementProviderAborted                   = "aborted"
	SettlementPaymentSkippedResolution          = "skipped_resolution"
)

// 结算通知状态常量
const (
	SettlementNotifySent    = "sent"
	SettlementNotifyQueued  = "queued"
	SettlementNotifyFailed  = "failed"
	SettlementNotifySkipped = "skipped"
)

// 平台收入来源常量
const (
	RevenueSourceSalaryCommission = "salary_commission"
)

// 队列常量
const (
	QueueDefault                  = "default"
	QueueCritical                 = "critical"
	TaskSalaryNotification        = "settlement:salary_notification"
	TaskSalarySettlementRun       = "settlement:run"
	SettlementRunLockKey          = "lock:settlement_run"
	SettlementScheduleTriggeredBy = "scheduler"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "cn"
)
