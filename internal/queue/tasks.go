package queue

import (
	"encoding/json"
	"fmt"

	"github.com/carenest-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskSalaryNotification 薪资结算通知任务
	TaskSalaryNotification = constants.TaskSalaryNotification
	// TaskSalarySettlementRun 薪资结算运行任务
	TaskSalarySettlementRun = constants.TaskSalarySettlementRun
)

// SalaryNotificationPayload 薪资通知任务载荷
type SalaryNotificationPayload struct {
	ServiceProviderID uint   `json:"service_provider_id"`
	BatchID           uint   `json:"batch_id"`
	BatchNo           string `json:"batch_no"`
	NetSalary         string `json:"net_salary"`
	TotalEarning      string `json:"total_earning"`
	Commission        string `json:"commission"`
	EPF               string `json:"epf"`
	ETF               string `json:"etf"`
}

// SalarySettlementRunPayload 结算运行任务载荷
type SalarySettlementRunPayload struct {
	Trigger     string `json:"trigger"`
	TriggeredBy string `json:"triggered_by"`
}

// NewSalaryNotificationTask 创建薪资通知任务
func NewSalaryNotificationTask(payload SalaryNotificationPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSalaryNotification, body), nil
}

// NewSalarySettlementRunTask 创建结算运行任务
func NewSalarySettlementRunTask(payload SalarySettlementRunPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSalarySettlementRun, body), nil
}

// ParseSalaryNotificationPayload 解析薪资通知任务载荷
func ParseSalaryNotificationPayload(body []byte) (SalaryNotificationPayload, error) {
	var payload SalaryNotificationPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, err
	}
	if payload.ServiceProviderID == 0 {
		return payload, fmt.Errorf("salary notification payload missing provider id")
	}
	return payload, nil
}

// ParseSalarySettlementRunPayload 解析结算运行任务载荷（空载荷视为定时触发）
func ParseSalarySettlementRunPayload(body []byte) (SalarySettlementRunPayload, error) {
	payload := SalarySettlementRunPayload{
		Trigger:     constants.SettlementTriggerSchedule,
		TriggeredBy: constants.SettlementScheduleTriggeredBy,
	}
	if len(body) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, err
	}
	if payload.Trigger == "" {
		payload.Trigger = constants.SettlementTriggerSchedule
	}
	return payload, nil
}

// salaryNotificationTaskID 同一批次同一服务者只投递一次通知
func salaryNotificationTaskID(payload SalaryNotificationPayload) string {
	return fmt.Sprintf("salary-notify:%d:%d", payload.BatchID, payload.ServiceProviderID)
}
