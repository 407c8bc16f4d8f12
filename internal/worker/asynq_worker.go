package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/carenest-next/internal/logger"
	"github.com/carenest-next/internal/provider"
	"github.com/carenest-next/internal/queue"
	"github.com/carenest-next/internal/service"

	"github.com/hibiken/asynq"
)

// SettlementRunner 结算运行与通知投递能力
type SettlementRunner interface {
	Run(ctx context.Context, input service.RunInput) (*service.RunSummary, error)
	DeliverSalaryNotification(ctx context.Context, payload queue.SalaryNotificationPayload) error
}

// Consumer 异步任务消费者
type Consumer struct {
	Settlement SettlementRunner
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	if c == nil {
		return &Consumer{}
	}
	return &Consumer{
		Settlement: c.SalarySettlementService,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskSalaryNotification, c.handleSalaryNotification)
	mux.HandleFunc(queue.TaskSalarySettlementRun, c.handleSalarySettlementRun)
}

func (c *Consumer) handleSalaryNotification(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_salary_notification_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseSalaryNotificationPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_salary_notification_invalid_payload", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if c.Settlement == nil {
		logger.Warnw("worker_salary_notification_skip_service_nil", "service_provider_id", payload.ServiceProviderID)
		return nil
	}
	err = c.Settlement.DeliverSalaryNotification(ctx, payload)
	switch {
	case err == nil:
		logger.Debugw("worker_salary_notification_sent",
			"service_provider_id", payload.ServiceProviderID,
			"batch_no", payload.BatchNo,
		)
		return nil
	case errors.Is(err, service.ErrNotFound):
		logger.Debugw("worker_salary_notification_skip_provider_not_found", "service_provider_id", payload.ServiceProviderID)
		return nil
	case errors.Is(err, service.ErrProviderContactMissing), errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrEmailRecipientRejected):
		logger.Warnw("worker_salary_notification_undeliverable",
			"service_provider_id", payload.ServiceProviderID,
			"batch_no", payload.BatchNo,
			"error", err,
		)
		return nil
	default:
		logger.Warnw("worker_salary_notification_failed",
			"service_provider_id", payload.ServiceProviderID,
			"batch_no", payload.BatchNo,
			"error", err,
		)
		return err
	}
}

func (c *Consumer) handleSalarySettlementRun(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_settlement_run_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseSalarySettlementRunPayload(task.Payload())
	if err != nil {
		logger.Warnw("worker_settlement_run_invalid_payload", "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if c.Settlement == nil {
		logger.Warnw("worker_settlement_run_skip_service_nil")
		return nil
	}
	summary, err := c.Settlement.Run(ctx, service.RunInput{
		Trigger:     payload.Trigger,
		TriggeredBy: payload.TriggeredBy,
	})
	if err != nil {
		if errors.Is(err, service.ErrSettlementRunInProgress) {
			logger.Infow("worker_settlement_run_skip_in_progress", "trigger", payload.Trigger)
			return nil
		}
		logger.Warnw("worker_settlement_run_failed", "trigger", payload.Trigger, "error", err)
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if summary != nil && summary.Batch != nil {
		logger.Infow("worker_settlement_run_done",
			"batch_no", summary.Batch.BatchNo,
			"status", summary.Batch.Status,
			"settled", summary.Batch.SettledCount,
		)
	}
	return nil
}
