package app

import (
	"context"
	"errors"
	"sync"

	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/logger"
	"github.com/carenest-next/internal/service"

	"github.com/robfig/cron/v3"
)

// SettlementRunner 结算执行器
type SettlementRunner interface {
	Run(ctx context.Context, input service.RunInput) (*service.RunSummary, error)
}

// CronService 队列未启用时的进程内结算调度
type CronService struct {
	name     string
	cron     *cron.Cron
	cronSpec string
	runner   SettlementRunner

	mu     sync.Mutex
	runCtx context.Context
}

// NewCronService 创建进程内结算调度服务
func NewCronService(cronSpec string, runner SettlementRunner) (*CronService, error) {
	if runner == nil {
		return nil, errors.New("settlement runner is nil")
	}
	cronLogger := cron.PrintfLogger(logger.StdLogger())
	return &CronService{
		name:     "settlement-cron",
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger))),
		cronSpec: cronSpec,
		runner:   runner,
	}, nil
}

// Name 服务名称
func (s *CronService) Name() string {
	if s == nil || s.name == "" {
		return "settlement-cron"
	}
	return s.name
}

// Start 注册定时任务并阻塞到上下文结束
func (s *CronService) Start(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return errors.New("cron not initialized")
	}
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	entryID, err := s.cron.AddFunc(s.cronSpec, s.runOnce)
	if err != nil {
		logger.Errorw("cron_settlement_run_register_failed", "cron", s.cronSpec, "error", err)
		return err
	}
	logger.Infow("cron_settlement_run_registered", "cron", s.cronSpec, "entry_id", entryID)
	s.cron.Start()
	<-ctx.Done()
	return nil
}

// Stop 停止调度并等待进行中的任务结束
func (s *CronService) Stop(ctx context.Context) error {
	if s == nil || s.cron == nil {
		return nil
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CronService) runOnce() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	summary, err := s.runner.Run(ctx, service.RunInput{
		Trigger:     constants.SettlementTriggerSchedule,
		TriggeredBy: constants.SettlementScheduleTriggeredBy,
	})
	if err != nil {
		if errors.Is(err, service.ErrSettlementRunInProgress) {
			logger.Infow("cron_settlement_run_skipped_in_progress")
			return
		}
		logger.Errorw("cron_settlement_run_failed", "error", err)
		return
	}
	if summary != nil && summary.Batch != nil {
		logger.Infow("cron_settlement_run_finished",
			"batch_no", summary.Batch.BatchNo,
			"status", summary.Batch.Status,
		)
	}
}
