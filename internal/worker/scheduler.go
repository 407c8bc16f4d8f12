package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/carenest-next/internal/config"
	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/logger"
	"github.com/carenest-next/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultScheduleCron = "@every 1h"

// SchedulerService 周期性投递结算运行任务
type SchedulerService struct {
	name      string
	scheduler *asynq.Scheduler
	cronSpec  string
	unique    time.Duration
}

// NewSchedulerService 创建结算调度服务
func NewSchedulerService(queueCfg *config.QueueConfig, settlementCfg config.SettlementConfig) (*SchedulerService, error) {
	if queueCfg == nil || !queueCfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	cronSpec := ScheduleCronSpec(settlementCfg)
	unique := time.Duration(settlementCfg.RunTimeoutSeconds) * time.Second
	if unique <= 0 {
		unique = 5 * time.Minute
	}
	scheduler := asynq.NewScheduler(queue.RedisOpt(queueCfg), &asynq.SchedulerOpts{
		Location: time.Local,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				if errors.Is(err, asynq.ErrDuplicateTask) {
					logger.Debugw("scheduler_settlement_run_skip_duplicate")
					return
				}
				logger.Warnw("scheduler_settlement_run_enqueue_failed", "error", err)
				return
			}
			if info != nil {
				logger.Infow("scheduler_settlement_run_enqueued", "task_id", info.ID, "queue", info.Queue)
			}
		},
	})
	return &SchedulerService{
		name:      "settlement-scheduler",
		scheduler: scheduler,
		cronSpec:  cronSpec,
		unique:    unique,
	}, nil
}

// Name 服务名称
func (s *SchedulerService) Name() string {
	if s == nil || s.name == "" {
		return "settlement-scheduler"
	}
	return s.name
}

// Start 注册周期任务并阻塞到上下文结束
func (s *SchedulerService) Start(ctx context.Context) error {
	if s == nil || s.scheduler == nil {
		return errors.New("scheduler not initialized")
	}
	task, err := queue.NewSalarySettlementRunTask(queue.SalarySettlementRunPayload{
		Trigger:     constants.SettlementTriggerSchedule,
		TriggeredBy: constants.SettlementScheduleTriggeredBy,
	})
	if err != nil {
		return err
	}
	entryID, err := s.scheduler.Register(s.cronSpec, task,
		asynq.Queue(queue.CriticalQueue),
		asynq.MaxRetry(0),
		asynq.Unique(s.unique),
	)
	if err != nil {
		logger.Errorw("scheduler_settlement_run_register_failed", "cron", s.cronSpec, "error", err)
		return err
	}
	logger.Infow("scheduler_settlement_run_registered", "cron", s.cronSpec, "entry_id", entryID)
	if err := s.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 停止调度
func (s *SchedulerService) Stop(_ context.Context) error {
	if s == nil || s.scheduler == nil {
		return nil
	}
	s.scheduler.Shutdown()
	return nil
}

// ScheduleCronSpec 返回结算调度表达式，未配置时按小时执行
func ScheduleCronSpec(cfg config.SettlementConfig) string {
	spec := strings.TrimSpace(cfg.ScheduleCron)
	if spec == "" {
		return defaultScheduleCron
	}
	return spec
}
