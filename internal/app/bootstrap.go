package app

import (
	"errors"

	"github.com/carenest-next/internal/config"
	"github.com/carenest-next/internal/logger"
	"github.com/carenest-next/internal/provider"
	"github.com/carenest-next/internal/router"
	"github.com/carenest-next/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		httpService := NewHTTPService(addr, engine)
		services = append(services, httpService)
	}

	// 初始化 Worker 服务（all 模式下队列未启用时跳过）
	if mode == ModeWorker || (mode == ModeAll && cfg.Queue.Enabled) {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			return nil, err
		}
		services = append(services, workerService)
	}

	// 初始化结算调度
	if mode == ModeAll || mode == ModeWorker {
		scheduler, err := buildSettlementScheduler(cfg, container)
		if err != nil {
			return nil, err
		}
		if scheduler != nil {
			services = append(services, scheduler)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), nil
}

// buildSettlementScheduler 队列启用时使用 asynq Scheduler，否则退化为进程内 cron
func buildSettlementScheduler(cfg *config.Config, container *provider.Container) (Service, error) {
	if !cfg.Settlement.ScheduleEnabled {
		logger.Infow("settlement_schedule_disabled")
		return nil, nil
	}
	if cfg.Queue.Enabled {
		return worker.NewSchedulerService(&cfg.Queue, cfg.Settlement)
	}
	if container == nil || container.SalarySettlementService == nil {
		return nil, errors.New("settlement service not initialized")
	}
	return NewCronService(worker.ScheduleCronSpec(cfg.Settlement), container.SalarySettlementService)
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
