package provider

import (
	"github.com/carenest-next/internal/authz"
	"github.com/carenest-next/internal/cache"
	"github.com/carenest-next/internal/config"
	"github.com/carenest-next/internal/logger"
	"github.com/carenest-next/internal/models"
	"github.com/carenest-next/internal/queue"
	"github.com/carenest-next/internal/repository"
	"github.com/carenest-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	PaymentRepo         repository.PaymentRepository
	ProviderRepo        repository.ProviderRepository
	DeductionRateRepo   repository.DeductionRateRepository
	SalaryLedgerRepo    repository.SalaryLedgerRepository
	RevenueRepo         repository.RevenueRepository
	SettlementBatchRepo repository.SettlementBatchRepository

	// Services
	AuthzService            *authz.Service
	EmailService            *service.EmailService
	SalarySettlementService *service.SalarySettlementService
	DeductionRateService    *service.DeductionRateService
	SalaryLedgerService     *service.SalaryLedgerService
	SettlementBatchService  *service.SettlementBatchService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.ProviderRepo = repository.NewProviderRepository(db)
	c.DeductionRateRepo = repository.NewDeductionRateRepository(db)
	c.SalaryLedgerRepo = repository.NewSalaryLedgerRepository(db)
	c.RevenueRepo = repository.NewRevenueRepository(db)
	c.SettlementBatchRepo = repository.NewSettlementBatchRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.EmailService = service.NewEmailService(&c.Config.Email)
	c.SalarySettlementService = service.NewSalarySettlementService(
		c.PaymentRepo,
		c.DeductionRateRepo,
		c.SalaryLedgerRepo,
		c.RevenueRepo,
		c.ProviderRepo,
		c.SettlementBatchRepo,
		c.EmailService,
		c.QueueClient,
		service.SalarySettlementOptionsFromConfig(c.Config.Settlement),
	)
	c.DeductionRateService = service.NewDeductionRateService(c.DeductionRateRepo)
	c.SalaryLedgerService = service.NewSalaryLedgerService(c.SalaryLedgerRepo, c.RevenueRepo)
	c.SettlementBatchService = service.NewSettlementBatchService(c.SettlementBatchRepo)
}
