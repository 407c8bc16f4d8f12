package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carenest-next/internal/cache"
	"github.com/carenest-next/internal/config"
	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/logger"
	"github.com/carenest-next/internal/metrics"
	"github.com/carenest-next/internal/models"
	"github.com/carenest-next/internal/queue"
	"github.com/carenest-next/internal/repository"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultSettlementRunTimeout    = 5 * time.Minute
	defaultSettlementCallTimeout   = 10 * time.Second
	defaultSettlementNotifyWorkers = 4
	defaultSettlementLockTTL       = 10 * time.Minute
	settlementFinalizeTimeout      = 10 * time.Second
	settlementSummaryCacheKey      = "settlement:last_summary"
	settlementSummaryCacheTTL      = 24 * time.Hour
)

// SalaryNotifier 薪资通知发送方
type SalaryNotifier interface {
	SendSalaryNotification(ctx context.Context, toEmail string, input SalaryNotificationInput) error
}

// SalaryNotificationQueue 薪资通知队列
type SalaryNotificationQueue interface {
	Enabled() bool
	EnqueueSalaryNotification(payload queue.SalaryNotificationPayload, opts ...asynq.Option) error
}

// SalarySettlementOptions 结算运行参数
type SalarySettlementOptions struct {
	RunTimeout        time.Duration
	CallTimeout       time.Duration
	NotifyConcurrency int
	NotifyViaQueue    bool
	LockTTL           time.Duration
	Currency          string
}

// SalarySettlementOptionsFromConfig 从配置构建结算运行参数
func SalarySettlementOptionsFromConfig(cfg config.SettlementConfig) SalarySettlementOptions {
	return SalarySettlementOptions{
		RunTimeout:        time.Duration(cfg.RunTimeoutSeconds) * time.Second,
		CallTimeout:       time.Duration(cfg.CallTimeoutSeconds) * time.Second,
		NotifyConcurrency: cfg.NotifyConcurrency,
		NotifyViaQueue:    cfg.NotifyViaQueue,
		LockTTL:           time.Duration(cfg.LockTTLSeconds) * time.Second,
		Currency:          cfg.Currency,
	}
}

func (o SalarySettlementOptions) normalized() SalarySettlementOptions {
	if o.RunTimeout <= 0 {
		o.RunTimeout = defaultSettlementRunTimeout
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = defaultSettlementCallTimeout
	}
	if o.NotifyConcurrency <= 0 {
		o.NotifyConcurrency = defaultSettlementNotifyWorkers
	}
	if o.LockTTL <= 0 {
		o.LockTTL = defaultSettlementLockTTL
	}
	if o.LockTTL < o.RunTimeout {
		o.LockTTL = o.RunTimeout + time.Minute
	}
	if strings.TrimSpace(o.Currency) == "" {
		o.Currency = "LKR"
	}
	return o
}

// RunInput 结算运行输入
type RunInput struct {
	Trigger     string
	TriggeredBy string
}

// ProviderSettlementReport 单个服务者的结算落库与通知结果
type ProviderSettlementReport struct {
	ServiceProviderID uint         `json:"service_provider_id"`
	ProviderName      string       `json:"provider_name"`
	PaymentCount      int          `json:"payment_count"`
	TotalEarning      models.Money `json:"total_earning"`
	CommissionRate    models.Rate  `json:"commission_rate"`
	DefaultCommission bool         `json:"default_commission"`
	Commission        models.Money `json:"commission"`
	EPF               models.Money `json:"epf"`
	ETF               models.Money `json:"etf"`
	NetSalary         models.Money `json:"net_salary"`
	Status            string       `json:"status"`
	NotifyStatus      string       `json:"notify_status"`
	Error             string       `json:"error,omitempty"`
	NotifyError       string       `json:"notify_error,omitempty"`

	result SettlementResult
}

// Settled 是否已完成落库
func (r ProviderSettlementReport) Settled() bool {
	return r.Status == constants.SettlementProviderSettled ||
		r.Status == constants.SettlementProviderSettledNotificationFailed
}

// ApplyReport 一轮结算的落库报告
type ApplyReport struct {
	Providers         []ProviderSettlementReport `json:"providers"`
	Skipped           []SkippedPayment           `json:"skipped"`
	SettledCount      int                        `json:"settled_count"`
	FailedCount       int                        `json:"failed_count"`
	ConflictCount     int                        `json:"conflict_count"`
	AbortedCount      int                        `json:"aborted_count"`
	NotifyFailedCount int                        `json:"notify_failed_count"`
	TotalEarning      decimal.Decimal            `json:"-"`
	TotalCommission   decimal.Decimal            `json:"-"`
	TotalEPF          decimal.Decimal            `json:"-"`
	TotalETF          decimal.Decimal            `json:"-"`
	TotalNet          decimal.Decimal            `json:"-"`
}

// RunSummary 结算运行汇总
type RunSummary struct {
	Message          string                     `json:"message"`
	ProviderSalaries []ProviderSettlementReport `json:"provider_salaries"`
	SkippedPayments  []SkippedPayment           `json:"skipped_payments"`
	Batch            *models.SettlementBatch    `json:"batch"`
}

// SalarySettlementService 服务者薪资结算服务
type SalarySettlementService struct {
	paymentRepo   repository.PaymentRepository
	deductionRepo repository.DeductionRateRepository
	ledgerRepo    repository.SalaryLedgerRepository
	revenueRepo   repository.RevenueRepository
	providerRepo  repository.ProviderRepository
	batchRepo     repository.SettlementBatchRepository
	notifier      SalaryNotifier
	notifyQueue   SalaryNotificationQueue
	opts          SalarySettlementOptions

	localRun sync.Mutex
	now      func() time.Time
}

// NewSalarySettlementService 创建薪资结算服务
func NewSalarySettlementService(
	paymentRepo repository.PaymentRepository,
	deductionRepo repository.DeductionRateRepository,
	ledgerRepo repository.SalaryLedgerRepository,
	revenueRepo repository.RevenueRepository,
	providerRepo repository.ProviderRepository,
	batchRepo repository.SettlementBatchRepository,
	notifier SalaryNotifier,
	notifyQueue SalaryNotificationQueue,
	opts SalarySettlementOptions,
) *SalarySettlementService {
	return &SalarySettlementService{
		paymentRepo:   paymentRepo,
		deductionRepo: deductionRepo,
		ledgerRepo:    ledgerRepo,
		revenueRepo:   revenueRepo,
		providerRepo:  providerRepo,
		batchRepo:     batchRepo,
		notifier:      notifier,
		notifyQueue:   notifyQueue,
		opts:          opts.normalized(),
		now:           time.Now,
	}
}

// Run 执行一轮完整的薪资结算：加锁 → 建批次 → 读取扣款比例 → 汇总计算 → 逐个服务者落库 → 通知
func (s *SalarySettlementService) Run(ctx context.Context, input RunInput) (*RunSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	trigger := strings.TrimSpace(input.Trigger)
	if trigger == "" {
		trigger = constants.SettlementTriggerManual
	}
	startedAt := s.now()

	runCtx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	release, err := s.acquireRunLock(runCtx)
	if err != nil {
		return nil, err
	}
	defer release()

	batchNo := uuid.NewString()
	log := logger.ForBatch(batchNo)
	log.Infow("settlement_run_started", "trigger", trigger, "triggered_by", input.TriggeredBy)

	if stale, err := s.batchRepo.WithContext(runCtx).FailStaleRunning(startedAt.Add(-s.opts.RunTimeout), "interrupted before completion"); err != nil {
		log.Warnw("settlement_stale_batch_cleanup_failed", "error", err)
	} else if stale > 0 {
		log.Warnw("settlement_stale_batch_marked_failed", "count", stale)
	}

	batch := &models.SettlementBatch{
		BatchNo:     batchNo,
		Trigger:     trigger,
		TriggeredBy: strings.TrimSpace(input.TriggeredBy),
		Status:      constants.SettlementBatchStatusRunning,
		StartedAt:   startedAt,
	}
	if err := s.batchRepo.WithContext(runCtx).Create(batch); err != nil {
		log.Errorw("settlement_batch_create_failed", "error", err)
		return nil, fmt.Errorf("%w: create batch: %v", ErrSettlementPersistence, err)
	}

	rates, err := s.loadDeductionRates(runCtx)
	if err != nil {
		log.Errorw("settlement_deduction_rates_unavailable", "error", err)
		s.failBatch(ctx, batch, err)
		return nil, err
	}

	payments, err := s.loadSettlementPayments(runCtx)
	if err != nil {
		log.Errorw("settlement_payments_fetch_failed", "error", err)
		s.failBatch(ctx, batch, err)
		return nil, err
	}

	computation := ComputeSettlement(payments, rates)
	log.Infow("settlement_computed",
		"payments", len(payments),
		"providers", len(computation.Results),
		"skipped_payments", len(computation.Skipped),
	)

	report := s.ApplySettlement(runCtx, batch, computation)

	var runErr error
	if ctxErr := runCtx.Err(); ctxErr != nil {
		runErr = runContextError(ctxErr)
	}
	s.finalizeBatch(ctx, batch, report, runErr)

	summary := &RunSummary{
		Message:          settlementRunMessage(batch, report),
		ProviderSalaries: report.Providers,
		SkippedPayments:  report.Skipped,
		Batch:            batch,
	}
	s.cacheSummary(ctx, summary)

	metrics.ObserveSettlementRun(trigger, batch.Status, s.now().Sub(startedAt))
	metrics.AddSkippedPayments(len(report.Skipped))
	log.Infow("settlement_run_finished",
		"status", batch.Status,
		"settled", report.SettledCount,
		"failed", report.FailedCount,
		"conflicts", report.ConflictCount,
		"notify_failed", report.NotifyFailedCount,
		"total_net", batch.TotalNet.String(),
	)
	return summary, runErr
}

// ApplySettlement 逐个服务者落库结算结果并分发通知
// 单个服务者失败不影响其他服务者，所有失败记录在报告中返回。
func (s *SalarySettlementService) ApplySettlement(ctx context.Context, batch *models.SettlementBatch, computation SettlementComputation) ApplyReport {
	report := ApplyReport{
		Providers:       make([]ProviderSettlementReport, 0, len(computation.Results)),
		Skipped:         append([]SkippedPayment{}, computation.Skipped...),
		TotalEarning:    decimal.Zero,
		TotalCommission: decimal.Zero,
		TotalEPF:        decimal.Zero,
		TotalETF:        decimal.Zero,
		TotalNet:        decimal.Zero,
	}
	batchNo := ""
	if batch != nil {
		batchNo = batch.BatchNo
	}
	log := logger.ForBatch(batchNo)

	for _, providerID := range computation.ProviderIDs() {
		result := computation.Results[providerID]
		entry := newProviderSettlementReport(result)

		if err := ctx.Err(); err != nil {
			entry.Status = constants.SettlementProviderAborted
			entry.Error = runContextError(err).Error()
			report.Providers = append(report.Providers, entry)
			continue
		}

		err := s.persistProviderSettlement(ctx, batch, result)
		switch {
		case err == nil:
			entry.Status = constants.SettlementProviderSettled
		case ctx.Err() != nil:
			entry.Status = constants.SettlementProviderAborted
			entry.Error = fmt.Sprintf("%v: %v", runContextError(ctx.Err()), err)
			log.Warnw("settlement_provider_aborted", "service_provider_id", providerID, "error", err)
		case errors.Is(err, ErrSettlementConflict):
			entry.Status = constants.SettlementProviderSkippedConflict
			entry.Error = err.Error()
			log.Warnw("settlement_provider_conflict", "service_provider_id", providerID, "error", err)
		default:
			entry.Status = constants.SettlementProviderFailedPersistence
			entry.Error = err.Error()
			log.Errorw("settlement_provider_persist_failed", "service_provider_id", providerID, "error", err)
		}
		report.Providers = append(report.Providers, entry)
	}

	s.dispatchNotifications(ctx, batch, report.Providers)

	for _, entry := range report.Providers {
		metrics.IncProviderResult(entry.Status)
		switch entry.Status {
		case constants.SettlementProviderSettled, constants.SettlementProviderSettledNotificationFailed:
			report.SettledCount++
			report.TotalEarning = report.TotalEarning.Add(entry.result.TotalEarning)
			report.TotalCommission = report.TotalCommission.Add(entry.result.Commission)
			report.TotalEPF = report.TotalEPF.Add(entry.result.EPF)
			report.TotalETF = report.TotalETF.Add(entry.result.ETF)
			report.TotalNet = report.TotalNet.Add(entry.result.NetSalary)
			if entry.Status == constants.SettlementProviderSettledNotificationFailed {
				report.NotifyFailedCount++
			}
		case constants.SettlementProviderSkippedConflict:
			report.ConflictCount++
		case constants.SettlementProviderAborted:
			report.AbortedCount++
		default:
			report.FailedCount++
		}
	}
	return report
}

// persistProviderSettlement 在单个事务内标记支付已结算、追加平台收入、累加薪资台账
func (s *SalarySettlementService) persistProviderSettlement(ctx context.Context, batch *models.SettlementBatch, result SettlementResult) error {
	var batchID uint
	var batchRef *uint
	if batch != nil && batch.ID != 0 {
		batchID = batch.ID
		id := batch.ID
		batchRef = &id
	}
	settledAt := s.now()
	providerID := result.ServiceProviderID

	err := s.paymentRepo.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := s.paymentRepo.WithTx(tx).ClaimForSettlement(result.PaymentIDs, batchID, settledAt)
		if err != nil {
			return err
		}
		if claimed != int64(len(result.PaymentIDs)) {
			return fmt.Errorf("%w: claimed %d of %d payments", ErrSettlementConflict, claimed, len(result.PaymentIDs))
		}

		revenue := &models.Revenue{
			Amount:            models.NewMoneyFromDecimal(result.Commission),
			Source:            constants.RevenueSourceSalaryCommission,
			Description:       fmt.Sprintf("Commission from service provider #%d salary settlement", providerID),
			ServiceProviderID: &providerID,
			SettlementBatchID: batchRef,
			CreatedAt:         settledAt,
		}
		if err := s.revenueRepo.WithTx(tx).Create(revenue); err != nil {
			return err
		}

		return s.ledgerRepo.WithTx(tx).Increment(repository.LedgerIncrement{
			ServiceProviderID: providerID,
			EPF:               result.EPF,
			ETF:               result.ETF,
			NetSalary:         result.NetSalary,
			BatchID:           batchID,
			SettledAt:         settledAt,
		})
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSettlementConflict) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrSettlementPersistence, err)
}

// dispatchNotifications 为已落库的服务者分发通知：队列可用时入队，否则有限并发直接发送
func (s *SalarySettlementService) dispatchNotifications(ctx context.Context, batch *models.SettlementBatch, entries []ProviderSettlementReport) {
	settledIdx := make([]int, 0, len(entries))
	providerIDs := make([]uint, 0, len(entries))
	for idx := range entries {
		if entries[idx].Status != constants.SettlementProviderSettled {
			entries[idx].NotifyStatus = constants.SettlementNotifySkipped
			continue
		}
		settledIdx = append(settledIdx, idx)
		providerIDs = append(providerIDs, entries[idx].ServiceProviderID)
	}
	if len(settledIdx) == 0 {
		return
	}

	batchID, batchNo := uint(0), ""
	if batch != nil {
		batchID, batchNo = batch.ID, batch.BatchNo
	}
	log := logger.ForBatch(batchNo)

	providers := s.loadProviders(ctx, providerIDs)
	for _, idx := range settledIdx {
		if provider, ok := providers[entries[idx].ServiceProviderID]; ok {
			entries[idx].ProviderName = provider.Name
		}
	}

	direct := make([]int, 0, len(settledIdx))
	if s.opts.NotifyViaQueue && s.notifyQueue != nil && s.notifyQueue.Enabled() {
		for _, idx := range settledIdx {
			entry := &entries[idx]
			if provider, ok := providers[entry.ServiceProviderID]; !ok || strings.TrimSpace(provider.Email) == "" {
				markNotificationFailed(log, entry, ErrProviderContactMissing)
				continue
			}
			payload := buildSalaryNotificationPayload(batchID, batchNo, entry.result)
			if err := s.notifyQueue.EnqueueSalaryNotification(payload); err != nil {
				log.Warnw("settlement_notification_enqueue_failed",
					"service_provider_id", entry.ServiceProviderID,
					"error", err,
				)
				direct = append(direct, idx)
				continue
			}
			entry.NotifyStatus = constants.SettlementNotifyQueued
			metrics.IncNotification(constants.SettlementNotifyQueued)
		}
	} else {
		direct = append(direct, settledIdx...)
	}
	if len(direct) == 0 {
		return
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.opts.NotifyConcurrency)
	for _, idx := range direct {
		entry := &entries[idx]
		provider, found := providers[entry.ServiceProviderID]
		group.Go(func() error {
			var err error
			if !found || strings.TrimSpace(provider.Email) == "" {
				err = ErrProviderContactMissing
			} else {
				err = s.sendWithTimeout(groupCtx, provider.Email, s.notificationInput(batchNo, provider.Name, entry.result))
			}
			if err != nil {
				markNotificationFailed(log, entry, err)
				return nil
			}
			entry.NotifyStatus = constants.SettlementNotifySent
			metrics.IncNotification(constants.SettlementNotifySent)
			return nil
		})
	}
	_ = group.Wait()
}

// markNotificationFailed 通知失败不回滚结算，仅记录到报告
func markNotificationFailed(log *zap.SugaredLogger, entry *ProviderSettlementReport, err error) {
	entry.NotifyStatus = constants.SettlementNotifyFailed
	entry.NotifyError = fmt.Sprintf("%v: %v", ErrSettlementNotification, err)
	entry.Status = constants.SettlementProviderSettledNotificationFailed
	metrics.IncNotification(constants.SettlementNotifyFailed)
	log.Warnw("settlement_notification_failed",
		"service_provider_id", entry.ServiceProviderID,
		"error", err,
	)
}

// DeliverSalaryNotification 投递单条薪资通知（供队列消费者调用）
func (s *SalarySettlementService) DeliverSalaryNotification(ctx context.Context, payload queue.SalaryNotificationPayload) error {
	provider, err := s.providerRepo.WithContext(ctx).GetByID(payload.ServiceProviderID)
	if err != nil {
		return err
	}
	if provider == nil {
		return fmt.Errorf("%w: provider %d", ErrNotFound, payload.ServiceProviderID)
	}
	if strings.TrimSpace(provider.Email) == "" {
		return ErrProviderContactMissing
	}
	result := SettlementResult{
		ServiceProviderID: provider.ID,
		TotalEarning:      parseDecimalOrZero(payload.TotalEarning),
		Commission:        parseDecimalOrZero(payload.Commission),
		EPF:               parseDecimalOrZero(payload.EPF),
		ETF:               parseDecimalOrZero(payload.ETF),
		NetSalary:         parseDecimalOrZero(payload.NetSalary),
	}
	if err := s.sendWithTimeout(ctx, provider.Email, s.notificationInput(payload.BatchNo, provider.Name, result)); err != nil {
		metrics.IncNotification(constants.SettlementNotifyFailed)
		return fmt.Errorf("%w: %v", ErrSettlementNotification, err)
	}
	metrics.IncNotification(constants.SettlementNotifySent)
	return nil
}

// sendWithTimeout 单次发送受 CallTimeout 约束，超时后不再等待发送方返回
func (s *SalarySettlementService) sendWithTimeout(ctx context.Context, email string, input SalaryNotificationInput) error {
	if s.notifier == nil {
		return ErrEmailServiceDisabled
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.notifier.SendSalaryNotification(callCtx, email, input)
	}()
	select {
	case err := <-done:
		if err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrNotificationTimeout, err)
		}
		return err
	case <-callCtx.Done():
		return fmt.Errorf("%w: %v", ErrNotificationTimeout, callCtx.Err())
	}
}

func (s *SalarySettlementService) notificationInput(batchNo, providerName string, result SettlementResult) SalaryNotificationInput {
	return SalaryNotificationInput{
		ProviderName: providerName,
		BatchNo:      batchNo,
		Currency:     s.opts.Currency,
		TotalEarning: models.NewMoneyFromDecimal(result.TotalEarning),
		Commission:   models.NewMoneyFromDecimal(result.Commission),
		EPF:          models.NewMoneyFromDecimal(result.EPF),
		ETF:          models.NewMoneyFromDecimal(result.ETF),
		NetSalary:    models.NewMoneyFromDecimal(result.NetSalary),
	}
}

func (s *SalarySettlementService) loadProviders(ctx context.Context, ids []uint) map[uint]models.ServiceProvider {
	result := make(map[uint]models.ServiceProvider, len(ids))
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	providers, err := s.providerRepo.WithContext(callCtx).GetByIDs(ids)
	if err != nil {
		logger.Warnw("settlement_provider_lookup_failed", "count", len(ids), "error", err)
		return result
	}
	for _, provider := range providers {
		result[provider.ID] = provider
	}
	return result
}

func (s *SalarySettlementService) loadDeductionRates(ctx context.Context) (DeductionRates, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	rows, err := s.deductionRepo.WithContext(callCtx).List()
	if err != nil {
		if ctxErr := callCtx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("deduction rates: %w", runContextError(ctxErr))
		}
		return nil, fmt.Errorf("%w: %v", ErrSettlementConfigUnavailable, err)
	}
	return DeductionRatesFromRows(rows), nil
}

func (s *SalarySettlementService) loadSettlementPayments(ctx context.Context) ([]SettlementPayment, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	rows, err := s.paymentRepo.WithContext(callCtx).ListUnsettledCompleted()
	if err != nil {
		if ctxErr := callCtx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("payments: %w", runContextError(ctxErr))
		}
		return nil, fmt.Errorf("%w: %v", ErrSettlementPaymentsFetch, err)
	}
	return settlementPaymentsFromRows(rows), nil
}

// acquireRunLock 优先使用 Redis 分布式锁，Redis 不可用时退化为进程内互斥
func (s *SalarySettlementService) acquireRunLock(ctx context.Context) (func(), error) {
	lock, err := cache.AcquireLock(ctx, constants.SettlementRunLockKey, s.opts.LockTTL)
	if err == nil {
		if lock == nil {
			return nil, ErrSettlementRunInProgress
		}
		return func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settlementFinalizeTimeout)
			defer cancel()
			if err := cache.ReleaseLock(releaseCtx, lock); err != nil {
				logger.Warnw("settlement_run_lock_release_failed", "key", lock.Key(), "error", err)
			}
		}, nil
	}
	if !errors.Is(err, cache.ErrLockUnavailable) {
		logger.Warnw("settlement_run_lock_redis_failed", "error", err)
	}
	if !s.localRun.TryLock() {
		return nil, ErrSettlementRunInProgress
	}
	return s.localRun.Unlock, nil
}

func (s *SalarySettlementService) failBatch(ctx context.Context, batch *models.SettlementBatch, cause error) {
	finishedAt := s.now()
	batch.Status = constants.SettlementBatchStatusFailed
	batch.Error = cause.Error()
	batch.FinishedAt = &finishedAt
	s.saveBatch(ctx, batch)
	s.dropCachedSummary(ctx)
	metrics.ObserveSettlementRun(batch.Trigger, batch.Status, finishedAt.Sub(batch.StartedAt))
}

func (s *SalarySettlementService) finalizeBatch(ctx context.Context, batch *models.SettlementBatch, report ApplyReport, runErr error) {
	finishedAt := s.now()
	batch.ProviderCount = len(report.Providers)
	batch.SettledCount = report.SettledCount
	batch.FailedCount = report.FailedCount + report.AbortedCount
	batch.ConflictCount = report.ConflictCount
	batch.SkippedPayments = len(report.Skipped)
	batch.NotifyFailed = report.NotifyFailedCount
	batch.TotalEarning = models.NewMoneyFromDecimal(report.TotalEarning)
	batch.TotalCommission = models.NewMoneyFromDecimal(report.TotalCommission)
	batch.TotalEPF = models.NewMoneyFromDecimal(report.TotalEPF)
	batch.TotalETF = models.NewMoneyFromDecimal(report.TotalETF)
	batch.TotalNet = models.NewMoneyFromDecimal(report.TotalNet)
	batch.Report = models.JSON{
		"providers": report.Providers,
		"skipped":   report.Skipped,
	}
	batch.Status = resolveBatchStatus(report)
	if runErr != nil {
		batch.Error = runErr.Error()
		if batch.Status == constants.SettlementBatchStatusCompleted {
			batch.Status = constants.SettlementBatchStatusPartial
		}
	}
	batch.FinishedAt = &finishedAt
	s.saveBatch(ctx, batch)
}

func (s *SalarySettlementService) saveBatch(ctx context.Context, batch *models.SettlementBatch) {
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settlementFinalizeTimeout)
	defer cancel()
	if err := s.batchRepo.WithContext(saveCtx).Update(batch); err != nil {
		logger.ForBatch(batch.BatchNo).Errorw("settlement_batch_update_failed", "status", batch.Status, "error", err)
	}
}

func (s *SalarySettlementService) cacheSummary(ctx context.Context, summary *RunSummary) {
	if !cache.Enabled() || summary == nil {
		return
	}
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CallTimeout)
	defer cancel()
	if err := cache.SetJSON(cacheCtx, settlementSummaryCacheKey, summary, settlementSummaryCacheTTL); err != nil {
		logger.Warnw("settlement_summary_cache_failed", "error", err)
	}
}

// dropCachedSummary 运行中止时清除旧汇总，使 LatestSummary 回落到批次记录
func (s *SalarySettlementService) dropCachedSummary(ctx context.Context) {
	if !cache.Enabled() {
		return
	}
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CallTimeout)
	defer cancel()
	if err := cache.Del(cacheCtx, settlementSummaryCacheKey); err != nil {
		logger.Warnw("settlement_summary_cache_drop_failed", "error", err)
	}
}

// LatestSummary 获取最近一次结算汇总（优先读取缓存）
func (s *SalarySettlementService) LatestSummary(ctx context.Context) (*RunSummary, error) {
	var cached RunSummary
	if found, err := cache.GetJSON(ctx, settlementSummaryCacheKey, &cached); err != nil {
		logger.Warnw("settlement_summary_cache_read_failed", "error", err)
	} else if found {
		return &cached, nil
	}
	batch, err := s.batchRepo.WithContext(ctx).GetLatest()
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, ErrNotFound
	}
	return &RunSummary{
		Message: settlementRunMessage(batch, ApplyReport{SettledCount: batch.SettledCount}),
		Batch:   batch,
	}, nil
}

// runContextError 区分运行超时与调用方取消
func runContextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrSettlementTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrSettlementCanceled, err)
}

func resolveBatchStatus(report ApplyReport) string {
	unsettled := report.FailedCount + report.ConflictCount + report.AbortedCount
	switch {
	case unsettled == 0:
		return constants.SettlementBatchStatusCompleted
	case report.SettledCount == 0:
		return constants.SettlementBatchStatusFailed
	default:
		return constants.SettlementBatchStatusPartial
	}
}

func settlementRunMessage(batch *models.SettlementBatch, report ApplyReport) string {
	if batch == nil {
		return "Salary settlement finished"
	}
	switch batch.Status {
	case constants.SettlementBatchStatusCompleted:
		if batch.ProviderCount == 0 && report.SettledCount == 0 {
			return "No unsettled completed payments to settle"
		}
		return "Salaries calculated and updated successfully"
	case constants.SettlementBatchStatusPartial:
		return "Salaries settled with partial failures"
	default:
		return "Salary settlement failed"
	}
}

func newProviderSettlementReport(result SettlementResult) ProviderSettlementReport {
	return ProviderSettlementReport{
		ServiceProviderID: result.ServiceProviderID,
		PaymentCount:      len(result.PaymentIDs),
		TotalEarning:      models.NewMoneyFromDecimal(result.TotalEarning),
		CommissionRate:    models.NewRateFromDecimal(result.CommissionRate),
		DefaultCommission: result.DefaultCommission,
		Commission:        models.NewMoneyFromDecimal(result.Commission),
		EPF:               models.NewMoneyFromDecimal(result.EPF),
		ETF:               models.NewMoneyFromDecimal(result.ETF),
		NetSalary:         models.NewMoneyFromDecimal(result.NetSalary),
		NotifyStatus:      constants.SettlementNotifySkipped,
		result:            result,
	}
}

func buildSalaryNotificationPayload(batchID uint, batchNo string, result SettlementResult) queue.SalaryNotificationPayload {
	return queue.SalaryNotificationPayload{
		ServiceProviderID: result.ServiceProviderID,
		BatchID:           batchID,
		BatchNo:           batchNo,
		NetSalary:         result.NetSalary.StringFixed(2),
		TotalEarning:      result.TotalEarning.StringFixed(2),
		Commission:        result.Commission.StringFixed(2),
		EPF:               result.EPF.StringFixed(2),
		ETF:               result.ETF.StringFixed(2),
	}
}

func parseDecimalOrZero(raw string) decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return value
}
