package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/http/response"
	"github.com/carenest-next/internal/queue"
	"github.com/carenest-next/internal/repository"
	"github.com/carenest-next/internal/service"

	"github.com/gin-gonic/gin"
)

// RunSettlement 手动触发一轮薪资结算（async=true 时投递到队列由 worker 执行）
func (h *Handler) RunSettlement(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	triggeredBy := strings.TrimSpace(c.GetString("username"))
	if triggeredBy == "" {
		triggeredBy = fmt.Sprintf("admin:%d", adminID)
	}
	if async, _ := strconv.ParseBool(strings.TrimSpace(c.Query("async"))); async {
		h.enqueueSettlementRun(c, adminID, triggeredBy)
		return
	}

	// 结算一旦开始不随请求断开而中止，由 RunTimeout 约束
	summary, err := h.SalarySettlementService.Run(context.WithoutCancel(c.Request.Context()), service.RunInput{
		Trigger:     constants.SettlementTriggerManual,
		TriggeredBy: triggeredBy,
	})
	if err != nil {
		code, msg := mapServiceError(err, "salary settlement failed")
		if summary != nil {
			respondErrorWithData(c, code, msg, summary, err)
			return
		}
		if errors.Is(err, service.ErrSettlementRunInProgress) {
			respondError(c, code, msg, nil)
			return
		}
		respondError(c, code, msg, err)
		return
	}
	requestLog(c).Infow("admin_settlement_run_finished",
		"admin_id", adminID,
		"batch_no", summary.Batch.BatchNo,
		"status", summary.Batch.Status,
	)
	response.SuccessWithMsg(c, summary.Message, summary)
}

func (h *Handler) enqueueSettlementRun(c *gin.Context, adminID uint, triggeredBy string) {
	if !h.QueueClient.Enabled() {
		response.BadRequest(c, "async settlement requires the task queue")
		return
	}
	err := h.QueueClient.EnqueueSalarySettlementRun(queue.SalarySettlementRunPayload{
		Trigger:     constants.SettlementTriggerManual,
		TriggeredBy: triggeredBy,
	})
	switch {
	case err == nil:
	case errors.Is(err, queue.ErrSettlementRunQueued):
		respondError(c, response.CodeConflict, "a settlement run is already queued", nil)
		return
	default:
		respondError(c, response.CodeInternal, "settlement run enqueue failed", err)
		return
	}
	requestLog(c).Infow("admin_settlement_run_queued", "admin_id", adminID, "triggered_by", triggeredBy)
	response.SuccessWithMsg(c, "Settlement run queued", gin.H{"queued": true})
}

// GetLatestSettlementSummary 获取最近一次结算汇总
func (h *Handler) GetLatestSettlementSummary(c *gin.Context) {
	summary, err := h.SalarySettlementService.LatestSummary(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "settlement summary fetch failed")
		return
	}
	response.Success(c, summary)
}

// ListSettlementBatches 获取结算批次列表
func (h *Handler) ListSettlementBatches(c *gin.Context) {
	page, pageSize := parsePagination(c)
	createdFrom, err := parseTimeNullable(strings.TrimSpace(c.Query("created_from")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_from", nil)
		return
	}
	createdTo, err := parseTimeNullable(strings.TrimSpace(c.Query("created_to")))
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid created_to", nil)
		return
	}

	batches, total, err := h.SettlementBatchService.List(c.Request.Context(), repository.SettlementBatchListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      c.Query("status"),
		Trigger:     c.Query("trigger"),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondServiceError(c, err, "settlement batch fetch failed")
		return
	}
	response.SuccessWithPage(c, batches, response.BuildPagination(page, pageSize, total))
}

// GetSettlementBatch 获取结算批次详情
func (h *Handler) GetSettlementBatch(c *gin.Context) {
	id, ok := parsePathUint(c, "id")
	if !ok {
		respondError(c, response.CodeBadRequest, "invalid settlement batch id", nil)
		return
	}
	batch, err := h.SettlementBatchService.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err, "settlement batch fetch failed")
		return
	}
	response.Success(c, batch)
}
