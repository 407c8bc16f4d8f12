package admin

import (
	"strings"

	"github.com/carenest-next/internal/http/response"
	"github.com/carenest-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListSalaryLedgers 获取服务者薪资台账列表
func (h *Handler) ListSalaryLedgers(c *gin.Context) {
	page, pageSize := parsePagination(c)
	providerID, err := parseQueryUint(c, "service_provider_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid service_provider_id", nil)
		return
	}

	ledgers, total, err := h.SalaryLedgerService.ListSalaryLedgers(c.Request.Context(), repository.SalaryLedgerListFilter{
		Page:              page,
		PageSize:          pageSize,
		ServiceProviderID: providerID,
		Search:            strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondServiceError(c, err, "salary ledger fetch failed")
		return
	}
	response.SuccessWithPage(c, ledgers, response.BuildPagination(page, pageSize, total))
}

// GetSalaryLedger 获取单个服务者的薪资台账
func (h *Handler) GetSalaryLedger(c *gin.Context) {
	providerID, ok := parsePathUint(c, "provider_id")
	if !ok {
		respondError(c, response.CodeBadRequest, "invalid provider id", nil)
		return
	}
	ledger, err := h.SalaryLedgerService.GetSalaryLedger(c.Request.Context(), providerID)
	if err != nil {
		respondServiceError(c, err, "salary ledger fetch failed")
		return
	}
	response.Success(c, ledger)
}

// ListRevenues 获取平台佣金收入流水
func (h *Handler) ListRevenues(c *gin.Context) {
	page, pageSize := parsePagination(c)
	providerID, err := parseQueryUint(c, "service_provider_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid service_provider_id", nil)
		return
	}
	batchID, err := parseQueryUint(c, "settlement_batch_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid settlement_batch_id", nil)
		return
	}
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

	result, err := h.SalaryLedgerService.ListRevenues(c.Request.Context(), repository.RevenueListFilter{
		Page:              page,
		PageSize:          pageSize,
		Source:            strings.TrimSpace(c.Query("source")),
		ServiceProviderID: providerID,
		SettlementBatchID: batchID,
		CreatedFrom:       createdFrom,
		CreatedTo:         createdTo,
	})
	if err != nil {
		respondServiceError(c, err, "revenue fetch failed")
		return
	}
	response.SuccessWithPage(c, gin.H{
		"items":        result.Items,
		"total_amount": result.TotalAmount,
	}, response.BuildPagination(page, pageSize, result.Total))
}
