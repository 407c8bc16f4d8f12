package admin

import (
	"github.com/carenest-next/internal/http/response"
	"github.com/carenest-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type deductionRatePayload struct {
	Rate        *decimal.Decimal `json:"rate"`
	Description string           `json:"description"`
}

// ListDeductionRates 获取扣款比例表
func (h *Handler) ListDeductionRates(c *gin.Context) {
	rates, err := h.DeductionRateService.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "deduction rate fetch failed")
		return
	}
	response.Success(c, rates)
}

// UpsertDeductionRate 新增或更新扣款比例
func (h *Handler) UpsertDeductionRate(c *gin.Context) {
	var payload deductionRatePayload
	if err := c.ShouldBindJSON(&payload); err != nil || payload.Rate == nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	rate, err := h.DeductionRateService.Upsert(c.Request.Context(), service.DeductionRateInput{
		Type:        c.Param("type"),
		Rate:        *payload.Rate,
		Description: payload.Description,
	})
	if err != nil {
		respondServiceError(c, err, "deduction rate save failed")
		return
	}
	if adminID, ok := c.Get("admin_id"); ok {
		requestLog(c).Infow("admin_deduction_rate_updated", "admin_id", adminID, "type", rate.Type, "rate", rate.Rate)
	}
	response.Success(c, rate)
}
