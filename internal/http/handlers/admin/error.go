package admin

import (
	"errors"

	handlershared "github.com/carenest-next/internal/http/handlers/shared"
	"github.com/carenest-next/internal/http/response"
	"github.com/carenest-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondErrorWithData(c *gin.Context, code int, msg string, data interface{}, err error) {
	handlershared.RespondErrorWithData(c, code, msg, data, err)
}

// mapServiceError 将 service 层错误映射为业务状态码与提示
func mapServiceError(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return response.CodeNotFound, "resource not found"
	case errors.Is(err, service.ErrInvalidFilter):
		return response.CodeBadRequest, "invalid query parameters"
	case errors.Is(err, service.ErrDeductionRateInvalid):
		return response.CodeBadRequest, "deduction rate must be between 0 and 1 with at most 4 decimal places"
	case errors.Is(err, service.ErrDeductionTypeInvalid):
		return response.CodeBadRequest, "deduction type invalid"
	case errors.Is(err, service.ErrSettlementRunInProgress):
		return response.CodeConflict, "a settlement run is already in progress"
	case errors.Is(err, service.ErrSettlementConfigUnavailable):
		return response.CodeInternal, "deduction rates unavailable, settlement aborted"
	case errors.Is(err, service.ErrSettlementTimeout):
		return response.CodeServiceTimeout, "settlement run timed out"
	case errors.Is(err, service.ErrSettlementCanceled):
		return response.CodeInternal, "settlement run canceled"
	default:
		return response.CodeInternal, fallback
	}
}

func respondServiceError(c *gin.Context, err error, fallback string) {
	code, msg := mapServiceError(err, fallback)
	var logged error
	if code >= response.CodeInternal {
		logged = err
	}
	respondError(c, code, msg, logged)
}
