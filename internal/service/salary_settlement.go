package service

import (
	"sort"

	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/models"
	"github.com/carenest-next/internal/repository"

	"github.com/shopspring/decimal"
)

// DefaultCommissionRatePercent 服务项目未配置佣金比例时使用的默认值（百分比）
const DefaultCommissionRatePercent = 10

// 无法归属服务者的原因
const (
	SkipReasonBookingNotFound    = "booking_not_found"
	SkipReasonProviderUnassigned = "provider_unassigned"
	SkipReasonProviderNotFound   = "provider_not_found"
)

const settlementAmountScale = 2

var hundred = decimal.NewFromInt(100)

// SettlementPayment 参与结算的单笔支付
// ServiceProviderID 为空表示归属链路无法解析，SkipReason 给出原因。
type SettlementPayment struct {
	PaymentID             uint
	BookingID             uint
	ServiceProviderID     *uint
	Amount                decimal.Decimal
	CommissionRatePercent *decimal.Decimal
	SkipReason            string
}

// DeductionRates 扣款比例表（小数形式），缺失的类型按 0 处理
type DeductionRates map[string]decimal.Decimal

// Rate 获取指定类型的比例
func (r DeductionRates) Rate(kind string) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	rate, ok := r[kind]
	if !ok {
		return decimal.Zero
	}
	return rate
}

// SettlementResult 单个服务者的本轮结算结果
type SettlementResult struct {
	ServiceProviderID uint            `json:"service_provider_id"`
	PaymentIDs        []uint          `json:"payment_ids"`
	TotalEarning      decimal.Decimal `json:"total_earning"`
	CommissionRate    decimal.Decimal `json:"commission_rate"`
	DefaultCommission bool            `json:"default_commission"`
	Commission        decimal.Decimal `json:"commission"`
	EPF               decimal.Decimal `json:"epf"`
	ETF               decimal.Decimal `json:"etf"`
	NetSalary         decimal.Decimal `json:"net_salary"`
}

// SkippedPayment 无法归属服务者而跳过的支付
type SkippedPayment struct {
	PaymentID uint   `json:"payment_id"`
	BookingID uint   `json:"booking_id"`
	Reason    string `json:"reason"`
	Status    string `json:"status"`
}

// SettlementComputation 一轮结算的计算结果
type SettlementComputation struct {
	Results map[uint]SettlementResult
	Skipped []SkippedPayment
}

// ProviderIDs 按升序返回参与结算的服务者
func (c SettlementComputation) ProviderIDs() []uint {
	ids := make([]uint, 0, len(c.Results))
	for id := range c.Results {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

type providerAccumulator struct {
	paymentIDs  []uint
	total       decimal.Decimal
	ratePercent *decimal.Decimal
}

// ComputeSettlement 按服务者汇总已完成支付并计算佣金、EPF、ETF 与净薪资
// 纯函数：不修改入参，每次调用返回新的结果。
// commission、epf、etf 各自保留两位小数，净薪资取差额，保证四项之和严格等于总收入。
func ComputeSettlement(payments []SettlementPayment, rates DeductionRates) SettlementComputation {
	groups := make(map[uint]*providerAccumulator)
	skipped := make([]SkippedPayment, 0)

	for _, payment := range payments {
		if payment.ServiceProviderID == nil || *payment.ServiceProviderID == 0 {
			reason := payment.SkipReason
			if reason == "" {
				reason = SkipReasonProviderNotFound
			}
			skipped = append(skipped, SkippedPayment{
				PaymentID: payment.PaymentID,
				BookingID: payment.BookingID,
				Reason:    reason,
				Status:    constants.SettlementPaymentSkippedResolution,
			})
			continue
		}
		providerID := *payment.ServiceProviderID
		acc, ok := groups[providerID]
		if !ok {
			acc = &providerAccumulator{total: decimal.Zero}
			groups[providerID] = acc
		}
		acc.paymentIDs = append(acc.paymentIDs, payment.PaymentID)
		acc.total = acc.total.Add(payment.Amount)
		if acc.ratePercent == nil && payment.CommissionRatePercent != nil {
			rate := *payment.CommissionRatePercent
			acc.ratePercent = &rate
		}
	}

	epfRate := rates.Rate(constants.DeductionTypeEPF)
	etfRate := rates.Rate(constants.DeductionTypeETF)

	results := make(map[uint]SettlementResult, len(groups))
	for providerID, acc := range groups {
		commissionRate, isDefault := resolveCommissionRate(acc.ratePercent)
		total := acc.total.Round(settlementAmountScale)
		commission := total.Mul(commissionRate).Round(settlementAmountScale)
		base := total.Sub(commission)
		epf := base.Mul(epfRate).Round(settlementAmountScale)
		etf := base.Mul(etfRate).Round(settlementAmountScale)
		net := total.Sub(commission).Sub(epf).Sub(etf)

		paymentIDs := append([]uint(nil), acc.paymentIDs...)
		sort.Slice(paymentIDs, func(i, j int) bool { return paymentIDs[i] < paymentIDs[j] })

		results[providerID] = SettlementResult{
			ServiceProviderID: providerID,
			PaymentIDs:        paymentIDs,
			TotalEarning:      total,
			CommissionRate:    commissionRate,
			DefaultCommission: isDefault,
			Commission:        commission,
			EPF:               epf,
			ETF:               etf,
			NetSalary:         net,
		}
	}

	sort.Slice(skipped, func(i, j int) bool { return skipped[i].PaymentID < skipped[j].PaymentID })
	return SettlementComputation{Results: results, Skipped: skipped}
}

// resolveCommissionRate 将整数百分比转换为小数，缺失或越界时回落到默认值
func resolveCommissionRate(percent *decimal.Decimal) (decimal.Decimal, bool) {
	if percent == nil || percent.IsNegative() || percent.GreaterThan(hundred) {
		return decimal.NewFromInt(DefaultCommissionRatePercent).Div(hundred), true
	}
	return percent.Div(hundred), false
}

// DeductionRatesFromRows 由扣款比例记录构建比例表
func DeductionRatesFromRows(rows []models.DeductionRate) DeductionRates {
	rates := make(DeductionRates, len(rows))
	for _, row := range rows {
		rates[row.Type] = row.Rate.Decimal
	}
	return rates
}

// settlementPaymentsFromRows 将仓储查询结果转换为结算输入，并标注无法归属的原因
func settlementPaymentsFromRows(rows []repository.SettlementPaymentRow) []SettlementPayment {
	payments := make([]SettlementPayment, 0, len(rows))
	for _, row := range rows {
		payment := SettlementPayment{
			PaymentID: row.PaymentID,
			BookingID: row.BookingID,
			Amount:    row.Amount,
		}
		switch {
		case row.BookingRef == nil:
			payment.SkipReason = SkipReasonBookingNotFound
		case row.BookingProviderID == nil || *row.BookingProviderID == 0:
			payment.SkipReason = SkipReasonProviderUnassigned
		case row.ServiceProviderID == nil:
			payment.SkipReason = SkipReasonProviderNotFound
		default:
			providerID := *row.ServiceProviderID
			payment.ServiceProviderID = &providerID
		}
		if row.CommissionRate.Valid {
			rate := row.CommissionRate.Decimal
			payment.CommissionRatePercent = &rate
		}
		payments = append(payments, payment)
	}
	return payments
}
