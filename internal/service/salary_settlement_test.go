package service

import (
	"testing"

	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/models"
	"github.com/carenest-next/internal/repository"

	"github.com/shopspring/decimal"
)

func uintPtr(v uint) *uint {
	return &v
}

func decimalPtr(raw string) *decimal.Decimal {
	d := decimal.RequireFromString(raw)
	return &d
}

func standardDeductionRates() DeductionRates {
	return DeductionRates{
		constants.DeductionTypeEPF: decimal.RequireFromString("0.08"),
		constants.DeductionTypeETF: decimal.RequireFromString("0.03"),
	}
}

func assertDecimal(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s want %s got %s", field, want, got.String())
	}
}

func TestComputeSettlementAppliesServiceCommission(t *testing.T) {
	payments := []SettlementPayment{
		{PaymentID: 1, BookingID: 11, ServiceProviderID: uintPtr(7), Amount: decimal.RequireFromString("3000"), CommissionRatePercent: decimalPtr("15")},
		{PaymentID: 2, BookingID: 12, ServiceProviderID: uintPtr(7), Amount: decimal.RequireFromString("1500"), CommissionRatePercent: decimalPtr("15")},
	}

	computation := ComputeSettlement(payments, standardDeductionRates())
	if len(computation.Results) != 1 {
		t.Fatalf("expected one provider result, got %d", len(computation.Results))
	}
	result, ok := computation.Results[7]
	if !ok {
		t.Fatalf("expected result for provider 7")
	}
	assertDecimal(t, "total_earning", result.TotalEarning, "4500")
	assertDecimal(t, "commission_rate", result.CommissionRate, "0.15")
	assertDecimal(t, "commission", result.Commission, "675")
	assertDecimal(t, "epf", result.EPF, "306")
	assertDecimal(t, "etf", result.ETF, "114.75")
	assertDecimal(t, "net_salary", result.NetSalary, "3404.25")
	if result.DefaultCommission {
		t.Fatalf("expected service commission to be used")
	}
	if len(result.PaymentIDs) != 2 || result.PaymentIDs[0] != 1 || result.PaymentIDs[1] != 2 {
		t.Fatalf("unexpected payment ids: %v", result.PaymentIDs)
	}
}

func TestComputeSettlementFallsBackToDefaultCommission(t *testing.T) {
	cases := []struct {
		name    string
		percent *decimal.Decimal
	}{
		{name: "missing", percent: nil},
		{name: "negative", percent: decimalPtr("-5")},
		{name: "above_hundred", percent: decimalPtr("150")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payments := []SettlementPayment{
				{PaymentID: 1, ServiceProviderID: uintPtr(3), Amount: decimal.RequireFromString("1000"), CommissionRatePercent: tc.percent},
			}
			result := ComputeSettlement(payments, standardDeductionRates()).Results[3]
			if !result.DefaultCommission {
				t.Fatalf("expected default commission flag")
			}
			assertDecimal(t, "commission", result.Commission, "100")
			assertDecimal(t, "epf", result.EPF, "72")
			assertDecimal(t, "etf", result.ETF, "27")
			assertDecimal(t, "net_salary", result.NetSalary, "801")
		})
	}
}

func TestComputeSettlementMissingRatesDefaultToZero(t *testing.T) {
	payments := []SettlementPayment{
		{PaymentID: 1, ServiceProviderID: uintPtr(4), Amount: decimal.RequireFromString("200"), CommissionRatePercent: decimalPtr("20")},
	}
	result := ComputeSettlement(payments, DeductionRates{constants.DeductionTypeEPF: decimal.RequireFromString("0.08")}).Results[4]
	assertDecimal(t, "etf", result.ETF, "0")
	assertDecimal(t, "epf", result.EPF, "12.8")
	assertDecimal(t, "net_salary", result.NetSalary, "147.2")

	empty := ComputeSettlement(payments, nil).Results[4]
	assertDecimal(t, "epf", empty.EPF, "0")
	assertDecimal(t, "net_salary", empty.NetSalary, "160")
}

func TestComputeSettlementComponentsSumToTotal(t *testing.T) {
	rates := DeductionRates{
		constants.DeductionTypeEPF: decimal.RequireFromString("0.0833"),
		constants.DeductionTypeETF: decimal.RequireFromString("0.0317"),
	}
	amounts := []string{"0.01", "0.07", "1.13", "99.99", "333.33", "1234.57", "98765.43"}
	for idx, amount := range amounts {
		payments := []SettlementPayment{
			{PaymentID: uint(idx + 1), ServiceProviderID: uintPtr(1), Amount: decimal.RequireFromString(amount), CommissionRatePercent: decimalPtr("13")},
			{PaymentID: uint(idx + 100), ServiceProviderID: uintPtr(1), Amount: decimal.RequireFromString("0.33")},
		}
		result := ComputeSettlement(payments, rates).Results[1]
		sum := result.Commission.Add(result.EPF).Add(result.ETF).Add(result.NetSalary)
		if !sum.Equal(result.TotalEarning) {
			t.Fatalf("amount %s: components %s do not sum to total %s", amount, sum.String(), result.TotalEarning.String())
		}
		if result.NetSalary.IsNegative() {
			t.Fatalf("amount %s: negative net salary %s", amount, result.NetSalary.String())
		}
	}
}

func TestComputeSettlementGroupsByProviderAndSkipsUnresolved(t *testing.T) {
	payments := []SettlementPayment{
		{PaymentID: 5, ServiceProviderID: uintPtr(2), Amount: decimal.RequireFromString("100.10")},
		{PaymentID: 1, ServiceProviderID: uintPtr(1), Amount: decimal.RequireFromString("50")},
		{PaymentID: 3, BookingID: 30, SkipReason: SkipReasonProviderUnassigned, Amount: decimal.RequireFromString("999")},
		{PaymentID: 2, ServiceProviderID: uintPtr(2), Amount: decimal.RequireFromString("49.90")},
		{PaymentID: 4, BookingID: 40, Amount: decimal.RequireFromString("10")},
	}

	computation := ComputeSettlement(payments, standardDeductionRates())
	if len(computation.Results) != 2 {
		t.Fatalf("expected two providers, got %d", len(computation.Results))
	}
	assertDecimal(t, "provider_2_total", computation.Results[2].TotalEarning, "150")
	assertDecimal(t, "provider_1_total", computation.Results[1].TotalEarning, "50")

	ids := computation.ProviderIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("unexpected provider order: %v", ids)
	}

	if len(computation.Skipped) != 2 {
		t.Fatalf("expected two skipped payments, got %d", len(computation.Skipped))
	}
	if computation.Skipped[0].PaymentID != 3 || computation.Skipped[0].Reason != SkipReasonProviderUnassigned {
		t.Fatalf("unexpected first skipped payment: %+v", computation.Skipped[0])
	}
	if computation.Skipped[1].Reason != SkipReasonProviderNotFound {
		t.Fatalf("expected default skip reason, got %s", computation.Skipped[1].Reason)
	}
	for _, skipped := range computation.Skipped {
		if skipped.Status != constants.SettlementPaymentSkippedResolution {
			t.Fatalf("unexpected skipped status: %s", skipped.Status)
		}
	}
}

func TestComputeSettlementIsPureAndRepeatable(t *testing.T) {
	payments := []SettlementPayment{
		{PaymentID: 2, ServiceProviderID: uintPtr(9), Amount: decimal.RequireFromString("10"), CommissionRatePercent: decimalPtr("12")},
		{PaymentID: 1, ServiceProviderID: uintPtr(9), Amount: decimal.RequireFromString("20")},
	}
	rates := standardDeductionRates()

	first := ComputeSettlement(payments, rates)
	second := ComputeSettlement(payments, rates)

	if payments[0].PaymentID != 2 || !payments[0].Amount.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("input payments mutated: %+v", payments[0])
	}
	a, b := first.Results[9], second.Results[9]
	if !a.NetSalary.Equal(b.NetSalary) || !a.Commission.Equal(b.Commission) {
		t.Fatalf("results differ between runs: %+v vs %+v", a, b)
	}
	a.PaymentIDs[0] = 999
	if second.Results[9].PaymentIDs[0] == 999 {
		t.Fatalf("results share payment id slices")
	}
}

func TestComputeSettlementEmptyInput(t *testing.T) {
	computation := ComputeSettlement(nil, standardDeductionRates())
	if len(computation.Results) != 0 || len(computation.Skipped) != 0 {
		t.Fatalf("expected empty computation, got %+v", computation)
	}
}

func TestDeductionRatesFromRows(t *testing.T) {
	rates := DeductionRatesFromRows([]models.DeductionRate{
		{Type: constants.DeductionTypeEPF, Rate: models.NewRateFromDecimal(decimal.RequireFromString("0.08"))},
		{Type: constants.DeductionTypeETF, Rate: models.NewRateFromDecimal(decimal.RequireFromString("0.03"))},
	})
	assertDecimal(t, "epf", rates.Rate(constants.DeductionTypeEPF), "0.08")
	assertDecimal(t, "etf", rates.Rate(constants.DeductionTypeETF), "0.03")
	assertDecimal(t, "unknown", rates.Rate("GRATUITY"), "0")
}

func TestSettlementPaymentsFromRowsMarksResolutionFailures(t *testing.T) {
	rows := []repository.SettlementPaymentRow{
		{PaymentID: 1, BookingID: 10, BookingRef: uintPtr(10), BookingProviderID: uintPtr(5), ServiceProviderID: uintPtr(5), Amount: decimal.RequireFromString("10"), CommissionRate: decimal.NewNullDecimal(decimal.RequireFromString("15"))},
		{PaymentID: 2, BookingID: 20, Amount: decimal.RequireFromString("10")},
		{PaymentID: 3, BookingID: 30, BookingRef: uintPtr(30), Amount: decimal.RequireFromString("10")},
		{PaymentID: 4, BookingID: 40, BookingRef: uintPtr(40), BookingProviderID: uintPtr(77), Amount: decimal.RequireFromString("10")},
	}
	payments := settlementPaymentsFromRows(rows)
	if len(payments) != 4 {
		t.Fatalf("expected four payments, got %d", len(payments))
	}
	if payments[0].ServiceProviderID == nil || *payments[0].ServiceProviderID != 5 {
		t.Fatalf("expected resolved provider for first payment")
	}
	if payments[0].CommissionRatePercent == nil || !payments[0].CommissionRatePercent.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("expected commission rate 15 for first payment")
	}
	wantReasons := []string{"", SkipReasonBookingNotFound, SkipReasonProviderUnassigned, SkipReasonProviderNotFound}
	for idx, want := range wantReasons {
		if payments[idx].SkipReason != want {
			t.Fatalf("payment %d skip reason want %q got %q", idx, want, payments[idx].SkipReason)
		}
	}
}
