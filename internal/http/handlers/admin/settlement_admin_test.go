package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/carenest-next/internal/authz"
	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/models"
	"github.com/carenest-next/internal/provider"
	"github.com/carenest-next/internal/repository"
	"github.com/carenest-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) SendSalaryNotification(_ context.Context, email string, _ service.SalaryNotificationInput) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, email)
	return nil
}

type adminEnvelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
	Pagination struct {
		Total int64 `json:"total"`
	} `json:"pagination"`
}

func setupSettlementHandlerTest(t *testing.T) (*gin.Engine, *gorm.DB, *recordingNotifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:admin_settlement_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	for rateType, raw := range map[string]string{"EPF": "0.08", "ETF": "0.03"} {
		rate := models.DeductionRate{Type: rateType, Rate: models.NewRateFromDecimal(decimal.RequireFromString(raw))}
		if err := db.Create(&rate).Error; err != nil {
			t.Fatalf("create deduction rate failed: %v", err)
		}
	}

	paymentRepo := repository.NewPaymentRepository(db)
	deductionRepo := repository.NewDeductionRateRepository(db)
	ledgerRepo := repository.NewSalaryLedgerRepository(db)
	revenueRepo := repository.NewRevenueRepository(db)
	providerRepo := repository.NewProviderRepository(db)
	batchRepo := repository.NewSettlementBatchRepository(db)
	authzService, err := authz.NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	if err := authzService.SetAdminRoles(1, []string{authz.RolePayrollOperator}); err != nil {
		t.Fatalf("set admin roles failed: %v", err)
	}

	notifier := &recordingNotifier{}
	h := New(&provider.Container{
		AuthzService: authzService,
		SalarySettlementService: service.NewSalarySettlementService(
			paymentRepo, deductionRepo, ledgerRepo, revenueRepo, providerRepo, batchRepo,
			notifier, nil,
			service.SalarySettlementOptions{RunTimeout: 5 * time.Second, CallTimeout: time.Second, NotifyConcurrency: 2},
		),
		DeductionRateService:   service.NewDeductionRateService(deductionRepo),
		SalaryLedgerService:    service.NewSalaryLedgerService(ledgerRepo, revenueRepo),
		SettlementBatchService: service.NewSettlementBatchService(batchRepo),
	})

	r := gin.New()
	admin := r.Group("/api/v1/admin", func(c *gin.Context) {
		c.Set("admin_id", uint(1))
		c.Set("username", "payroll")
		c.Next()
	})
	admin.POST("/settlements/run", h.RunSettlement)
	admin.GET("/settlements", h.ListSettlementBatches)
	admin.GET("/settlements/latest", h.GetLatestSettlementSummary)
	admin.GET("/settlements/:id", h.GetSettlementBatch)
	admin.GET("/salary-ledgers", h.ListSalaryLedgers)
	admin.GET("/salary-ledgers/:provider_id", h.GetSalaryLedger)
	admin.GET("/revenues", h.ListRevenues)
	admin.GET("/deduction-rates", h.ListDeductionRates)
	admin.PUT("/deduction-rates/:type", h.UpsertDeductionRate)
	admin.GET("/authz/me", h.GetAuthzMe)
	return r, db, notifier
}

func seedSettlementProvider(t *testing.T, db *gorm.DB, name, commission string, amounts ...string) models.ServiceProvider {
	t.Helper()
	rate := models.NewMoneyFromDecimal(decimal.RequireFromString(commission))
	catalog := models.ServiceCatalog{Name: name + " care", CommissionRate: &rate}
	if err := db.Create(&catalog).Error; err != nil {
		t.Fatalf("create service failed: %v", err)
	}
	sp := models.ServiceProvider{Name: name, Email: name + "@example.com", Status: constants.ProviderStatusActive, ServiceID: &catalog.ID}
	if err := db.Create(&sp).Error; err != nil {
		t.Fatalf("create provider failed: %v", err)
	}
	for _, amount := range amounts {
		booking := models.Booking{CustomerEmail: "patient@example.com", ServiceProviderID: &sp.ID, Status: constants.BookingStatusCompleted}
		if err := db.Create(&booking).Error; err != nil {
			t.Fatalf("create booking failed: %v", err)
		}
		paidAt := time.Now()
		payment := models.Payment{
			BookingID: booking.ID,
			Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString(amount)),
			Currency:  "LKR",
			Status:    constants.PaymentStatusCompleted,
			PaidAt:    &paidAt,
		}
		if err := db.Create(&payment).Error; err != nil {
			t.Fatalf("create payment failed: %v", err)
		}
	}
	return sp
}

func doAdminRequest(t *testing.T, r *gin.Engine, method, path, body string) adminEnvelope {
	t.Helper()
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	var resp adminEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func TestRunSettlementHandler(t *testing.T) {
	r, db, notifier := setupSettlementHandlerTest(t)
	nimal := seedSettlementProvider(t, db, "nimal", "15", "4500")

	resp := doAdminRequest(t, r, http.MethodPost, "/api/v1/admin/settlements/run", "")
	if resp.StatusCode != 0 {
		t.Fatalf("status_code want 0 got %d msg=%s", resp.StatusCode, resp.Msg)
	}
	if resp.Msg != "Salaries calculated and updated successfully" {
		t.Fatalf("unexpected message: %s", resp.Msg)
	}
	var summary struct {
		Message          string `json:"message"`
		ProviderSalaries []struct {
			ServiceProviderID uint   `json:"service_provider_id"`
			NetSalary         string `json:"net_salary"`
			Status            string `json:"status"`
		} `json:"provider_salaries"`
		Batch struct {
			ID          uint   `json:"id"`
			Status      string `json:"status"`
			Trigger     string `json:"trigger"`
			TriggeredBy string `json:"triggered_by"`
		} `json:"batch"`
	}
	if err := json.Unmarshal(resp.Data, &summary); err != nil {
		t.Fatalf("unmarshal summary failed: %v", err)
	}
	if len(summary.ProviderSalaries) != 1 || summary.ProviderSalaries[0].ServiceProviderID != nimal.ID {
		t.Fatalf("unexpected provider salaries: %+v", summary.ProviderSalaries)
	}
	if summary.ProviderSalaries[0].NetSalary != "3404.25" {
		t.Fatalf("net salary want 3404.25 got %s", summary.ProviderSalaries[0].NetSalary)
	}
	if summary.Batch.Status != constants.SettlementBatchStatusCompleted || summary.Batch.Trigger != constants.SettlementTriggerManual || summary.Batch.TriggeredBy != "payroll" {
		t.Fatalf("unexpected batch: %+v", summary.Batch)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "nimal@example.com" {
		t.Fatalf("unexpected notifications: %+v", notifier.sent)
	}

	ledgerResp := doAdminRequest(t, r, http.MethodGet, fmt.Sprintf("/api/v1/admin/salary-ledgers/%d", nimal.ID), "")
	if ledgerResp.StatusCode != 0 {
		t.Fatalf("ledger status_code want 0 got %d", ledgerResp.StatusCode)
	}
	var ledger struct {
		EPF            string `json:"epf"`
		ETF            string `json:"etf"`
		TotalNetSalary string `json:"total_net_salary"`
	}
	if err := json.Unmarshal(ledgerResp.Data, &ledger); err != nil {
		t.Fatalf("unmarshal ledger failed: %v", err)
	}
	if ledger.EPF != "306.00" || ledger.ETF != "114.75" || ledger.TotalNetSalary != "3404.25" {
		t.Fatalf("unexpected ledger: %+v", ledger)
	}

	batchResp := doAdminRequest(t, r, http.MethodGet, fmt.Sprintf("/api/v1/admin/settlements/%d", summary.Batch.ID), "")
	if batchResp.StatusCode != 0 {
		t.Fatalf("batch status_code want 0 got %d", batchResp.StatusCode)
	}

	listResp := doAdminRequest(t, r, http.MethodGet, "/api/v1/admin/settlements?status=completed", "")
	if listResp.StatusCode != 0 || listResp.Pagination.Total != 1 {
		t.Fatalf("unexpected batch list: code=%d total=%d", listResp.StatusCode, listResp.Pagination.Total)
	}

	revenueResp := doAdminRequest(t, r, http.MethodGet, "/api/v1/admin/revenues", "")
	var revenues struct {
		TotalAmount string `json:"total_amount"`
	}
	if err := json.Unmarshal(revenueResp.Data, &revenues); err != nil {
		t.Fatalf("unmarshal revenues failed: %v", err)
	}
	if revenues.TotalAmount != "675.00" {
		t.Fatalf("revenue total want 675.00 got %s", revenues.TotalAmount)
	}

	again := doAdminRequest(t, r, http.MethodPost, "/api/v1/admin/settlements/run", "")
	if again.StatusCode != 0 || again.Msg != "No unsettled completed payments to settle" {
		t.Fatalf("second run want empty success, got code=%d msg=%s", again.StatusCode, again.Msg)
	}
}

func TestSettlementHandlerErrors(t *testing.T) {
	r, _, _ := setupSettlementHandlerTest(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "batch_not_found", method: http.MethodGet, path: "/api/v1/admin/settlements/999", want: 404},
		{name: "batch_bad_id", method: http.MethodGet, path: "/api/v1/admin/settlements/abc", want: 400},
		{name: "batch_bad_status", method: http.MethodGet, path: "/api/v1/admin/settlements?status=unknown", want: 400},
		{name: "batch_bad_date", method: http.MethodGet, path: "/api/v1/admin/settlements?created_from=yesterday", want: 400},
		{name: "ledger_not_found", method: http.MethodGet, path: "/api/v1/admin/salary-ledgers/42", want: 404},
		{name: "ledger_bad_filter", method: http.MethodGet, path: "/api/v1/admin/salary-ledgers?service_provider_id=x", want: 400},
		{name: "revenue_inverted_range", method: http.MethodGet, path: "/api/v1/admin/revenues?created_from=2026-02-01&created_to=2026-01-01", want: 400},
		{name: "rate_out_of_range", method: http.MethodPut, path: "/api/v1/admin/deduction-rates/EPF", body: `{"rate":"1.5"}`, want: 400},
		{name: "rate_missing", method: http.MethodPut, path: "/api/v1/admin/deduction-rates/EPF", body: `{}`, want: 400},
		{name: "rate_bad_type", method: http.MethodPut, path: "/api/v1/admin/deduction-rates/e-p-f", body: `{"rate":"0.1"}`, want: 400},
		{name: "latest_without_runs", method: http.MethodGet, path: "/api/v1/admin/settlements/latest", want: 404},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doAdminRequest(t, r, tc.method, tc.path, tc.body)
			if resp.StatusCode != tc.want {
				t.Fatalf("status_code want %d got %d msg=%s", tc.want, resp.StatusCode, resp.Msg)
			}
		})
	}
}

func TestDeductionRateHandlers(t *testing.T) {
	r, _, _ := setupSettlementHandlerTest(t)

	resp := doAdminRequest(t, r, http.MethodPut, "/api/v1/admin/deduction-rates/epf", `{"rate":"0.09","description":"employee provident fund"}`)
	if resp.StatusCode != 0 {
		t.Fatalf("upsert status_code want 0 got %d msg=%s", resp.StatusCode, resp.Msg)
	}
	var saved struct {
		Type string `json:"type"`
		Rate string `json:"rate"`
	}
	if err := json.Unmarshal(resp.Data, &saved); err != nil {
		t.Fatalf("unmarshal rate failed: %v", err)
	}
	if saved.Type != "EPF" || saved.Rate != "0.0900" {
		t.Fatalf("unexpected saved rate: %+v", saved)
	}

	list := doAdminRequest(t, r, http.MethodGet, "/api/v1/admin/deduction-rates", "")
	var rates []struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(list.Data, &rates); err != nil {
		t.Fatalf("unmarshal rate list failed: %v", err)
	}
	if len(rates) != 2 {
		t.Fatalf("expected 2 rates, got %d", len(rates))
	}
}

func TestGetAuthzMe(t *testing.T) {
	r, _, _ := setupSettlementHandlerTest(t)

	resp := doAdminRequest(t, r, http.MethodGet, "/api/v1/admin/authz/me", "")
	var me struct {
		AdminID uint     `json:"admin_id"`
		Roles   []string `json:"roles"`
	}
	if err := json.Unmarshal(resp.Data, &me); err != nil {
		t.Fatalf("unmarshal me failed: %v", err)
	}
	if me.AdminID != 1 || len(me.Roles) != 1 || me.Roles[0] != "role:"+authz.RolePayrollOperator {
		t.Fatalf("unexpected me payload: %+v", me)
	}
}

func TestRunSettlementSurvivesClientDisconnect(t *testing.T) {
	r, db, _ := setupSettlementHandlerTest(t)
	kamal := seedSettlementProvider(t, db, "kamal", "10", "1000")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/settlements/run", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp adminEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	if resp.StatusCode != 0 {
		t.Fatalf("expected run to complete despite disconnect, got %d %s", resp.StatusCode, resp.Msg)
	}
	var ledger models.ProviderSalary
	if err := db.Where("service_provider_id = ?", kamal.ID).First(&ledger).Error; err != nil {
		t.Fatalf("expected ledger after run: %v", err)
	}
	if ledger.TotalNetSalary.String() != "801.00" {
		t.Fatalf("unexpected net salary: %s", ledger.TotalNetSalary.String())
	}
}

func TestRunSettlementAsyncRequiresQueue(t *testing.T) {
	r, db, _ := setupSettlementHandlerTest(t)
	seedSettlementProvider(t, db, "sunil", "10", "1000")

	resp := doAdminRequest(t, r, http.MethodPost, "/api/v1/admin/settlements/run?async=true", "")
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 without queue, got %d %s", resp.StatusCode, resp.Msg)
	}
	var batches int64
	if err := db.Model(&models.SettlementBatch{}).Count(&batches).Error; err != nil {
		t.Fatalf("count batches failed: %v", err)
	}
	if batches != 0 {
		t.Fatalf("async request must not run inline, got %d batches", batches)
	}
}
