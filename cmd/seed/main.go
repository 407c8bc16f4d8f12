package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carenest-next/internal/authz"
	"github.com/carenest-next/internal/config"
	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/logger"
	"github.com/carenest-next/internal/models"
	"github.com/carenest-next/internal/service"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type serviceSeed struct {
	Name       string
	Commission string
	BasePrice  string
}

type providerSeed struct {
	Name     string
	Email    string
	Phone    string
	Service  string
	Payments []string
}

type adminSeed struct {
	AdminID  uint
	Username string
	Role     string
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 扣款比例
	for _, rate := range []models.DeductionRate{
		{Type: "EPF", Rate: models.NewRateFromDecimal(decimal.RequireFromString("0.08")), Description: "Employees' Provident Fund"},
		{Type: "ETF", Rate: models.NewRateFromDecimal(decimal.RequireFromString("0.03")), Description: "Employees' Trust Fund"},
	} {
		var existing models.DeductionRate
		err := models.DB.Where("type = ?", rate.Type).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := models.DB.Create(&rate).Error; err != nil {
				stdLog.Printf("Failed to create deduction rate %s: %v", rate.Type, err)
				continue
			}
			stdLog.Printf("Created deduction rate: %s = %s", rate.Type, rate.Rate.StringFixed(4))
		case err != nil:
			stdLog.Printf("Failed to load deduction rate %s: %v", rate.Type, err)
		default:
			stdLog.Printf("Deduction rate already exists: %s", rate.Type)
		}
	}

	// 服务项目（佣金为空时使用默认 10%）
	serviceIDs := make(map[string]uint)
	for _, seed := range []serviceSeed{
		{Name: "Home Nursing", Commission: "15", BasePrice: "4500"},
		{Name: "Physiotherapy", Commission: "12", BasePrice: "3500"},
		{Name: "Elder Companion", BasePrice: "2500"},
	} {
		var existing models.ServiceCatalog
		err := models.DB.Where("name = ?", seed.Name).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			existing = models.ServiceCatalog{
				Name:      seed.Name,
				BasePrice: models.NewMoneyFromDecimal(decimal.RequireFromString(seed.BasePrice)),
			}
			if seed.Commission != "" {
				commission := models.NewMoneyFromDecimal(decimal.RequireFromString(seed.Commission))
				existing.CommissionRate = &commission
			}
			if err := models.DB.Create(&existing).Error; err != nil {
				stdLog.Printf("Failed to create service %s: %v", seed.Name, err)
				continue
			}
			stdLog.Printf("Created service: %s", seed.Name)
		} else if err != nil {
			stdLog.Printf("Failed to load service %s: %v", seed.Name, err)
			continue
		} else {
			stdLog.Printf("Service already exists: %s", seed.Name)
		}
		serviceIDs[seed.Name] = existing.ID
	}

	// 服务者、预约与已完成支付
	providers := []providerSeed{
		{Name: "Nimal Perera", Email: "nimal@example.com", Phone: "+94771234567", Service: "Home Nursing", Payments: []string{"4500", "4500"}},
		{Name: "Kumari Silva", Email: "kumari@example.com", Phone: "+94772345678", Service: "Physiotherapy", Payments: []string{"3500", "1750.50"}},
		{Name: "Sunil Fernando", Email: "sunil@example.com", Phone: "+94773456789", Service: "Elder Companion", Payments: []string{"2500"}},
		{Name: "Ayesha Jayawardena", Phone: "+94774567890", Service: "Home Nursing", Payments: []string{"3000"}},
	}
	now := time.Now()
	for _, seed := range providers {
		serviceID, ok := serviceIDs[seed.Service]
		if !ok {
			stdLog.Printf("Skip provider %s: service %s missing", seed.Name, seed.Service)
			continue
		}
		var sp models.ServiceProvider
		err := models.DB.Where("name = ?", seed.Name).First(&sp).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			sp = models.ServiceProvider{
				Name:      seed.Name,
				Email:     seed.Email,
				Phone:     seed.Phone,
				Status:    constants.ProviderStatusActive,
				ServiceID: &serviceID,
			}
			if err := models.DB.Create(&sp).Error; err != nil {
				stdLog.Printf("Failed to create provider %s: %v", seed.Name, err)
				continue
			}
			stdLog.Printf("Created provider: %s", seed.Name)
		} else if err != nil {
			stdLog.Printf("Failed to load provider %s: %v", seed.Name, err)
			continue
		} else {
			stdLog.Printf("Provider already exists: %s", seed.Name)
			continue
		}
		for idx, amount := range seed.Payments {
			if err := createCompletedPayment(&sp.ID, fmt.Sprintf("patient%d.%d@example.com", sp.ID, idx+1), amount, now); err != nil {
				stdLog.Printf("Failed to create payment for %s: %v", seed.Name, err)
				continue
			}
		}
		stdLog.Printf("Created %d completed payments for %s", len(seed.Payments), seed.Name)
	}

	// 未分配服务者的支付，结算时会被跳过并报告
	var orphanCount int64
	models.DB.Model(&models.Booking{}).Where("service_provider_id IS NULL").Count(&orphanCount)
	if orphanCount == 0 {
		if err := createCompletedPayment(nil, "walkin@example.com", "1200", now); err != nil {
			stdLog.Printf("Failed to create unassigned payment: %v", err)
		} else {
			stdLog.Printf("Created unassigned completed payment")
		}
	}

	// 管理员角色
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		stdLog.Fatalf("Failed to init authz: %v", err)
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		stdLog.Fatalf("Failed to bootstrap roles: %v", err)
	}
	admins := []adminSeed{
		{AdminID: 1, Username: "finance", Role: authz.RoleFinance},
		{AdminID: 2, Username: "payroll", Role: authz.RolePayrollOperator},
		{AdminID: 3, Username: "auditor", Role: authz.RoleReadonlyAuditor},
	}
	for _, seed := range admins {
		if err := authzService.SetAdminRoles(seed.AdminID, []string{seed.Role}); err != nil {
			stdLog.Printf("Failed to assign role %s to admin %d: %v", seed.Role, seed.AdminID, err)
			continue
		}
		stdLog.Printf("Assigned role %s to admin %d", seed.Role, seed.AdminID)
	}

	// 开发用 Token
	if strings.TrimSpace(cfg.JWT.SecretKey) == "" {
		stdLog.Printf("JWT secret not configured, skip dev tokens")
		return
	}
	for _, seed := range admins {
		token, expiresAt, err := service.GenerateAdminJWT(cfg.JWT.SecretKey, seed.AdminID, seed.Username, false, 24*time.Hour)
		if err != nil {
			stdLog.Printf("Failed to issue token for %s: %v", seed.Username, err)
			continue
		}
		fmt.Printf("%s (%s, expires %s):\n  %s\n", seed.Username, seed.Role, expiresAt.Format(time.RFC3339), token)
	}
}

func createCompletedPayment(providerID *uint, customerEmail, amount string, paidAt time.Time) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		scheduledAt := paidAt.Add(-24 * time.Hour)
		booking := models.Booking{
			CustomerEmail:     customerEmail,
			ServiceProviderID: providerID,
			Status:            constants.BookingStatusCompleted,
			ScheduledAt:       &scheduledAt,
		}
		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		payment := models.Payment{
			BookingID: booking.ID,
			Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString(amount)),
			Currency:  "LKR",
			Status:    constants.PaymentStatusCompleted,
			PaidAt:    &paidAt,
		}
		return tx.Create(&payment).Error
	})
}
