package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openRepositoryTestDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func mustCreateProvider(t *testing.T, db *gorm.DB, name string, commissionPercent string) models.ServiceProvider {
	t.Helper()
	service := models.ServiceCatalog{Name: name + " service"}
	if commissionPercent != "" {
		rate := models.NewMoneyFromDecimal(decimal.RequireFromString(commissionPercent))
		service.CommissionRate = &rate
	}
	if err := db.Create(&service).Error; err != nil {
		t.Fatalf("create service failed: %v", err)
	}
	provider := models.ServiceProvider{
		Name:      name,
		Email:     name + "@example.com",
		Status:    constants.ProviderStatusActive,
		ServiceID: &service.ID,
	}
	if err := db.Create(&provider).Error; err != nil {
		t.Fatalf("create provider failed: %v", err)
	}
	return provider
}

func mustCreateCompletedPayment(t *testing.T, db *gorm.DB, providerID *uint, amount string) models.Payment {
	t.Helper()
	booking := models.Booking{
		CustomerEmail:     "customer@example.com",
		ServiceProviderID: providerID,
		Status:            constants.BookingStatusCompleted,
	}
	if err := db.Create(&booking).Error; err != nil {
		t.Fatalf("create booking failed: %v", err)
	}
	now := time.Now()
	payment := models.Payment{
		BookingID: booking.ID,
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString(amount)),
		Currency:  "LKR",
		Status:    constants.PaymentStatusCompleted,
		PaidAt:    &now,
	}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	return payment
}
