package repository

import (
	"testing"
	"time"

	"github.com/carenest-next/internal/constants"
	"github.com/carenest-next/internal/models"

	"github.com/shopspring/decimal"
)

func TestPaymentRepositoryListUnsettledCompletedResolvesProvider(t *testing.T) {
	db := openRepositoryTestDB(t, "payment_repo_list")
	repo := NewPaymentRepository(db)

	alice := mustCreateProvider(t, db, "alice", "15")
	bob := mustCreateProvider(t, db, "bob", "")

	p1 := mustCreateCompletedPayment(t, db, &alice.ID, "1000.00")
	p2 := mustCreateCompletedPayment(t, db, &bob.ID, "200.50")
	orphan := mustCreateCompletedPayment(t, db, nil, "80.00")

	pending := models.Payment{
		BookingID: p1.BookingID,
		Amount:    models.NewMoneyFromDecimal(decimal.NewFromInt(99)),
		Currency:  "LKR",
		Status:    constants.PaymentStatusPending,
	}
	if err := db.Create(&pending).Error; err != nil {
		t.Fatalf("create pending payment failed: %v", err)
	}

	rows, err := repo.ListUnsettledCompleted()
	if err != nil {
		t.Fatalf("list unsettled failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 completed rows, got %d", len(rows))
	}

	byPayment := make(map[uint]SettlementPaymentRow, len(rows))
	for _, row := range rows {
		byPayment[row.PaymentID] = row
	}

	aliceRow := byPayment[p1.ID]
	if aliceRow.ServiceProviderID == nil || *aliceRow.ServiceProviderID != alice.ID {
		t.Fatalf("expected alice provider, got %+v", aliceRow.ServiceProviderID)
	}
	if !aliceRow.CommissionRate.Valid || !aliceRow.CommissionRate.Decimal.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected commission 15, got %+v", aliceRow.CommissionRate)
	}
	if !aliceRow.Amount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected amount 1000, got %s", aliceRow.Amount.String())
	}

	bobRow := byPayment[p2.ID]
	if bobRow.CommissionRate.Valid {
		t.Fatalf("expected null commission for bob, got %s", bobRow.CommissionRate.Decimal.String())
	}

	orphanRow := byPayment[orphan.ID]
	if orphanRow.ServiceProviderID != nil {
		t.Fatalf("expected orphan payment to have no provider")
	}
	if orphanRow.BookingRef == nil {
		t.Fatalf("expected orphan payment booking to resolve")
	}
}

func TestPaymentRepositoryListUnsettledSkipsDeletedProvider(t *testing.T) {
	db := openRepositoryTestDB(t, "payment_repo_deleted_provider")
	repo := NewPaymentRepository(db)

	carol := mustCreateProvider(t, db, "carol", "12")
	payment := mustCreateCompletedPayment(t, db, &carol.ID, "50.00")
	if err := db.Delete(&models.ServiceProvider{}, carol.ID).Error; err != nil {
		t.Fatalf("delete provider failed: %v", err)
	}

	rows, err := repo.ListUnsettledCompleted()
	if err != nil {
		t.Fatalf("list unsettled failed: %v", err)
	}
	if len(rows) != 1 || rows[0].PaymentID != payment.ID {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[0].ServiceProviderID != nil {
		t.Fatalf("expected deleted provider to be unresolved")
	}
	if rows[0].BookingProviderID == nil || *rows[0].BookingProviderID != carol.ID {
		t.Fatalf("expected booking to keep provider reference")
	}
}

func TestPaymentRepositoryClaimForSettlementOnlyOnce(t *testing.T) {
	db := openRepositoryTestDB(t, "payment_repo_claim")
	repo := NewPaymentRepository(db)

	dave := mustCreateProvider(t, db, "dave", "10")
	p1 := mustCreateCompletedPayment(t, db, &dave.ID, "10.00")
	p2 := mustCreateCompletedPayment(t, db, &dave.ID, "20.00")

	now := time.Now()
	affected, err := repo.ClaimForSettlement([]uint{p1.ID, p2.ID}, 7, now)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 claimed, got %d", affected)
	}

	affected, err = repo.ClaimForSettlement([]uint{p1.ID, p2.ID}, 8, now)
	if err != nil {
		t.Fatalf("second claim failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected second claim to affect nothing, got %d", affected)
	}

	stored, err := repo.GetByID(p1.ID)
	if err != nil || stored == nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if stored.SettledAt == nil || stored.SettlementBatchID == nil || *stored.SettlementBatchID != 7 {
		t.Fatalf("expected payment claimed by batch 7, got %+v", stored.SettlementBatchID)
	}

	remaining, err := repo.CountUnsettledCompleted()
	if err != nil {
		t.Fatalf("count unsettled failed: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected no unsettled payments, got %d", remaining)
	}
}

func TestPaymentRepositoryClaimEmptyIsNoop(t *testing.T) {
	db := openRepositoryTestDB(t, "payment_repo_claim_empty")
	repo := NewPaymentRepository(db)
	affected, err := repo.ClaimForSettlement(nil, 1, time.Now())
	if err != nil || affected != 0 {
		t.Fatalf("expected noop claim, got %d %v", affected, err)
	}
}

func TestPaymentRepositoryClaimWithoutBatchLeavesBatchNull(t *testing.T) {
	db := openRepositoryTestDB(t, "payment_repo_claim_no_batch")
	repo := NewPaymentRepository(db)

	erin := mustCreateProvider(t, db, "erin", "10")
	payment := mustCreateCompletedPayment(t, db, &erin.ID, "15.00")

	affected, err := repo.ClaimForSettlement([]uint{payment.ID}, 0, time.Now())
	if err != nil || affected != 1 {
		t.Fatalf("claim failed: affected=%d err=%v", affected, err)
	}
	stored, err := repo.GetByID(payment.ID)
	if err != nil || stored == nil {
		t.Fatalf("get payment failed: %v", err)
	}
	if stored.SettledAt == nil {
		t.Fatalf("expected payment to be marked settled")
	}
	if stored.SettlementBatchID != nil {
		t.Fatalf("expected null settlement batch, got %d", *stored.SettlementBatchID)
	}
}
