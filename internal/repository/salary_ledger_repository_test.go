package repository

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSalaryLedgerRepositoryIncrementAccumulates(t *testing.T) {
	db := openRepositoryTestDB(t, "ledger_repo_increment")
	repo := NewSalaryLedgerRepository(db)
	erin := mustCreateProvider(t, db, "erin", "")

	first := LedgerIncrement{
		ServiceProviderID: erin.ID,
		EPF:               decimal.RequireFromString("306.00"),
		ETF:               decimal.RequireFromString("114.75"),
		NetSalary:         decimal.RequireFromString("3404.25"),
		BatchID:           1,
		SettledAt:         time.Now().Add(-time.Hour),
	}
	if err := repo.Increment(first); err != nil {
		t.Fatalf("first increment failed: %v", err)
	}

	second := LedgerIncrement{
		ServiceProviderID: erin.ID,
		EPF:               decimal.RequireFromString("10.00"),
		ETF:               decimal.RequireFromString("2.50"),
		NetSalary:         decimal.RequireFromString("100.00"),
		BatchID:           2,
		SettledAt:         time.Now(),
	}
	if err := repo.Increment(second); err != nil {
		t.Fatalf("second increment failed: %v", err)
	}

	ledger, err := repo.GetByProviderID(erin.ID)
	if err != nil || ledger == nil {
		t.Fatalf("get ledger failed: %v", err)
	}
	if ledger.EPF.String() != "316.00" {
		t.Fatalf("expected epf 316.00, got %s", ledger.EPF.String())
	}
	if ledger.ETF.String() != "117.25" {
		t.Fatalf("expected etf 117.25, got %s", ledger.ETF.String())
	}
	if ledger.TotalNetSalary.String() != "3504.25" {
		t.Fatalf("expected net 3504.25, got %s", ledger.TotalNetSalary.String())
	}
	if ledger.LastBatchID == nil || *ledger.LastBatchID != 2 {
		t.Fatalf("expected last batch 2, got %v", ledger.LastBatchID)
	}

	var count int64
	if err := db.Table("provider_salaries").Count(&count).Error; err != nil {
		t.Fatalf("count ledgers failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single ledger row, got %d", count)
	}
}

func TestSalaryLedgerRepositoryIncrementRequiresProvider(t *testing.T) {
	db := openRepositoryTestDB(t, "ledger_repo_invalid")
	repo := NewSalaryLedgerRepository(db)
	if err := repo.Increment(LedgerIncrement{}); err == nil {
		t.Fatalf("expected error for missing provider id")
	}
}

func TestSalaryLedgerRepositoryListSearch(t *testing.T) {
	db := openRepositoryTestDB(t, "ledger_repo_list")
	repo := NewSalaryLedgerRepository(db)
	frank := mustCreateProvider(t, db, "frank", "")
	grace := mustCreateProvider(t, db, "grace", "")

	for _, id := range []uint{frank.ID, grace.ID} {
		if err := repo.Increment(LedgerIncrement{
			ServiceProviderID: id,
			NetSalary:         decimal.NewFromInt(int64(id) * 100),
		}); err != nil {
			t.Fatalf("increment failed: %v", err)
		}
	}

	ledgers, total, err := repo.List(SalaryLedgerListFilter{Page: 1, PageSize: 10, Search: "gra"})
	if err != nil {
		t.Fatalf("list ledgers failed: %v", err)
	}
	if total != 1 || len(ledgers) != 1 {
		t.Fatalf("expected one ledger, got total=%d len=%d", total, len(ledgers))
	}
	if ledgers[0].ServiceProviderID != grace.ID {
		t.Fatalf("expected grace ledger, got provider %d", ledgers[0].ServiceProviderID)
	}
	if ledgers[0].ServiceProvider == nil || ledgers[0].ServiceProvider.Name != "grace" {
		t.Fatalf("expected provider preloaded")
	}

	all, total, err := repo.List(SalaryLedgerListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list all ledgers failed: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("expected two ledgers, got total=%d len=%d", total, len(all))
	}
}
