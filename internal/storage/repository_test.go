package storage

import (
	"context"
	"path/filepath"
	"testing"

	"truckbooks/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestCreateEntryCanonicalizesCategory(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	truck, err := repo.CreateTruck(ctx, "Truck 12")
	if err != nil {
		t.Fatalf("create truck: %v", err)
	}
	driver, err := repo.CreateDriver(ctx, "H. Singh")
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}

	e, err := repo.CreateEntry(ctx, core.Entry{
		Date:        core.NewDate(2024, 6, 7),
		Category:    "driver Income",
		Amount:      core.Money{Cents: 50000},
		Description: "weekly pay",
		TruckID:     truck.ID,
		DriverID:    driver.ID,
	})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if e.Category != core.DriverPayCategory {
		t.Fatalf("category not canonicalized: %q", e.Category)
	}

	pay, err := repo.ListDriverPay(ctx, driver.ID, core.Date{}, core.Date{})
	if err != nil {
		t.Fatalf("list driver pay: %v", err)
	}
	if len(pay) != 1 || pay[0].ID != e.ID {
		t.Fatalf("canonicalized entry missing from driver pay selection: %+v", pay)
	}
	if pay[0].DriverName != "H. Singh" || pay[0].TruckName != "Truck 12" {
		t.Fatalf("joined names missing: %+v", pay[0])
	}
}

func TestCreateEntryRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.CreateEntry(context.Background(), core.Entry{Description: "   "})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := err.(core.ValidationErrors); !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
}

func TestListEntriesFilterAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t1, _ := repo.CreateTruck(ctx, "Alpha")
	t2, _ := repo.CreateTruck(ctx, "Bravo")

	mk := func(date core.Date, truckID int64, income bool, cents int64) core.Entry {
		e, err := repo.CreateEntry(ctx, core.Entry{
			Date:        date,
			IsIncome:    income,
			Category:    "Fuel",
			Amount:      core.Money{Cents: cents},
			HSTIncluded: true,
			Description: "x",
			TruckID:     truckID,
		})
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		return e
	}

	mk(core.NewDate(2024, 6, 10), t1.ID, false, 11300)
	first := mk(core.NewDate(2024, 6, 3), t1.ID, true, 100000)
	mk(core.NewDate(2024, 7, 1), t1.ID, true, 5000)
	mk(core.NewDate(2024, 6, 5), t2.ID, false, 2000)

	june, err := repo.ListEntries(ctx, core.NewDate(2024, 6, 1), core.NewDate(2024, 6, 30), 0)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(june) != 3 {
		t.Fatalf("expected 3 june entries, got %d", len(june))
	}
	if june[0].ID != first.ID {
		t.Fatalf("entries not ordered by date: first is %+v", june[0])
	}

	t1Only, err := repo.ListEntries(ctx, core.NewDate(2024, 6, 1), core.NewDate(2024, 6, 30), t1.ID)
	if err != nil {
		t.Fatalf("list entries by truck: %v", err)
	}
	if len(t1Only) != 2 {
		t.Fatalf("expected 2 entries for truck, got %d", len(t1Only))
	}
}

func TestListHSTIncludedOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	truck, _ := repo.CreateTruck(ctx, "Alpha")

	old, _ := repo.CreateEntry(ctx, core.Entry{
		Date: core.NewDate(2024, 5, 1), Category: "Fuel", Amount: core.Money{Cents: 11300},
		HSTIncluded: true, Description: "old fuel", TruckID: truck.ID,
	})
	recent, _ := repo.CreateEntry(ctx, core.Entry{
		Date: core.NewDate(2024, 6, 1), Category: "Fuel", Amount: core.Money{Cents: 5650},
		HSTIncluded: true, Description: "new fuel", TruckID: truck.ID,
	})
	// excluded: income and non-inclusive expense
	repo.CreateEntry(ctx, core.Entry{
		Date: core.NewDate(2024, 6, 2), IsIncome: true, Amount: core.Money{Cents: 100000},
		Description: "load", TruckID: truck.ID,
	})
	repo.CreateEntry(ctx, core.Entry{
		Date: core.NewDate(2024, 6, 3), Category: "Fuel", Amount: core.Money{Cents: 1000},
		HSTIncluded: false, Description: "net fuel", TruckID: truck.ID,
	})

	rows, err := repo.ListHSTIncluded(ctx)
	if err != nil {
		t.Fatalf("list hst: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 hst rows, got %d", len(rows))
	}
	if rows[0].ID != recent.ID || rows[1].ID != old.ID {
		t.Fatal("hst rows not ordered most recent first")
	}
}

func TestDeleteTruckLeavesDanglingReference(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	truck, _ := repo.CreateTruck(ctx, "Alpha")
	e, _ := repo.CreateEntry(ctx, core.Entry{
		Date: core.NewDate(2024, 6, 1), IsIncome: true, Amount: core.Money{Cents: 1000},
		Description: "load", TruckID: truck.ID,
	})

	if err := repo.DeleteTruck(ctx, truck.ID); err != nil {
		t.Fatalf("delete truck: %v", err)
	}

	entries, err := repo.ListEntries(ctx, core.Date{}, core.Date{}, 0)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != e.ID {
		t.Fatalf("entry should survive truck deletion: %+v", entries)
	}
	if entries[0].TruckName != "" {
		t.Fatalf("dangling truck should have empty joined name, got %q", entries[0].TruckName)
	}
	if entries[0].DisplayTruck() != core.MissingName {
		t.Fatal("dangling truck should display as missing marker")
	}
}
