package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"truckbooks/internal/artifact"
	"truckbooks/internal/core"
	"truckbooks/internal/ledger"
)

type fakeStore struct {
	entries []core.Entry
	trucks  []core.Truck
	drivers []core.Driver
}

func (f *fakeStore) ListEntries(_ context.Context, from, to core.Date, truckID int64) ([]core.Entry, error) {
	var out []core.Entry
	for _, e := range f.entries {
		if !e.Date.InRange(from, to) {
			continue
		}
		if truckID > 0 && e.TruckID != truckID {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) ListDriverPay(_ context.Context, driverID int64, from, to core.Date) ([]core.Entry, error) {
	var out []core.Entry
	for _, e := range f.entries {
		if e.IsIncome || e.Category != core.DriverPayCategory || !e.Date.InRange(from, to) {
			continue
		}
		if driverID > 0 && e.DriverID != driverID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeStore) ListHSTIncluded(_ context.Context) ([]core.Entry, error) {
	var out []core.Entry
	for _, e := range f.entries {
		if !e.IsIncome && e.HSTIncluded {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) ListTrucks(_ context.Context) ([]core.Truck, error)   { return f.trucks, nil }
func (f *fakeStore) ListDrivers(_ context.Context) ([]core.Driver, error) { return f.drivers, nil }

type recordingPublisher struct {
	filenames []string
	kinds     []string
}

func (p *recordingPublisher) ReportGenerated(_ context.Context, filename, kind string) error {
	p.filenames = append(p.filenames, filename)
	p.kinds = append(p.kinds, kind)
	return nil
}

func newTestGenerator(t *testing.T, store ledger.Store) (*Generator, *artifact.Store, *recordingPublisher) {
	t.Helper()
	artifacts, err := artifact.NewStore(filepath.Join(t.TempDir(), "reports"))
	if err != nil {
		t.Fatalf("artifact store: %v", err)
	}
	pub := &recordingPublisher{}
	engine := ledger.NewEngine(store, core.HSTPolicyGrossUp)
	return NewGenerator(engine, artifacts, testIdentity, pub), artifacts, pub
}

func juneStore() *fakeStore {
	return &fakeStore{
		entries: []core.Entry{
			{ID: 1, Date: core.NewDate(2024, 6, 3), IsIncome: true, Category: "Load", Amount: core.Money{Cents: 100000}, Description: "load to Windsor", TruckID: 1, TruckName: "T1"},
			{ID: 2, Date: core.NewDate(2024, 6, 10), Category: "Fuel", Amount: core.Money{Cents: 11300}, HSTIncluded: true, Description: "fuel", TruckID: 1, TruckName: "T1"},
			{ID: 3, Date: core.NewDate(2024, 6, 7), Category: core.DriverPayCategory, Amount: core.Money{Cents: 50000}, HSTIncluded: true, Description: "weekly pay", TruckID: 1, DriverID: 3, TruckName: "T1", DriverName: "H. Singh"},
		},
		trucks:  []core.Truck{{ID: 1, Name: "T1"}},
		drivers: []core.Driver{{ID: 3, Name: "H. Singh"}},
	}
}

func assertPDFArtifact(t *testing.T, artifacts *artifact.Store, filename string) {
	t.Helper()
	p, err := artifacts.Resolve(filename)
	if err != nil {
		t.Fatalf("resolve %s: %v", filename, err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", filename, err)
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		t.Fatalf("%s is not a PDF", filename)
	}
}

func TestMonthlyTruckReport(t *testing.T) {
	gen, artifacts, pub := newTestGenerator(t, juneStore())

	filename, err := gen.MonthlyTruck(context.Background(), 2024, 6, 1)
	if err != nil {
		t.Fatalf("monthly truck: %v", err)
	}
	if filename != "monthly_T1_2024-06.pdf" {
		t.Fatalf("unexpected filename %q", filename)
	}
	assertPDFArtifact(t, artifacts, filename)

	if len(pub.filenames) != 1 || pub.filenames[0] != filename || pub.kinds[0] != "monthly" {
		t.Fatalf("event not published: %+v", pub)
	}
}

func TestMonthlyTruckNoData(t *testing.T) {
	gen, _, pub := newTestGenerator(t, juneStore())

	_, err := gen.MonthlyTruck(context.Background(), 2024, 1, 1)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if len(pub.filenames) != 0 {
		t.Fatal("no event may be published for an empty selection")
	}
}

func TestMonthlyAllTrucks(t *testing.T) {
	store := juneStore()
	store.entries = append(store.entries,
		core.Entry{ID: 4, Date: core.NewDate(2024, 6, 5), IsIncome: true, Category: "Load", Amount: core.Money{Cents: 40000}, Description: "local run", TruckID: 2, TruckName: "T2"},
	)
	store.trucks = append(store.trucks, core.Truck{ID: 2, Name: "T2"})

	gen, artifacts, _ := newTestGenerator(t, store)
	filename, err := gen.MonthlyAllTrucks(context.Background(), 2024, 6)
	if err != nil {
		t.Fatalf("monthly all trucks: %v", err)
	}
	if filename != "monthly_All_2024-06.pdf" {
		t.Fatalf("unexpected filename %q", filename)
	}
	assertPDFArtifact(t, artifacts, filename)
}

func TestDriverPayStatement(t *testing.T) {
	gen, artifacts, _ := newTestGenerator(t, juneStore())

	from, to := core.NewDate(2024, 6, 1), core.NewDate(2024, 6, 30)
	filename, err := gen.DriverPay(context.Background(), 3, from, to)
	if err != nil {
		t.Fatalf("driver pay: %v", err)
	}
	if filename != "driver_pay_H._Singh_2024-06-01_2024-06-30.pdf" {
		t.Fatalf("unexpected filename %q", filename)
	}
	assertPDFArtifact(t, artifacts, filename)

	_, err = gen.DriverPay(context.Background(), 3, core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 31))
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData for empty range, got %v", err)
	}
}

func TestHSTReport(t *testing.T) {
	gen, artifacts, _ := newTestGenerator(t, juneStore())

	filename, err := gen.HST(context.Background())
	if err != nil {
		t.Fatalf("hst: %v", err)
	}
	assertPDFArtifact(t, artifacts, filename)
}

func TestHSTReportNoData(t *testing.T) {
	gen, _, _ := newTestGenerator(t, &fakeStore{})

	_, err := gen.HST(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
