package core

import (
	"errors"
	"testing"
)

func TestCanonicalCategory(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"driver income", DriverPayCategory},
		{"Driver Income", DriverPayCategory},
		{"DRIVER INCOME", DriverPayCategory},
		{"  driver income  ", DriverPayCategory},
		{"driver pay", DriverPayCategory},
		{"Driver Pay", DriverPayCategory},
		{"Fuel", "Fuel"},
		{"Other", "Other"},
		{"  Repairs ", "Repairs"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CanonicalCategory(tc.in); got != tc.want {
			t.Errorf("CanonicalCategory(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEntryValidate(t *testing.T) {
	good := Entry{
		Date:        NewDate(2024, 6, 3),
		IsIncome:    true,
		Amount:      Money{Cents: 100000},
		Description: "load to Windsor",
		TruckID:     1,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected valid entry, got %v", err)
	}

	bad := Entry{Category: DriverPayCategory}
	err := bad.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}
	fields := map[string]bool{}
	for _, fe := range verrs {
		fields[fe.Field] = true
	}
	for _, f := range []string{"entry_date", "amount", "description", "truck_id", "driver_id"} {
		if !fields[f] {
			t.Errorf("missing field error for %s", f)
		}
	}
}

func TestEntryValidateDriverPayNeedsDriver(t *testing.T) {
	e := Entry{
		Date:        NewDate(2024, 6, 10),
		Category:    DriverPayCategory,
		Amount:      Money{Cents: 50000},
		Description: "weekly pay",
		TruckID:     1,
	}
	if err := e.Validate(); err == nil {
		t.Fatal("expected driver_id to be required for driver pay")
	}
	e.DriverID = 3
	if err := e.Validate(); err != nil {
		t.Fatalf("expected valid entry, got %v", err)
	}
}

func TestDateInRange(t *testing.T) {
	d := NewDate(2024, 6, 10)
	cases := []struct {
		from, to Date
		want     bool
	}{
		{NewDate(2024, 6, 1), NewDate(2024, 6, 30), true},
		{NewDate(2024, 6, 10), NewDate(2024, 6, 10), true},
		{NewDate(2024, 6, 11), NewDate(2024, 6, 30), false},
		{NewDate(2024, 5, 1), NewDate(2024, 6, 9), false},
		{Date{}, NewDate(2024, 6, 30), true},
		{NewDate(2024, 6, 1), Date{}, true},
	}
	for i, tc := range cases {
		if got := d.InRange(tc.from, tc.to); got != tc.want {
			t.Errorf("case %d: InRange = %v, want %v", i, got, tc.want)
		}
	}
}

func TestDisplayNames(t *testing.T) {
	e := Entry{}
	if e.DisplayTruck() != MissingName || e.DisplayDriver() != MissingName {
		t.Fatal("dangling references must render as the missing marker")
	}
	e.TruckName = "Truck 12"
	e.DriverName = "H. Singh"
	if e.DisplayTruck() != "Truck 12" || e.DisplayDriver() != "H. Singh" {
		t.Fatal("joined names must render verbatim")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-03")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-06-03" {
		t.Fatalf("round trip mismatch: %s", d)
	}
	if _, err := ParseDate("03/06/2024"); err == nil {
		t.Fatal("expected error for non-ISO input")
	}
}
