package core

import (
	"fmt"
	"strings"
	"time"
)

// DriverPayCategory is the canonical label for driver wage expenses.
// Driver-pay statements select on an exact match of this label, so every
// write path must normalize through CanonicalCategory first.
const DriverPayCategory = "Driver Pay"

// MissingName is rendered in reports when a referenced truck or driver
// no longer exists.
const MissingName = "—"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Entry is a single income or expense ledger record. TruckName and
	// DriverName are joined display names filled in at the storage
	// boundary; they are empty when the reference dangles.
	Entry struct {
		ID          int64
		Date        Date
		IsIncome    bool
		Category    string
		Amount      Money
		HSTIncluded bool
		Description string
		TruckID     int64
		DriverID    int64
		TruckName   string
		DriverName  string
	}

	Truck struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	Driver struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every field failure for one record so the
// caller can surface them all at once.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// NewDate creates a Date at day precision in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String returns the ISO form used everywhere a date is displayed.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// InRange reports whether d falls inside [from,to] inclusive. A zero
// bound leaves that side open.
func (d Date) InRange(from, to Date) bool {
	if !from.IsZero() && d.Before(from.Time) {
		return false
	}
	if !to.IsZero() && d.After(to.Time) {
		return false
	}
	return true
}

// CanonicalCategory trims the label and collapses every case variant of
// "driver income" and "driver pay" into DriverPayCategory. Any other
// label passes through trimmed but otherwise untouched.
func CanonicalCategory(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "driver income") || strings.EqualFold(s, DriverPayCategory) {
		return DriverPayCategory
	}
	return s
}

// Validate checks the entry against the ledger invariants. It assumes
// the category has already been canonicalized.
func (e Entry) Validate() error {
	var errs ValidationErrors
	if e.Date.IsZero() {
		errs = append(errs, FieldError{Field: "entry_date", Message: "date is required"})
	}
	if e.Amount.Cents <= 0 {
		errs = append(errs, FieldError{Field: "amount", Message: "amount must be greater than zero"})
	}
	if strings.TrimSpace(e.Description) == "" {
		errs = append(errs, FieldError{Field: "description", Message: "description is required"})
	}
	if e.TruckID <= 0 {
		errs = append(errs, FieldError{Field: "truck_id", Message: "truck is required"})
	}
	if !e.IsIncome && e.Category == DriverPayCategory && e.DriverID <= 0 {
		errs = append(errs, FieldError{Field: "driver_id", Message: "driver is required for driver pay"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (t Truck) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return ValidationErrors{{Field: "name", Message: "name is required"}}
	}
	return nil
}

func (d Driver) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return ValidationErrors{{Field: "name", Message: "name is required"}}
	}
	return nil
}

// DisplayTruck returns the truck name or the missing-reference marker.
func (e Entry) DisplayTruck() string {
	if e.TruckName == "" {
		return MissingName
	}
	return e.TruckName
}

// DisplayDriver returns the driver name or the missing-reference marker.
func (e Entry) DisplayDriver() string {
	if e.DriverName == "" {
		return MissingName
	}
	return e.DriverName
}
