// Package storage is the SQLite-backed ledger store. It is the only
// layer that touches SQL; everything above it operates on the statically
// shaped records in internal/core. Category canonicalization happens
// here, at entry create and update time, so downstream queries can match
// the canonical label directly.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"truckbooks/internal/core"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateEntry validates, canonicalizes and inserts a ledger entry,
// returning it with its assigned id.
func (r *Repository) CreateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	e.Category = core.CanonicalCategory(e.Category)
	if err := e.Validate(); err != nil {
		return core.Entry{}, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (entry_date, is_income, category, amount_cents, hst_included, description, truck_id, driver_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Date.String(), boolToInt(e.IsIncome), e.Category, e.Amount.Cents,
		boolToInt(e.HSTIncluded), strings.TrimSpace(e.Description), e.TruckID, e.DriverID)
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Entry{}, fmt.Errorf("entry insert id: %w", err)
	}
	e.ID = id

	slog.InfoContext(ctx, "Entry saved",
		"id", e.ID,
		"date", e.Date.String(),
		"is_income", e.IsIncome,
		"category", e.Category,
		"amount_cents", e.Amount.Cents)

	return e, nil
}

// UpdateEntry rewrites an existing entry. The same canonicalization and
// validation as CreateEntry applies.
func (r *Repository) UpdateEntry(ctx context.Context, e core.Entry) error {
	e.Category = core.CanonicalCategory(e.Category)
	if err := e.Validate(); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE entries
		SET entry_date = ?, is_income = ?, category = ?, amount_cents = ?, hst_included = ?, description = ?, truck_id = ?, driver_id = ?
		WHERE id = ?`,
		e.Date.String(), boolToInt(e.IsIncome), e.Category, e.Amount.Cents,
		boolToInt(e.HSTIncluded), strings.TrimSpace(e.Description), e.TruckID, e.DriverID, e.ID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entry result: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *Repository) DeleteEntry(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

const entrySelect = `
	SELECT e.id, e.entry_date, e.is_income, e.category, e.amount_cents, e.hst_included,
	       e.description, e.truck_id, e.driver_id,
	       COALESCE(t.name, ''), COALESCE(d.name, '')
	FROM entries e
	LEFT JOIN trucks t ON t.id = e.truck_id
	LEFT JOIN drivers d ON d.id = e.driver_id`

// ListEntries returns entries in [from,to] (either bound may be zero for
// open-ended), optionally restricted to one truck, ordered by date then
// id ascending. Truck and driver display names come from a LEFT JOIN so
// dangling references surface as empty names.
func (r *Repository) ListEntries(ctx context.Context, from, to core.Date, truckID int64) ([]core.Entry, error) {
	var (
		conds []string
		args  []any
	)
	if !from.IsZero() {
		conds = append(conds, "e.entry_date >= ?")
		args = append(args, from.String())
	}
	if !to.IsZero() {
		conds = append(conds, "e.entry_date <= ?")
		args = append(args, to.String())
	}
	if truckID > 0 {
		conds = append(conds, "e.truck_id = ?")
		args = append(args, truckID)
	}

	q := entrySelect
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY e.entry_date ASC, e.id ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListDriverPay returns expense entries with the canonical driver-pay
// category in [from,to], optionally for one driver, ordered by date then
// id ascending.
func (r *Repository) ListDriverPay(ctx context.Context, driverID int64, from, to core.Date) ([]core.Entry, error) {
	conds := []string{"e.is_income = 0", "e.category = ?"}
	args := []any{core.DriverPayCategory}
	if !from.IsZero() {
		conds = append(conds, "e.entry_date >= ?")
		args = append(args, from.String())
	}
	if !to.IsZero() {
		conds = append(conds, "e.entry_date <= ?")
		args = append(args, to.String())
	}
	if driverID > 0 {
		conds = append(conds, "e.driver_id = ?")
		args = append(args, driverID)
	}

	q := entrySelect + " WHERE " + strings.Join(conds, " AND ") + " ORDER BY e.entry_date ASC, e.id ASC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list driver pay: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListHSTIncluded returns expense entries flagged as tax-inclusive,
// most recent first.
func (r *Repository) ListHSTIncluded(ctx context.Context) ([]core.Entry, error) {
	q := entrySelect + " WHERE e.is_income = 0 AND e.hst_included = 1 ORDER BY e.entry_date DESC, e.id DESC"

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list hst entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (r *Repository) CreateTruck(ctx context.Context, name string) (core.Truck, error) {
	t := core.Truck{Name: strings.TrimSpace(name)}
	if err := t.Validate(); err != nil {
		return core.Truck{}, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO trucks (name) VALUES (?)`, t.Name)
	if err != nil {
		return core.Truck{}, fmt.Errorf("create truck: %w", err)
	}
	t.ID, err = res.LastInsertId()
	if err != nil {
		return core.Truck{}, fmt.Errorf("truck insert id: %w", err)
	}
	return t, nil
}

func (r *Repository) ListTrucks(ctx context.Context) ([]core.Truck, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM trucks ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list trucks: %w", err)
	}
	defer rows.Close()

	var trucks []core.Truck
	for rows.Next() {
		var t core.Truck
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan truck: %w", err)
		}
		trucks = append(trucks, t)
	}
	return trucks, rows.Err()
}

// DeleteTruck removes a truck. Entries referencing it are left in place;
// reports render the dangling reference as a missing name.
func (r *Repository) DeleteTruck(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM trucks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete truck: %w", err)
	}
	return nil
}

func (r *Repository) CreateDriver(ctx context.Context, name string) (core.Driver, error) {
	d := core.Driver{Name: strings.TrimSpace(name)}
	if err := d.Validate(); err != nil {
		return core.Driver{}, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO drivers (name) VALUES (?)`, d.Name)
	if err != nil {
		return core.Driver{}, fmt.Errorf("create driver: %w", err)
	}
	d.ID, err = res.LastInsertId()
	if err != nil {
		return core.Driver{}, fmt.Errorf("driver insert id: %w", err)
	}
	return d, nil
}

func (r *Repository) ListDrivers(ctx context.Context) ([]core.Driver, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM drivers ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var drivers []core.Driver
	for rows.Next() {
		var d core.Driver
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

func (r *Repository) DeleteDriver(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM drivers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete driver: %w", err)
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]core.Entry, error) {
	var entries []core.Entry
	for rows.Next() {
		var (
			e           core.Entry
			dateStr     string
			isIncome    int
			hstIncluded int
		)
		if err := rows.Scan(&e.ID, &dateStr, &isIncome, &e.Category, &e.Amount.Cents,
			&hstIncluded, &e.Description, &e.TruckID, &e.DriverID,
			&e.TruckName, &e.DriverName); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		d, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", e.ID, err)
		}
		e.Date = d
		e.IsIncome = isIncome == 1
		e.HSTIncluded = hstIncluded == 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
