// Package ledger is the aggregation engine: it pulls entries from the
// store, resolves each entry's effective amount under the configured HST
// policy, and produces the grouped and totaled data the report layer
// renders.
package ledger

import (
	"context"
	"fmt"
	"sort"

	"truckbooks/internal/core"
)

// Store is the ledger store consumed by the engine. The SQLite
// repository satisfies it; tests use an in-memory fake.
type Store interface {
	ListEntries(ctx context.Context, from, to core.Date, truckID int64) ([]core.Entry, error)
	ListDriverPay(ctx context.Context, driverID int64, from, to core.Date) ([]core.Entry, error)
	ListHSTIncluded(ctx context.Context) ([]core.Entry, error)
	ListTrucks(ctx context.Context) ([]core.Truck, error)
	ListDrivers(ctx context.Context) ([]core.Driver, error)
}

// Filter constrains an aggregation by inclusive date range and
// optionally by truck (0 means all trucks).
type Filter struct {
	From    core.Date
	To      core.Date
	TruckID int64
}

// Summary holds the totals for one selection. Profit is exact in cents:
// Income minus Expense.
type Summary struct {
	Income  core.Money
	Expense core.Money
	Profit  core.Money
}

// TruckGroup is one truck's slice of a period, with its own totals.
type TruckGroup struct {
	TruckID   int64
	TruckName string
	Entries   []core.Entry
	Totals    Summary
}

// PaySelection is the result of a driver-pay query.
type PaySelection struct {
	Entries []core.Entry
	Total   core.Money
}

// HSTRow annotates a tax-inclusive expense with its embedded tax.
type HSTRow struct {
	Entry core.Entry
	Tax   core.Money
}

// HSTExtract lists tax-inclusive expenses most recent first, with the
// sum of their embedded tax components.
type HSTExtract struct {
	Rows     []HSTRow
	TotalTax core.Money
}

type Engine struct {
	store  Store
	policy core.HSTPolicy
}

func NewEngine(store Store, policy core.HSTPolicy) *Engine {
	return &Engine{store: store, policy: policy}
}

// Totals computes income, expense and profit over the filtered entries.
// An empty selection yields a zero summary, never an error.
func (e *Engine) Totals(ctx context.Context, f Filter) (Summary, error) {
	entries, err := e.store.ListEntries(ctx, f.From, f.To, f.TruckID)
	if err != nil {
		return Summary{}, fmt.Errorf("totals: %w", err)
	}
	return e.summarize(entries), nil
}

// Select returns the filtered entries together with their summary, for
// callers that need to render the rows as well as the totals.
func (e *Engine) Select(ctx context.Context, f Filter) ([]core.Entry, Summary, error) {
	entries, err := e.store.ListEntries(ctx, f.From, f.To, f.TruckID)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("select entries: %w", err)
	}
	return entries, e.summarize(entries), nil
}

// GroupByTruck partitions the period's entries by truck: every entry
// lands in exactly one group. Groups are ordered by display name
// ascending; within a group entries are ordered by date then id
// ascending. A dangling truck reference forms its own group under the
// missing-name marker.
func (e *Engine) GroupByTruck(ctx context.Context, from, to core.Date) ([]TruckGroup, error) {
	entries, err := e.store.ListEntries(ctx, from, to, 0)
	if err != nil {
		return nil, fmt.Errorf("group by truck: %w", err)
	}

	byTruck := make(map[int64]*TruckGroup)
	var order []int64
	for _, entry := range entries {
		g, ok := byTruck[entry.TruckID]
		if !ok {
			g = &TruckGroup{TruckID: entry.TruckID, TruckName: entry.DisplayTruck()}
			byTruck[entry.TruckID] = g
			order = append(order, entry.TruckID)
		}
		g.Entries = append(g.Entries, entry)
	}

	groups := make([]TruckGroup, 0, len(order))
	for _, id := range order {
		g := byTruck[id]
		sort.SliceStable(g.Entries, func(i, j int) bool {
			a, b := g.Entries[i], g.Entries[j]
			if !a.Date.Equal(b.Date.Time) {
				return a.Date.Before(b.Date.Time)
			}
			return a.ID < b.ID
		})
		g.Totals = e.summarize(g.Entries)
		groups = append(groups, *g)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].TruckName != groups[j].TruckName {
			return groups[i].TruckName < groups[j].TruckName
		}
		return groups[i].TruckID < groups[j].TruckID
	})

	return groups, nil
}

// DriverPay selects the driver-pay expenses for one driver (or all when
// driverID is 0) in [from,to]. Total is the sum of effective amounts.
// An empty selection is not an error; the report layer decides how to
// surface it.
func (e *Engine) DriverPay(ctx context.Context, driverID int64, from, to core.Date) (PaySelection, error) {
	entries, err := e.store.ListDriverPay(ctx, driverID, from, to)
	if err != nil {
		return PaySelection{}, fmt.Errorf("driver pay: %w", err)
	}

	sel := PaySelection{Entries: entries}
	for _, entry := range entries {
		sel.Total = sel.Total.Add(e.Effective(entry))
	}
	return sel, nil
}

// HSTExtract annotates every tax-inclusive expense with its embedded
// tax component, most recent first.
func (e *Engine) HSTExtract(ctx context.Context) (HSTExtract, error) {
	entries, err := e.store.ListHSTIncluded(ctx)
	if err != nil {
		return HSTExtract{}, fmt.Errorf("hst extract: %w", err)
	}

	var ex HSTExtract
	for _, entry := range entries {
		tax := core.TaxComponent(entry.Amount)
		ex.Rows = append(ex.Rows, HSTRow{Entry: entry, Tax: tax})
		ex.TotalTax = ex.TotalTax.Add(tax)
	}
	return ex, nil
}

// TruckName resolves a truck id to its display name, or the missing
// marker when it no longer exists.
func (e *Engine) TruckName(ctx context.Context, id int64) (string, error) {
	trucks, err := e.store.ListTrucks(ctx)
	if err != nil {
		return "", fmt.Errorf("truck name: %w", err)
	}
	for _, t := range trucks {
		if t.ID == id {
			return t.Name, nil
		}
	}
	return core.MissingName, nil
}

// DriverName resolves a driver id to its display name, or the missing
// marker when it no longer exists.
func (e *Engine) DriverName(ctx context.Context, id int64) (string, error) {
	drivers, err := e.store.ListDrivers(ctx)
	if err != nil {
		return "", fmt.Errorf("driver name: %w", err)
	}
	for _, d := range drivers {
		if d.ID == id {
			return d.Name, nil
		}
	}
	return core.MissingName, nil
}

// Policy exposes the engine's HST policy so the report layer can label
// documents consistently with the math behind them.
func (e *Engine) Policy() core.HSTPolicy {
	return e.policy
}

// Effective resolves the amount an entry is displayed and totaled at
// under the engine's HST policy.
func (e *Engine) Effective(entry core.Entry) core.Money {
	return core.EffectiveAmount(entry.Amount, entry.IsIncome, entry.HSTIncluded, e.policy)
}

func (e *Engine) summarize(entries []core.Entry) Summary {
	var s Summary
	for _, entry := range entries {
		if entry.IsIncome {
			s.Income = s.Income.Add(entry.Amount)
		} else {
			s.Expense = s.Expense.Add(e.Effective(entry))
		}
	}
	s.Profit = s.Income.Sub(s.Expense)
	return s
}
