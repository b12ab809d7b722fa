package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"truckbooks/internal/artifact"
	"truckbooks/internal/core"
	"truckbooks/internal/ledger"
)

// ErrNoData signals that the selection matched no entries. No artifact
// is produced; the caller surfaces "no data" instead of an empty
// document.
var ErrNoData = errors.New("no data for this selection")

// EventPublisher is notified after an artifact has been written. A nil
// publisher disables notification without affecting report generation.
type EventPublisher interface {
	ReportGenerated(ctx context.Context, filename, kind string) error
}

// Generator builds the four report kinds from the aggregation engine
// and writes them to the artifact store.
type Generator struct {
	engine    *ledger.Engine
	artifacts *artifact.Store
	identity  Identity
	events    EventPublisher
	now       func() time.Time
}

func NewGenerator(engine *ledger.Engine, artifacts *artifact.Store, identity Identity, events EventPublisher) *Generator {
	return &Generator{
		engine:    engine,
		artifacts: artifacts,
		identity:  identity,
		events:    events,
		now:       time.Now,
	}
}

var monthlyColumns = []Column{
	{Title: "Date", Width: 22, Align: "C"},
	{Title: "Type", Width: 18, Align: "C"},
	{Title: "Category", Width: 30, Align: "L"},
	{Title: "Description", Width: 60, Align: "L"},
	{Title: "HST Incl.", Width: 16, Align: "C"},
	{Title: "Amount", Width: 36, Align: "R"},
}

var driverPayColumns = []Column{
	{Title: "Date", Width: 26, Align: "C"},
	{Title: "Driver", Width: 36, Align: "L"},
	{Title: "Description", Width: 84, Align: "L"},
	{Title: "Amount", Width: 36, Align: "R"},
}

var hstColumns = []Column{
	{Title: "Date", Width: 26, Align: "C"},
	{Title: "Description", Width: 84, Align: "L"},
	{Title: "Amount", Width: 36, Align: "R"},
	{Title: "HST", Width: 36, Align: "R"},
}

// MonthlyTruck renders one truck's ledger for a calendar month.
func (g *Generator) MonthlyTruck(ctx context.Context, year, month int, truckID int64) (string, error) {
	from, to := monthRange(year, month)
	entries, sum, err := g.engine.Select(ctx, ledger.Filter{From: from, To: to, TruckID: truckID})
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", ErrNoData
	}

	truckName, err := g.engine.TruckName(ctx, truckID)
	if err != nil {
		return "", err
	}

	period := fmt.Sprintf("%04d-%02d", year, month)
	doc := newDocument(g.identity, "Monthly Report "+period+" / Truck "+truckName, monthlyColumns, g.now())
	g.entryRows(doc, entries)
	doc.totalsBlock(sum.Income, sum.Expense, sum.Profit)

	return g.publish(ctx, doc, "monthly", truckName, period)
}

// MonthlyAllTrucks renders every truck active in the month as an
// independent section with its own totals, followed by a final page
// with the combined period summary.
func (g *Generator) MonthlyAllTrucks(ctx context.Context, year, month int) (string, error) {
	from, to := monthRange(year, month)
	groups, err := g.engine.GroupByTruck(ctx, from, to)
	if err != nil {
		return "", err
	}
	if len(groups) == 0 {
		return "", ErrNoData
	}

	period := fmt.Sprintf("%04d-%02d", year, month)
	var doc *document
	var overall ledger.Summary
	for _, grp := range groups {
		title := "Monthly Report " + period + " / Truck " + grp.TruckName
		if doc == nil {
			doc = newDocument(g.identity, title, monthlyColumns, g.now())
		} else {
			doc.startSection(title, monthlyColumns)
		}
		g.entryRows(doc, grp.Entries)
		doc.totalsBlock(grp.Totals.Income, grp.Totals.Expense, grp.Totals.Profit)

		overall.Income = overall.Income.Add(grp.Totals.Income)
		overall.Expense = overall.Expense.Add(grp.Totals.Expense)
	}
	overall.Profit = overall.Income.Sub(overall.Expense)

	doc.startSection("Monthly Report "+period+" / All Trucks Summary", nil)
	doc.totalsBlock(overall.Income, overall.Expense, overall.Profit)

	return g.publish(ctx, doc, "monthly", "All", period)
}

// DriverPay renders a driver-pay statement for one driver, or for all
// drivers when driverID is 0.
func (g *Generator) DriverPay(ctx context.Context, driverID int64, from, to core.Date) (string, error) {
	sel, err := g.engine.DriverPay(ctx, driverID, from, to)
	if err != nil {
		return "", err
	}
	if len(sel.Entries) == 0 {
		return "", ErrNoData
	}

	scope := "All"
	if driverID > 0 {
		scope, err = g.engine.DriverName(ctx, driverID)
		if err != nil {
			return "", err
		}
	}

	rangeLabel := from.String() + " to " + to.String()
	doc := newDocument(g.identity, "Driver Pay Statement / "+scope+" / "+rangeLabel, driverPayColumns, g.now())
	for _, e := range sel.Entries {
		doc.row([]string{
			e.Date.String(),
			e.DisplayDriver(),
			e.Description,
			g.engine.Effective(e).Format(),
		})
	}
	doc.totalLine("Total Pay", sel.Total)

	return g.publish(ctx, doc, "driver_pay", scope, from.String()+"_"+to.String())
}

// HST renders the tax extract: every tax-inclusive expense with its
// embedded HST component, most recent first.
func (g *Generator) HST(ctx context.Context) (string, error) {
	ex, err := g.engine.HSTExtract(ctx)
	if err != nil {
		return "", err
	}
	if len(ex.Rows) == 0 {
		return "", ErrNoData
	}

	doc := newDocument(g.identity, "HST Report", hstColumns, g.now())
	for _, r := range ex.Rows {
		doc.row([]string{
			r.Entry.Date.String(),
			r.Entry.Description,
			r.Entry.Amount.Format(),
			r.Tax.Format(),
		})
	}
	doc.totalLine("Total HST", ex.TotalTax)

	return g.publish(ctx, doc, "hst", "All", g.now().Format("2006-01-02"))
}

func (g *Generator) entryRows(doc *document, entries []core.Entry) {
	for _, e := range entries {
		kind := "Expense"
		if e.IsIncome {
			kind = "Income"
		}
		hst := "No"
		if e.HSTIncluded {
			hst = "Yes"
		}
		doc.row([]string{
			e.Date.String(),
			kind,
			e.Category,
			e.Description,
			hst,
			g.engine.Effective(e).Format(),
		})
	}
}

// publish renders the document, writes it atomically under its derived
// name and notifies the event publisher.
func (g *Generator) publish(ctx context.Context, doc *document, kind, scope, period string) (string, error) {
	data, err := doc.bytes()
	if err != nil {
		return "", err
	}

	filename := BuildFilename(kind, scope, period)
	if err := g.artifacts.Write(filename, data); err != nil {
		return "", fmt.Errorf("store report: %w", err)
	}

	slog.InfoContext(ctx, "Report generated",
		"kind", kind,
		"scope", scope,
		"period", period,
		"filename", filename,
		"pages", doc.pageCount(),
		"bytes", len(data))

	if g.events != nil {
		if err := g.events.ReportGenerated(ctx, filename, kind); err != nil {
			// The artifact is already durable; a lost notification only
			// delays archiving.
			slog.WarnContext(ctx, "Failed to publish report event", "filename", filename, "error", err)
		}
	}

	return filename, nil
}

func monthRange(year, month int) (core.Date, core.Date) {
	from := core.NewDate(year, month, 1)
	to := core.Date{Time: from.AddDate(0, 1, -1)}
	return from, to
}
