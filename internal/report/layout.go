// Package report renders the ledger's grouped, totaled data into
// paginated PDF documents and derives their artifact filenames.
//
// Pagination is soft: rows are emitted at a fixed pitch, and a page
// breaks when the next block would cross the bottom margin, never at a
// fixed row count. Every page repeats the company header and the column
// header row of the current section, and every page carries the company
// contact footer.
package report

import (
	"bytes"
	"fmt"
	"time"

	"truckbooks/internal/core"

	"github.com/phpdave11/gofpdf"
)

// Identity is the company block printed on every page, passed in at
// construction rather than read from ambient state.
type Identity struct {
	Name    string
	Address string
	Email   string
	Phones  string
}

// Column describes one column of a report table.
type Column struct {
	Title string
	Width float64
	Align string // "L", "C" or "R"
}

// Page geometry in millimetres, A4 portrait.
const (
	marginX   = 14.0
	marginTop = 14.0
	rowHeight = 7.0
	// bottomY is the soft page break threshold: a block that would end
	// below this line moves to a fresh page.
	bottomY = 266.0
)

type document struct {
	pdf       *gofpdf.Fpdf
	tr        func(string) string
	identity  Identity
	title     string
	cols      []Column
	generated time.Time
}

func newDocument(identity Identity, title string, cols []Column, generated time.Time) *document {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginX, marginTop, marginX)
	pdf.SetAutoPageBreak(false, 0)

	d := &document{
		pdf:       pdf,
		tr:        pdf.UnicodeTranslatorFromDescriptor(""),
		identity:  identity,
		title:     title,
		cols:      cols,
		generated: generated,
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-16)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(120, 120, 120)
		contact := identity.Name + "  |  " + identity.Email + "  |  " + identity.Phones
		pdf.CellFormat(0, 8, d.tr(contact), "", 0, "C", false, 0, "")
	})

	d.addPage()
	return d
}

// startSection switches to a new logical section (a new title and
// column layout) and opens a fresh page for it, restarting the header
// cycle.
func (d *document) startSection(title string, cols []Column) {
	d.title = title
	d.cols = cols
	d.addPage()
}

// addPage opens a page and emits the repeating header block: company
// identity, generation timestamp, report title and the column header
// row of the current section.
func (d *document) addPage() {
	pdf := d.pdf
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 7, d.tr(d.identity.Name), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 4, d.tr(d.identity.Address), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 4, d.tr(d.identity.Email+"  |  "+d.identity.Phones), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 4, "Generated: "+d.generated.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, d.tr(d.title), "", 1, "L", false, 0, "")
	pdf.Ln(1)

	d.columnHeader()
}

func (d *document) columnHeader() {
	if len(d.cols) == 0 {
		return
	}
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetTextColor(20, 20, 20)
	for i, c := range d.cols {
		ln := 0
		if i == len(d.cols)-1 {
			ln = 1
		}
		pdf.CellFormat(c.Width, rowHeight, d.tr(c.Title), "1", ln, c.Align, true, 0, "")
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)
}

// ensureRoom breaks the page when a block of the given height would
// cross the bottom margin.
func (d *document) ensureRoom(height float64) {
	if d.pdf.GetY()+height > bottomY {
		d.addPage()
	}
}

// row emits one data row under the current column layout.
func (d *document) row(cells []string) {
	d.ensureRoom(rowHeight)
	pdf := d.pdf
	for i, c := range d.cols {
		text := ""
		if i < len(cells) {
			text = cells[i]
		}
		ln := 0
		if i == len(d.cols)-1 {
			ln = 1
		}
		pdf.CellFormat(c.Width, rowHeight, d.tr(clip(text, c.Width)), "1", ln, c.Align, false, 0, "")
	}
}

// totalsBlock renders the income/expense/profit summary for a section,
// directly below its rows when space allows. Profit is green when
// non-negative and red otherwise.
func (d *document) totalsBlock(income, expense, profit core.Money) {
	const labelW, valueW = 40.0, 36.0
	blockH := 3*rowHeight + 4
	d.ensureRoom(blockH)

	pdf := d.pdf
	pdf.Ln(2)
	x := marginX + d.tableWidth() - labelW - valueW

	line := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetX(x)
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelW, rowHeight, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, rowHeight, value, "1", 1, "R", false, 0, "")
	}

	pdf.SetTextColor(20, 20, 20)
	line("Total Income", income.Format(), false)
	line("Total Expense", expense.Format(), false)

	if profit.Cents >= 0 {
		pdf.SetTextColor(0, 128, 0)
	} else {
		pdf.SetTextColor(200, 0, 0)
	}
	line("Profit / Loss", profit.Format(), true)
	pdf.SetTextColor(30, 30, 30)
	pdf.SetFont("Helvetica", "", 9)
}

// totalLine renders a single labeled total, for statements that carry
// one figure instead of the full income/expense/profit block.
func (d *document) totalLine(label string, amount core.Money) {
	const labelW, valueW = 40.0, 36.0
	d.ensureRoom(rowHeight + 4)

	pdf := d.pdf
	pdf.Ln(2)
	pdf.SetX(marginX + d.tableWidth() - labelW - valueW)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(20, 20, 20)
	pdf.CellFormat(labelW, rowHeight, label, "1", 0, "L", false, 0, "")
	pdf.CellFormat(valueW, rowHeight, amount.Format(), "1", 1, "R", false, 0, "")
	pdf.SetTextColor(30, 30, 30)
	pdf.SetFont("Helvetica", "", 9)
}

func (d *document) tableWidth() float64 {
	if len(d.cols) == 0 {
		return 182 // full A4 width inside the margins
	}
	var w float64
	for _, c := range d.cols {
		w += c.Width
	}
	return w
}

func (d *document) pageCount() int {
	return d.pdf.PageNo()
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// clip shortens text that cannot fit a column at the body font size.
// Roughly 2mm per character for 9pt Helvetica keeps rows on one line.
func clip(s string, width float64) string {
	max := int(width / 2)
	if max < 4 {
		max = 4
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
