package report

import (
	"fmt"
	"testing"
	"time"

	"truckbooks/internal/core"
)

var testIdentity = Identity{
	Name:    "Northbound Haulage Inc.",
	Address: "1 Yard Rd, Caledonia ON",
	Email:   "office@northbound.example",
	Phones:  "555-0101, 555-0102",
}

var testColumns = []Column{
	{Title: "Date", Width: 30, Align: "C"},
	{Title: "Description", Width: 116, Align: "L"},
	{Title: "Amount", Width: 36, Align: "R"},
}

func testDoc() *document {
	return newDocument(testIdentity, "Test Report", testColumns, time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC))
}

// pageCapacity finds how many rows fit on the first page by emitting
// rows until the layout breaks to page two.
func pageCapacity(t *testing.T) int {
	t.Helper()
	doc := testDoc()
	for i := 1; i <= 200; i++ {
		doc.row([]string{"2024-06-01", fmt.Sprintf("row %d", i), "1.00"})
		if doc.pageCount() == 2 {
			return i - 1
		}
	}
	t.Fatal("never paginated within 200 rows")
	return 0
}

func TestSoftPaginationBreaksExactlyAtCapacity(t *testing.T) {
	n := pageCapacity(t)
	if n < 10 {
		t.Fatalf("implausible page capacity %d", n)
	}

	full := testDoc()
	for i := 0; i < n; i++ {
		full.row([]string{"2024-06-01", "row", "1.00"})
	}
	if full.pageCount() != 1 {
		t.Fatalf("%d rows should fit one page, got %d pages", n, full.pageCount())
	}

	over := testDoc()
	for i := 0; i < n+1; i++ {
		over.row([]string{"2024-06-01", "row", "1.00"})
	}
	if over.pageCount() != 2 {
		t.Fatalf("%d rows should take exactly 2 pages, got %d", n+1, over.pageCount())
	}
}

func TestTotalsBlockPushedToNextPageWhenTight(t *testing.T) {
	n := pageCapacity(t)

	doc := testDoc()
	for i := 0; i < n; i++ {
		doc.row([]string{"2024-06-01", "row", "1.00"})
	}
	// page one is full of rows: the totals block must not overlap the
	// bottom margin, it moves to page two.
	doc.totalsBlock(core.Money{Cents: 100000}, core.Money{Cents: 11300}, core.Money{Cents: 88700})
	if doc.pageCount() != 2 {
		t.Fatalf("totals block should push to a new page, got %d pages", doc.pageCount())
	}
}

func TestStartSectionOpensNewPage(t *testing.T) {
	doc := testDoc()
	doc.row([]string{"2024-06-01", "row", "1.00"})
	before := doc.pageCount()
	doc.startSection("Second Section", testColumns)
	if doc.pageCount() != before+1 {
		t.Fatal("a new section must restart the header cycle on a fresh page")
	}
}

func TestDocumentOutputsPDF(t *testing.T) {
	doc := testDoc()
	doc.row([]string{"2024-06-01", "haul to Windsor", "1,000.00"})
	doc.totalsBlock(core.Money{Cents: 100000}, core.Money{Cents: 0}, core.Money{Cents: 100000})

	data, err := doc.bytes()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(data) < 4 || string(data[:4]) != "%PDF" {
		t.Fatalf("output is not a PDF: %q", data[:4])
	}
}

func TestBuildFilename(t *testing.T) {
	cases := []struct {
		kind, scope, period string
		want                string
	}{
		{"monthly", "Truck 12", "2024-06", "monthly_Truck_12_2024-06.pdf"},
		{"driver_pay", "H. Singh", "2024-06-01_2024-06-30", "driver_pay_H._Singh_2024-06-01_2024-06-30.pdf"},
		{"monthly", "All", "2024-06", "monthly_All_2024-06.pdf"},
		{"hst", "", "2024-06-30", "hst_All_2024-06-30.pdf"},
		{"monthly", "../evil", "2024-06", "monthly_-evil_2024-06.pdf"},
		{"monthly", core.MissingName, "2024-06", "monthly_-_2024-06.pdf"},
	}
	for _, tc := range cases {
		if got := BuildFilename(tc.kind, tc.scope, tc.period); got != tc.want {
			t.Errorf("BuildFilename(%q, %q, %q) = %q, want %q", tc.kind, tc.scope, tc.period, got, tc.want)
		}
	}
}
