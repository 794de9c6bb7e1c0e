package export

import (
	"errors"
	"testing"
	"time"

	"shopledger/internal/domain"
)

func TestEscape(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"plain", "plain"},
		{"a,b", `"a,b"`},
		{`say "hi"`, `"say ""hi"""`},
		{"two\nlines", "\"two\nlines\""},
		{nil, ""},
		{40.0, "40"},
		{12.5, "12.5"},
		{3, "3"},
	}
	for _, tc := range cases {
		if got := Escape(tc.in); got != tc.want {
			t.Fatalf("Escape(%#v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestToCSV(t *testing.T) {
	got := ToCSV([]string{"Name", "Qty"}, [][]any{{"Pen, blue", 4}, {"Ink", nil}})
	want := "Name,Qty\n\"Pen, blue\",4\nInk,"
	if got != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", got, want)
	}
	if got := ToCSV([]string{"Only"}, nil); got != "Only" {
		t.Fatalf("expected header-only csv, got %q", got)
	}
}

func TestSalesTable(t *testing.T) {
	if _, err := SalesTable(nil); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}

	table, err := SalesTable([]domain.Sale{{
		Date:    "2024-05-02",
		Items:   []domain.SaleLine{{Name: "Pen", Qty: 4}, {Name: "Ink", Qty: 1}},
		Revenue: 40, Cost: 20, Profit: 20,
	}})
	if err != nil {
		t.Fatalf("sales table: %v", err)
	}
	want := "Date,Items,Revenue,Cost,Profit\n2024-05-02,Pen x4; Ink x1,40,20,20"
	if got := table.CSV(); got != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", got, want)
	}
}

func TestItemsAndProductsTables(t *testing.T) {
	items := ItemsTable([]domain.LedgerItem{{Date: "2024-05-02", Name: "Tea", BuyPrice: 5, SellPrice: 8, Qty: 2, Cost: 10, Revenue: 16, Profit: 6}})
	if got := items.CSV(); got != "Date,Item Name,Purchase (per unit),Sale (per unit),Qty,Cost,Revenue,Profit\n2024-05-02,Tea,5,8,2,10,16,6" {
		t.Fatalf("unexpected items csv %q", got)
	}

	products := ProductsTable([]domain.Product{{Name: "Pen", BuyPrice: 5, SellPrice: 10, StockQty: 96}})
	if got := products.Rows[0][4]; got != 480.0 {
		t.Fatalf("expected stock value 480, got %v", got)
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2024, time.May, 2, 18, 0, 0, 0, time.UTC)
	if got := Filename("sales", now); got != "sales-2024-05-02.csv" {
		t.Fatalf("unexpected filename %s", got)
	}
}
