// Package export renders ledger rows as CSV text. Packaging the text as a
// download is left to the caller.
package export

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shopledger/internal/calendar"
	"shopledger/internal/domain"
)

var ErrNothingToExport = errors.New("nothing to export for the selected range")

// Escape quotes a field that contains a comma, a double quote or a newline,
// doubling any inner quotes. Nil renders as an empty field.
func Escape(value any) string {
	if value == nil {
		return ""
	}
	s := fieldString(value)
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func fieldString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// ToCSV joins the header row and data rows with commas and newlines.
func ToCSV(headers []string, rows [][]any) string {
	lines := make([]string, 0, len(rows)+1)
	header := make([]string, len(headers))
	for i, h := range headers {
		header[i] = Escape(h)
	}
	lines = append(lines, strings.Join(header, ","))
	for _, row := range rows {
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = Escape(v)
		}
		lines = append(lines, strings.Join(fields, ","))
	}
	return strings.Join(lines, "\n")
}

// Filename embeds the calendar day of now, e.g. "sales-2024-05-02.csv".
func Filename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s.csv", prefix, calendar.TodayKey(now))
}

// Table is a header row plus data rows ready for ToCSV.
type Table struct {
	Headers []string
	Rows    [][]any
}

func (t Table) CSV() string {
	return ToCSV(t.Headers, t.Rows)
}

// SalesTable fails with ErrNothingToExport for an empty selection.
func SalesTable(sales []domain.Sale) (Table, error) {
	if len(sales) == 0 {
		return Table{}, ErrNothingToExport
	}
	rows := make([][]any, 0, len(sales))
	for _, s := range sales {
		rows = append(rows, []any{s.Date, ItemsSummary(s.Items, "; "), s.Revenue, s.Cost, s.Profit})
	}
	return Table{Headers: []string{"Date", "Items", "Revenue", "Cost", "Profit"}, Rows: rows}, nil
}

// ItemsSummary renders sale lines as "Pen x4" joined by sep.
func ItemsSummary(lines []domain.SaleLine, sep string) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, fmt.Sprintf("%s x%d", line.Name, line.Qty))
	}
	return strings.Join(parts, sep)
}

func ItemsTable(items []domain.LedgerItem) Table {
	rows := make([][]any, 0, len(items))
	for _, it := range items {
		rows = append(rows, []any{it.Date, it.Name, it.BuyPrice, it.SellPrice, it.Qty, it.Cost, it.Revenue, it.Profit})
	}
	return Table{
		Headers: []string{"Date", "Item Name", "Purchase (per unit)", "Sale (per unit)", "Qty", "Cost", "Revenue", "Profit"},
		Rows:    rows,
	}
}

func ProductsTable(products []domain.Product) Table {
	rows := make([][]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, []any{p.Name, p.BuyPrice, p.SellPrice, p.StockQty, p.BuyPrice * float64(p.StockQty)})
	}
	return Table{Headers: []string{"Name", "Buy", "Sell", "Qty", "Stock Value"}, Rows: rows}
}
