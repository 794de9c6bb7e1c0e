package ledger

import (
	"strings"
	"time"

	"shopledger/internal/calendar"
	"shopledger/internal/domain"
)

// Aggregate sums the frozen totals of rows. An empty input is all zeros.
func Aggregate[T interface{ Amounts() domain.Totals }](rows []T) domain.Totals {
	var total domain.Totals
	for _, row := range rows {
		total = total.Add(row.Amounts())
	}
	return total
}

// FilterSales keeps sales dated inside the filter's inclusive bounds with at
// least one line whose name contains the search text. Order is preserved.
func (e *Engine) FilterSales(f domain.Filter) []domain.Sale {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return filterSales(e.sales, f, e.loc)
}

func (e *Engine) FilterProducts(search string) []domain.Product {
	needle := normalizeSearch(search)
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.Product, 0, len(e.products))
	for _, p := range e.products {
		if needle == "" || strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) FilterItems(f domain.Filter) []domain.LedgerItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return filterItems(e.items, f, e.loc)
}

// Summary reports the filtered and the overall totals of both the sales
// history and the manual ledger.
func (e *Engine) Summary(f domain.Filter) domain.Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	sales := filterSales(e.sales, f, e.loc)
	items := filterItems(e.items, f, e.loc)
	filtered := Aggregate(sales)
	grand := Aggregate(e.sales)
	return domain.Summary{
		Sales:          len(sales),
		Filtered:       filtered,
		Grand:          grand,
		FilteredLabels: filtered.Formatted(),
		GrandLabels:    grand.Formatted(),
		Items:          len(items),
		ItemsFiltered:  Aggregate(items),
		ItemsGrand:     Aggregate(e.items),
	}
}

func filterSales(sales []domain.Sale, f domain.Filter, loc *time.Location) []domain.Sale {
	r := calendar.Range{From: f.From, To: f.To}
	needle := normalizeSearch(f.Search)

	out := make([]domain.Sale, 0, len(sales))
	for _, s := range sales {
		if !inRange(s.Date, r, loc) {
			continue
		}
		if needle != "" && !saleMatches(s, needle) {
			continue
		}
		out = append(out, s)
	}
	return cloneSales(out)
}

func filterItems(items []domain.LedgerItem, f domain.Filter, loc *time.Location) []domain.LedgerItem {
	r := calendar.Range{From: f.From, To: f.To}
	needle := normalizeSearch(f.Search)

	out := make([]domain.LedgerItem, 0, len(items))
	for _, it := range items {
		if !inRange(it.Date, r, loc) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(it.Name), needle) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// inRange compares the record's day at midnight with the bounds. A record
// whose day cannot be read only survives an unbounded filter.
func inRange(day string, r calendar.Range, loc *time.Location) bool {
	if r.Unbounded() {
		return true
	}
	t, err := calendar.ParseDay(day, loc)
	if err != nil {
		return false
	}
	return r.Contains(t)
}

func saleMatches(s domain.Sale, needle string) bool {
	for _, line := range s.Items {
		if strings.Contains(strings.ToLower(line.Name), needle) {
			return true
		}
	}
	return false
}

func normalizeSearch(search string) string {
	return strings.ToLower(strings.TrimSpace(search))
}
