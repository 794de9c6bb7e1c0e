package domain

import (
	"time"

	"shopledger/internal/money"
)

type Product struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	BuyPrice  float64 `json:"buyPrice"`
	SellPrice float64 `json:"sellPrice"`
	StockQty  int     `json:"stockQty"`
}

type ProductInput struct {
	Name      string    `json:"name" validate:"required"`
	BuyPrice  money.Raw `json:"buyPrice"`
	SellPrice money.Raw `json:"sellPrice"`
	Qty       money.Raw `json:"qty"`
}

type SaleLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unitPrice"`
}

// Sale totals are frozen when the sale is registered.
type Sale struct {
	ID      string     `json:"id"`
	Date    string     `json:"date"`
	Items   []SaleLine `json:"items"`
	Revenue float64    `json:"revenue"`
	Cost    float64    `json:"cost"`
	Profit  float64    `json:"profit"`
}

func (s Sale) Amounts() Totals {
	return Totals{Revenue: s.Revenue, Cost: s.Cost, Profit: s.Profit}
}

type LineInput struct {
	ProductID string `json:"productId" validate:"required"`
	Qty       int    `json:"qty" validate:"gte=1"`
}

type SaleRequest struct {
	Date  string      `json:"date"`
	Items []LineInput `json:"items" validate:"required,min=1,dive"`
}

// SalePayload is the pre-built sale handed over by the point-of-sale
// screen. Its totals are trusted as computed by the caller.
type SalePayload struct {
	Date    string     `json:"date"`
	Items   []SaleLine `json:"items" validate:"required,min=1"`
	Revenue float64    `json:"revenue"`
	Cost    float64    `json:"cost"`
	Profit  float64    `json:"profit"`
}

// LedgerItem is a manually entered ledger row. Cost, Revenue and Profit
// are snapshot fields computed once at creation.
type LedgerItem struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	Name      string  `json:"name"`
	BuyPrice  float64 `json:"buyPrice"`
	SellPrice float64 `json:"sellPrice"`
	Qty       int     `json:"qty"`
	Cost      float64 `json:"cost"`
	Revenue   float64 `json:"revenue"`
	Profit    float64 `json:"profit"`
}

func (it LedgerItem) Amounts() Totals {
	return Totals{Revenue: it.Revenue, Cost: it.Cost, Profit: it.Profit}
}

type ItemInput struct {
	Date      string    `json:"date"`
	Name      string    `json:"name" validate:"required"`
	BuyPrice  money.Raw `json:"buyPrice"`
	SellPrice money.Raw `json:"sellPrice"`
	Qty       money.Raw `json:"qty"`
}

type Totals struct {
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
}

func (t Totals) Add(o Totals) Totals {
	return Totals{Revenue: t.Revenue + o.Revenue, Cost: t.Cost + o.Cost, Profit: t.Profit + o.Profit}
}

type FormattedTotals struct {
	Revenue string `json:"revenue"`
	Cost    string `json:"cost"`
	Profit  string `json:"profit"`
}

func (t Totals) Formatted() FormattedTotals {
	return FormattedTotals{
		Revenue: money.FormatCurrency(t.Revenue),
		Cost:    money.FormatCurrency(t.Cost),
		Profit:  money.FormatCurrency(t.Profit),
	}
}

// Filter selects ledger rows by inclusive calendar bounds and a
// case-insensitive name search. Nil bounds are unbounded.
type Filter struct {
	From   *time.Time
	To     *time.Time
	Search string
}

type Summary struct {
	Sales          int             `json:"sales"`
	Filtered       Totals          `json:"filtered"`
	Grand          Totals          `json:"grand"`
	FilteredLabels FormattedTotals `json:"filteredFormatted"`
	GrandLabels    FormattedTotals `json:"grandFormatted"`
	Items          int             `json:"items"`
	ItemsFiltered  Totals          `json:"itemsFiltered"`
	ItemsGrand     Totals          `json:"itemsGrand"`
}

const (
	EventProductAdded   = "product_added"
	EventProductDeleted = "product_deleted"
	EventSaleRegistered = "sale_registered"
	EventSalesCleared   = "sales_cleared"
	EventItemAdded      = "item_added"
	EventItemDeleted    = "item_deleted"
	EventItemsCleared   = "items_cleared"
)

// LedgerEvent announces a committed ledger mutation.
type LedgerEvent struct {
	Type     string    `json:"type"`
	EntityID string    `json:"entityId,omitempty"`
	Revenue  float64   `json:"revenue,omitempty"`
	At       time.Time `json:"at"`
}
