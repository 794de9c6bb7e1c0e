package ledger

import (
	"encoding/json"
	"math"

	"shopledger/internal/domain"
	"shopledger/internal/money"
	"shopledger/internal/store"
)

var (
	productsCollection = store.Collection[domain.Product]{Key: store.ProductsKey, Legacy: decodeLegacyProducts}
	salesCollection    = store.Collection[domain.Sale]{Key: store.SalesKey, Legacy: decodeLegacySales}
	itemsCollection    = store.Collection[domain.LedgerItem]{Key: store.ItemsKey, Legacy: decodeLegacyItems}
)

// Schema version 1 is the bare arrays written by the browser ledger, with
// short field names and loosely typed numbers.

type legacyProduct struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Buy  money.Raw `json:"buy"`
	Sell money.Raw `json:"sell"`
	Qty  money.Raw `json:"qty"`
}

type legacySaleLine struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Qty   money.Raw `json:"qty"`
	Price money.Raw `json:"price"`
}

type legacySale struct {
	ID      string           `json:"id"`
	Date    string           `json:"date"`
	Items   []legacySaleLine `json:"items"`
	Revenue money.Raw        `json:"revenue"`
	Cost    money.Raw        `json:"cost"`
	Profit  money.Raw        `json:"profit"`
}

type legacyItem struct {
	ID      string    `json:"id"`
	Date    string    `json:"date"`
	Name    string    `json:"name"`
	Buy     money.Raw `json:"buy"`
	Sell    money.Raw `json:"sell"`
	Qty     money.Raw `json:"qty"`
	Cost    money.Raw `json:"cost"`
	Revenue money.Raw `json:"revenue"`
	Profit  money.Raw `json:"profit"`
}

func decodeLegacyProducts(data []byte) ([]domain.Product, error) {
	var rows []legacyProduct
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Product{
			ID:        r.ID,
			Name:      r.Name,
			BuyPrice:  r.Buy.Float(),
			SellPrice: r.Sell.Float(),
			StockQty:  money.Int(string(r.Qty), 0),
		})
	}
	return out, nil
}

func decodeLegacySales(data []byte) ([]domain.Sale, error) {
	var rows []legacySale
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Sale, 0, len(rows))
	for _, r := range rows {
		lines := make([]domain.SaleLine, 0, len(r.Items))
		for _, l := range r.Items {
			lines = append(lines, domain.SaleLine{
				ProductID: l.ID,
				Name:      l.Name,
				Qty:       int(math.Floor(l.Qty.Float())),
				UnitPrice: l.Price.Float(),
			})
		}
		out = append(out, domain.Sale{
			ID:      r.ID,
			Date:    r.Date,
			Items:   lines,
			Revenue: r.Revenue.Float(),
			Cost:    r.Cost.Float(),
			Profit:  r.Profit.Float(),
		})
	}
	return out, nil
}

// Legacy item snapshots are kept as stored, never recomputed.
func decodeLegacyItems(data []byte) ([]domain.LedgerItem, error) {
	var rows []legacyItem
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	out := make([]domain.LedgerItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.LedgerItem{
			ID:        r.ID,
			Date:      r.Date,
			Name:      r.Name,
			BuyPrice:  r.Buy.Float(),
			SellPrice: r.Sell.Float(),
			Qty:       money.Int(string(r.Qty), 1),
			Cost:      r.Cost.Float(),
			Revenue:   r.Revenue.Float(),
			Profit:    r.Profit.Float(),
		})
	}
	return out, nil
}
