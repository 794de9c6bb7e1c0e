package ledger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shopledger/internal/domain"
	"shopledger/internal/xid"
)

// RegisterSale prices every line from the catalog as it stands now and
// deducts stock. A line asking for more than is in stock still sells; the
// stock is clamped at zero. Products and sales are persisted together and
// nothing changes in memory unless that write succeeds.
func (e *Engine) RegisterSale(ctx context.Context, date string, lines []domain.LineInput) (domain.Sale, error) {
	day, err := e.dayOrToday(date)
	if err != nil {
		return domain.Sale{}, err
	}
	if len(lines) == 0 {
		return domain.Sale{}, fmt.Errorf("%w: a sale needs at least one item", ErrValidation)
	}
	for _, line := range lines {
		if line.Qty < 1 {
			return domain.Sale{}, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
		}
	}

	e.mu.Lock()
	products := cloneProducts(e.products)
	index := productIndex(products)

	sale := domain.Sale{
		ID:    xid.New("sale"),
		Date:  day,
		Items: make([]domain.SaleLine, 0, len(lines)),
	}
	for _, line := range lines {
		i, ok := index[strings.TrimSpace(line.ProductID)]
		if !ok {
			e.mu.Unlock()
			return domain.Sale{}, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
		}
		p := &products[i]
		sale.Items = append(sale.Items, domain.SaleLine{
			ProductID: p.ID,
			Name:      p.Name,
			Qty:       line.Qty,
			UnitPrice: p.SellPrice,
		})
		sale.Revenue += p.SellPrice * float64(line.Qty)
		sale.Cost += p.BuyPrice * float64(line.Qty)
		p.StockQty = deduct(p.StockQty, line.Qty)
	}
	sale.Profit = sale.Revenue - sale.Cost

	sales := append(cloneSales(e.sales), sale)
	if err := e.persist(ctx, pending{products: &products, sales: &sales}); err != nil {
		e.mu.Unlock()
		return domain.Sale{}, err
	}
	e.products = products
	e.sales = sales
	e.mu.Unlock()

	e.logger.Info("sale registered",
		zap.String("sale_id", sale.ID),
		zap.String("date", sale.Date),
		zap.Int("lines", len(sale.Items)),
		zap.Float64("revenue", sale.Revenue),
	)
	e.emit(ctx, domain.LedgerEvent{Type: domain.EventSaleRegistered, EntityID: sale.ID, Revenue: sale.Revenue})
	return sale, nil
}

// RecordSale stores a sale built by the point-of-sale screen. Its totals
// are taken as given; quantities are summed per product and deducted with
// the same clamp as RegisterSale. Lines for products no longer in the
// catalog are kept on the sale but deduct nothing.
func (e *Engine) RecordSale(ctx context.Context, payload domain.SalePayload) error {
	day, err := e.dayOrToday(payload.Date)
	if err != nil {
		return err
	}
	if len(payload.Items) == 0 {
		return fmt.Errorf("%w: a sale needs at least one item", ErrValidation)
	}

	want := make(map[string]int, len(payload.Items))
	lines := make([]domain.SaleLine, 0, len(payload.Items))
	for _, it := range payload.Items {
		if it.Qty < 1 {
			return fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
		}
		want[it.ProductID] += it.Qty
		lines = append(lines, it)
	}

	sale := domain.Sale{
		ID:      xid.New("sale"),
		Date:    day,
		Items:   lines,
		Revenue: payload.Revenue,
		Cost:    payload.Cost,
		Profit:  payload.Profit,
	}

	e.mu.Lock()
	products := cloneProducts(e.products)
	for i := range products {
		if qty, ok := want[products[i].ID]; ok {
			products[i].StockQty = deduct(products[i].StockQty, qty)
		}
	}
	sales := append(cloneSales(e.sales), sale)
	if err := e.persist(ctx, pending{products: &products, sales: &sales}); err != nil {
		e.mu.Unlock()
		return err
	}
	e.products = products
	e.sales = sales
	e.mu.Unlock()

	e.logger.Info("point-of-sale sale recorded", zap.String("sale_id", sale.ID), zap.Float64("revenue", sale.Revenue))
	e.emit(ctx, domain.LedgerEvent{Type: domain.EventSaleRegistered, EntityID: sale.ID, Revenue: sale.Revenue})
	return nil
}

// ClearSales drops the whole sales history. Stock is not restored.
func (e *Engine) ClearSales(ctx context.Context) error {
	e.mu.Lock()
	empty := []domain.Sale{}
	if err := e.persist(ctx, pending{sales: &empty}); err != nil {
		e.mu.Unlock()
		return err
	}
	e.sales = empty
	e.mu.Unlock()

	e.logger.Info("sales cleared")
	e.emit(ctx, domain.LedgerEvent{Type: domain.EventSalesCleared})
	return nil
}

// Sales returns a copy of the history in registration order.
func (e *Engine) Sales() []domain.Sale {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneSales(e.sales)
}

func deduct(stock, qty int) int {
	if qty >= stock {
		return 0
	}
	return stock - qty
}

func productIndex(products []domain.Product) map[string]int {
	index := make(map[string]int, len(products))
	for i, p := range products {
		if _, dup := index[p.ID]; !dup {
			index[p.ID] = i
		}
	}
	return index
}

// cloneSales copies the line slices too, so callers can never alias the
// frozen history.
func cloneSales(in []domain.Sale) []domain.Sale {
	out := make([]domain.Sale, len(in))
	for i, s := range in {
		lines := make([]domain.SaleLine, len(s.Items))
		copy(lines, s.Items)
		s.Items = lines
		out[i] = s
	}
	return out
}
