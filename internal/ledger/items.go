package ledger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shopledger/internal/domain"
	"shopledger/internal/money"
	"shopledger/internal/xid"
)

// CalcRow derives the snapshot totals of qty units bought at buy and sold
// at sell.
func CalcRow(buy, sell float64, qty int) domain.Totals {
	cost := buy * float64(qty)
	revenue := sell * float64(qty)
	return domain.Totals{Revenue: revenue, Cost: cost, Profit: revenue - cost}
}

// AddItem records a manual ledger row. The derived totals are computed
// here once and stored with the row.
func (e *Engine) AddItem(ctx context.Context, in domain.ItemInput) (domain.LedgerItem, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.LedgerItem{}, fmt.Errorf("%w: item name is required", ErrValidation)
	}
	day, err := e.dayOrToday(strings.TrimSpace(in.Date))
	if err != nil {
		return domain.LedgerItem{}, err
	}

	buy, sell := in.BuyPrice.Float(), in.SellPrice.Float()
	qty := money.Int(string(in.Qty), 1)
	row := CalcRow(buy, sell, qty)
	item := domain.LedgerItem{
		ID:        xid.New("itm"),
		Date:      day,
		Name:      name,
		BuyPrice:  buy,
		SellPrice: sell,
		Qty:       qty,
		Cost:      row.Cost,
		Revenue:   row.Revenue,
		Profit:    row.Profit,
	}

	e.mu.Lock()
	next := append(cloneItems(e.items), item)
	if err := e.persist(ctx, pending{items: &next}); err != nil {
		e.mu.Unlock()
		return domain.LedgerItem{}, err
	}
	e.items = next
	e.mu.Unlock()

	e.logger.Info("ledger item added", zap.String("item_id", item.ID), zap.String("date", item.Date))
	e.emit(ctx, domain.LedgerEvent{Type: domain.EventItemAdded, EntityID: item.ID, Revenue: item.Revenue})
	return item, nil
}

// DeleteItem removes the row if present.
func (e *Engine) DeleteItem(ctx context.Context, id string) error {
	e.mu.Lock()
	next := make([]domain.LedgerItem, 0, len(e.items))
	for _, it := range e.items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	removed := len(next) != len(e.items)
	if err := e.persist(ctx, pending{items: &next}); err != nil {
		e.mu.Unlock()
		return err
	}
	e.items = next
	e.mu.Unlock()

	if removed {
		e.emit(ctx, domain.LedgerEvent{Type: domain.EventItemDeleted, EntityID: id})
	}
	return nil
}

func (e *Engine) ClearItems(ctx context.Context) error {
	e.mu.Lock()
	empty := []domain.LedgerItem{}
	if err := e.persist(ctx, pending{items: &empty}); err != nil {
		e.mu.Unlock()
		return err
	}
	e.items = empty
	e.mu.Unlock()

	e.logger.Info("ledger items cleared")
	e.emit(ctx, domain.LedgerEvent{Type: domain.EventItemsCleared})
	return nil
}

func (e *Engine) Items() []domain.LedgerItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneItems(e.items)
}

func cloneItems(in []domain.LedgerItem) []domain.LedgerItem {
	out := make([]domain.LedgerItem, len(in))
	copy(out, in)
	return out
}
