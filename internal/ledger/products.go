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

// AddProduct appends a catalog entry. Only an empty name is rejected; bad
// numbers coerce to zero and the quantity is floored and clamped at zero.
func (e *Engine) AddProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Product{}, fmt.Errorf("%w: product name is required", ErrValidation)
	}

	product := domain.Product{
		ID:        xid.New("prd"),
		Name:      name,
		BuyPrice:  in.BuyPrice.Float(),
		SellPrice: in.SellPrice.Float(),
		StockQty:  money.Int(string(in.Qty), 0),
	}

	e.mu.Lock()
	next := append(cloneProducts(e.products), product)
	if err := e.persist(ctx, pending{products: &next}); err != nil {
		e.mu.Unlock()
		return domain.Product{}, err
	}
	e.products = next
	e.mu.Unlock()

	e.logger.Info("product added", zap.String("product_id", product.ID), zap.String("name", product.Name))
	e.emit(ctx, domain.LedgerEvent{Type: domain.EventProductAdded, EntityID: product.ID})
	return product, nil
}

// DeleteProduct removes the product if present. Sales that reference it
// keep their historical lines.
func (e *Engine) DeleteProduct(ctx context.Context, id string) error {
	e.mu.Lock()
	next := make([]domain.Product, 0, len(e.products))
	for _, p := range e.products {
		if p.ID != id {
			next = append(next, p)
		}
	}
	removed := len(next) != len(e.products)
	if err := e.persist(ctx, pending{products: &next}); err != nil {
		e.mu.Unlock()
		return err
	}
	e.products = next
	e.mu.Unlock()

	if removed {
		e.emit(ctx, domain.LedgerEvent{Type: domain.EventProductDeleted, EntityID: id})
	}
	return nil
}

// Products returns a copy of the catalog in insertion order.
func (e *Engine) Products() []domain.Product {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneProducts(e.products)
}

// StockValue is what the remaining stock cost to buy.
func StockValue(p domain.Product) float64 {
	return p.BuyPrice * float64(p.StockQty)
}

func cloneProducts(in []domain.Product) []domain.Product {
	out := make([]domain.Product, len(in))
	copy(out, in)
	return out
}
