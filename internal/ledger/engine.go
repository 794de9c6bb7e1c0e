// Package ledger owns the product catalog, the sales history and the
// manual ledger rows. Every mutation runs read-modify-persist under one
// lock and only commits to memory once the store accepted the write.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"shopledger/internal/calendar"
	"shopledger/internal/domain"
	"shopledger/internal/notify"
	"shopledger/internal/store"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrProductNotFound = errors.New("product not found")
)

type Options struct {
	Logger   *zap.Logger
	Notifier notify.Notifier
	// Now defaults to time.Now.
	Now func() time.Time
	// Location is the shop's calendar; defaults to time.Local.
	Location *time.Location
}

type Engine struct {
	mu       sync.RWMutex
	kv       store.KV
	products []domain.Product
	sales    []domain.Sale
	items    []domain.LedgerItem

	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
	loc      *time.Location
}

// Open loads all collections from kv. Unreadable collections start empty.
func Open(ctx context.Context, kv store.KV, opts Options) (*Engine, error) {
	if kv == nil {
		return nil, errors.New("ledger: nil store")
	}
	e := &Engine{
		kv:       kv,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      opts.Now,
		loc:      opts.Location,
	}
	if e.notifier == nil {
		e.notifier = notify.Noop{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.With(zap.String("component", "ledger"))
	if e.now == nil {
		e.now = time.Now
	}
	if e.loc == nil {
		e.loc = time.Local
	}

	e.products = productsCollection.Load(ctx, kv, e.logger)
	e.sales = salesCollection.Load(ctx, kv, e.logger)
	e.items = itemsCollection.Load(ctx, kv, e.logger)

	e.logger.Info("ledger loaded",
		zap.Int("products", len(e.products)),
		zap.Int("sales", len(e.sales)),
		zap.Int("items", len(e.items)),
	)
	return e, nil
}

// Location is the calendar every day key is interpreted in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Now is the engine clock in the ledger location.
func (e *Engine) Now() time.Time {
	return e.now().In(e.loc)
}

// Today is the current calendar day key.
func (e *Engine) Today() string {
	return calendar.TodayKey(e.Now())
}

// dayOrToday returns the normalized day key, or today when raw is blank.
func (e *Engine) dayOrToday(raw string) (string, error) {
	if raw == "" {
		return e.Today(), nil
	}
	day, err := calendar.ParseDay(raw, e.loc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return day.Format(calendar.DayLayout), nil
}

type pending struct {
	products *[]domain.Product
	sales    *[]domain.Sale
	items    *[]domain.LedgerItem
}

// persist writes the collections set in p in one batch when the store
// supports it.
func (e *Engine) persist(ctx context.Context, p pending) error {
	values := make(map[string][]byte, 3)
	if p.products != nil {
		raw, err := productsCollection.Encode(*p.products)
		if err != nil {
			return fmt.Errorf("encode products: %w", err)
		}
		values[store.ProductsKey] = raw
	}
	if p.sales != nil {
		raw, err := salesCollection.Encode(*p.sales)
		if err != nil {
			return fmt.Errorf("encode sales: %w", err)
		}
		values[store.SalesKey] = raw
	}
	if p.items != nil {
		raw, err := itemsCollection.Encode(*p.items)
		if err != nil {
			return fmt.Errorf("encode items: %w", err)
		}
		values[store.ItemsKey] = raw
	}
	if len(values) == 1 {
		for key, raw := range values {
			if err := e.kv.Set(ctx, key, raw); err != nil {
				return fmt.Errorf("persist %s: %w", key, err)
			}
		}
		return nil
	}
	if err := store.SetAll(ctx, e.kv, values); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

// emit runs after the lock is released. Failures are only logged.
func (e *Engine) emit(ctx context.Context, event domain.LedgerEvent) {
	event.At = e.now().UTC()
	if err := e.notifier.Notify(ctx, event); err != nil {
		e.logger.Warn("ledger event not delivered",
			zap.String("type", event.Type),
			zap.String("entity_id", event.EntityID),
			zap.Error(err),
		)
	}
}
