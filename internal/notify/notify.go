// Package notify fans committed ledger events out to live listeners:
// websocket clients, a Kafka topic and Prometheus counters.
package notify

import (
	"context"
	"errors"

	"shopledger/internal/domain"
)

type Notifier interface {
	Notify(ctx context.Context, event domain.LedgerEvent) error
}

type Noop struct{}

func (Noop) Notify(context.Context, domain.LedgerEvent) error {
	return nil
}

// Fanout delivers each event to every target and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, event domain.LedgerEvent) error {
	var errs []error
	for _, target := range f {
		if target == nil {
			continue
		}
		if err := target.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
