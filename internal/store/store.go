package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

var ErrClosed = errors.New("store closed")

// Fixed keys of the persisted collections.
const (
	ProductsKey = "shop_products_v1"
	SalesKey    = "shop_sales_v1"
	ItemsKey    = "shop_items_v1"
)

// SchemaVersion is written into every envelope. Bare JSON arrays written
// by the browser ledger are schema version 1.
const SchemaVersion = 2

// KV is a synchronous key-value store. Get reports ok=false for an absent
// key. Set overwrites the whole value.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Batcher is implemented by backends that can write several keys all or
// nothing.
type Batcher interface {
	SetMany(ctx context.Context, values map[string][]byte) error
}

// SetAll writes values through SetMany when kv supports it, otherwise key
// by key in sorted order.
func SetAll(ctx context.Context, kv KV, values map[string][]byte) error {
	if b, ok := kv.(Batcher); ok {
		return b.SetMany(ctx, values)
	}
	for _, key := range sortedKeys(values) {
		if err := kv.Set(ctx, key, values[key]); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

type envelope struct {
	SchemaVersion int             `json:"schema_version"`
	Records       json.RawMessage `json:"records"`
}

// Collection is the versioned codec of one keyed record list.
type Collection[T any] struct {
	Key string
	// Legacy decodes a schema version 1 bare array. Nil means version 1
	// records share the current shape.
	Legacy func(data []byte) ([]T, error)
}

// Load never fails: absent keys, read errors, malformed JSON and unknown
// schema versions all yield an empty collection.
func (c Collection[T]) Load(ctx context.Context, kv KV, logger *zap.Logger) []T {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.With(zap.String("key", c.Key))

	raw, ok, err := kv.Get(ctx, c.Key)
	if err != nil {
		log.Warn("collection read failed, starting empty", zap.Error(err))
		return []T{}
	}
	if !ok {
		return []T{}
	}
	records, err := c.Decode(raw)
	if err != nil {
		log.Warn("collection unreadable, starting empty", zap.Error(err))
		return []T{}
	}
	return records
}

func (c Collection[T]) Decode(raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		if c.Legacy != nil {
			return nonNil(c.Legacy(trimmed))
		}
		var records []T
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return nonNil(records, nil)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	if env.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d", env.SchemaVersion)
	}
	var records []T
	if len(env.Records) > 0 {
		if err := json.Unmarshal(env.Records, &records); err != nil {
			return nil, err
		}
	}
	return nonNil(records, nil)
}

func (c Collection[T]) Encode(records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	body, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{SchemaVersion: SchemaVersion, Records: body})
}

// Save encodes and writes records under the collection key.
func (c Collection[T]) Save(ctx context.Context, kv KV, records []T) error {
	payload, err := c.Encode(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.Key, err)
	}
	return kv.Set(ctx, c.Key, payload)
}

func nonNil[T any](records []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if records == nil {
		return []T{}, nil
	}
	return records, nil
}

func sortedKeys(values map[string][]byte) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
