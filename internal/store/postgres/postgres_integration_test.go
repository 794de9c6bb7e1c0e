package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestSetManyAndGet(t *testing.T) {
	databaseURL := os.Getenv("SHOPLEDGER_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set SHOPLEDGER_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productsKey := fmt.Sprintf("it-products-%d", stamp)
	salesKey := fmt.Sprintf("it-sales-%d", stamp)
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM ledger_kv WHERE key = ANY($1)`, []string{productsKey, salesKey})
	})

	if _, ok, err := s.Get(ctx, productsKey); err != nil || ok {
		t.Fatalf("expected absent key, ok=%t err=%v", ok, err)
	}

	err = s.SetMany(ctx, map[string][]byte{
		productsKey: []byte(`{"schema_version":2,"records":[]}`),
		salesKey:    []byte(`{"schema_version":2,"records":[{"id":"s1"}]}`),
	})
	if err != nil {
		t.Fatalf("set many: %v", err)
	}

	value, ok, err := s.Get(ctx, salesKey)
	if err != nil || !ok {
		t.Fatalf("get: ok=%t err=%v", ok, err)
	}
	if len(value) == 0 {
		t.Fatalf("expected stored value")
	}
}
