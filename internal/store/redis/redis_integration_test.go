package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func TestRoundTripWithPrefix(t *testing.T) {
	addr := os.Getenv("SHOPLEDGER_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set SHOPLEDGER_TEST_REDIS_ADDR to run redis integration test")
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("it-%d:", time.Now().UnixNano())
	s := New(addr, os.Getenv("SHOPLEDGER_TEST_REDIS_PASSWORD"), 0, prefix)
	t.Cleanup(func() {
		_ = s.client.Del(ctx, prefix+"products", prefix+"sales").Err()
		_ = s.Close()
	})
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if _, ok, err := s.Get(ctx, "products"); err != nil || ok {
		t.Fatalf("expected absent key, ok=%t err=%v", ok, err)
	}
	if err := s.SetMany(ctx, map[string][]byte{"products": []byte("[]"), "sales": []byte("[1]")}); err != nil {
		t.Fatalf("set many: %v", err)
	}
	value, ok, err := s.Get(ctx, "sales")
	if err != nil || !ok || string(value) != "[1]" {
		t.Fatalf("unexpected get: %s ok=%t err=%v", value, ok, err)
	}
}
