package memory

import (
	"context"
	"errors"
	"testing"

	"shopledger/internal/store"
)

func TestGetMissingKey(t *testing.T) {
	s := New()
	_, ok, err := s.Get(context.Background(), "nope")
	if err != nil || ok {
		t.Fatalf("expected absent key, got ok=%t err=%v", ok, err)
	}
}

func TestSetCopiesValue(t *testing.T) {
	s := New()
	ctx := context.Background()
	value := []byte(`[1]`)
	if err := s.Set(ctx, "k", value); err != nil {
		t.Fatalf("set: %v", err)
	}
	value[1] = '9'

	got, ok, err := s.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%t err=%v", ok, err)
	}
	if string(got) != `[1]` {
		t.Fatalf("expected stored copy to be unchanged, got %s", got)
	}
}

func TestSetManyAndClose(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.SetMany(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}); err != nil {
		t.Fatalf("set many: %v", err)
	}
	if got, _, _ := s.Get(ctx, "b"); string(got) != "2" {
		t.Fatalf("expected b=2, got %s", got)
	}

	_ = s.Close()
	if err := s.Set(ctx, "a", nil); !errors.Is(err, store.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
