package store_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"shopledger/internal/store"
	"shopledger/internal/store/memory"
)

type record struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var records = store.Collection[record]{Key: "records"}

func TestCollectionRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	want := []record{{ID: "1", Name: "Pen"}, {ID: "2", Name: "Ink, blue"}}

	if err := records.Save(ctx, kv, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := records.Load(ctx, kv, nil)
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	raw, _, _ := kv.Get(ctx, "records")
	if !strings.Contains(string(raw), `"schema_version":2`) {
		t.Fatalf("expected versioned envelope, got %s", raw)
	}
}

func TestLoadNeverWrittenKeyIsEmpty(t *testing.T) {
	got := records.Load(context.Background(), memory.New(), nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestLoadMalformedIsEmpty(t *testing.T) {
	for _, raw := range []string{`{not json`, `{"schema_version":99,"records":[]}`, `"string"`} {
		kv := memory.NewWith(map[string][]byte{"records": []byte(raw)})
		if got := records.Load(context.Background(), kv, nil); len(got) != 0 {
			t.Fatalf("expected empty collection for %q, got %+v", raw, got)
		}
	}
}

func TestLoadLegacyBareArray(t *testing.T) {
	kv := memory.NewWith(map[string][]byte{"records": []byte(`[{"id":"7","name":"Old"}]`)})
	got := records.Load(context.Background(), kv, nil)
	if len(got) != 1 || got[0].Name != "Old" {
		t.Fatalf("expected legacy record, got %+v", got)
	}

	migrating := store.Collection[record]{
		Key: "records",
		Legacy: func(data []byte) ([]record, error) {
			return []record{{ID: "migrated"}}, nil
		},
	}
	got = migrating.Load(context.Background(), kv, nil)
	if len(got) != 1 || got[0].ID != "migrated" {
		t.Fatalf("expected legacy decoder to run, got %+v", got)
	}
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk on fire")
}

func (failingKV) Set(context.Context, string, []byte) error {
	return errors.New("disk on fire")
}

func TestLoadReadErrorIsEmpty(t *testing.T) {
	if got := records.Load(context.Background(), failingKV{}, nil); len(got) != 0 {
		t.Fatalf("expected empty collection on read error")
	}
}

func TestSetAllFallsBackToSequentialWrites(t *testing.T) {
	err := store.SetAll(context.Background(), failingKV{}, map[string][]byte{"a": nil})
	if err == nil || !strings.Contains(err.Error(), "set a") {
		t.Fatalf("expected wrapped write error, got %v", err)
	}
}
