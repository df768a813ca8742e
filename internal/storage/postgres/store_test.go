package postgres

import (
	"context"
	"testing"

	"swapDesk/internal/model"
)

func TestJSONColumnNulls(t *testing.T) {
	var raw *model.RawLogRef
	for _, v := range []interface{}{nil, map[string]string{}, raw} {
		got, err := jsonColumn(v)
		if err != nil || got != nil {
			t.Fatalf("expected NULL for %#v, got %v (%v)", v, got, err)
		}
	}
	got, err := jsonColumn(model.SwapEventData{Amount0: "1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if s, ok := got.(string); !ok || s == "" {
		t.Fatalf("expected json text, got %#v", got)
	}
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
