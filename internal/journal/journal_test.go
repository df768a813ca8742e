package journal

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestStoreSaveGetList(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "journal", "swapdesk.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	entry := NewEntry("swap", "ui", "31337", "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", map[string]string{"amount_in": "1.5"})
	if err := store.Save(entry); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(entry.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != "swap" || got.Params["amount_in"] != "1.5" || got.Status != StatusPending {
		t.Fatalf("unexpected entry: %+v", got)
	}

	got.Status = StatusConfirmed
	got.TxHashes = []string{"0xabc"}
	got.Touch()
	if err := store.Save(got); err != nil {
		t.Fatalf("save update: %v", err)
	}

	other := NewEntry("liquidity", "ui", "31337", "0x1", nil)
	other.Status = StatusFailed
	if err := store.Save(other); err != nil {
		t.Fatalf("save other: %v", err)
	}

	confirmed, err := store.List(StatusConfirmed, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(confirmed) != 1 || confirmed[0].TxHashes[0] != "0xabc" {
		t.Fatalf("unexpected confirmed entries: %+v", confirmed)
	}
	all, err := store.List("", 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected two entries, got %d", len(all))
	}
}

func TestStoreGetMissing(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "swapdesk.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if _, err := store.Get("sub_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSaveRequiresID(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "swapdesk.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Save(Entry{}); err == nil {
		t.Fatalf("expected error for entry without id")
	}
}
