package state

import (
	"math/big"
	"testing"

	"wity/storage"
)

type record struct {
	Amount *big.Int
	Active bool
}

func TestTxReadsOwnWrites(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	tx := manager.Begin()
	if err := tx.KVPut([]byte("k"), &record{Amount: big.NewInt(7), Active: true}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var got record
	ok, err := tx.KVGet([]byte("k"), &got)
	if err != nil || !ok {
		t.Fatalf("expected staged value, ok=%v err=%v", ok, err)
	}
	if got.Amount.Cmp(big.NewInt(7)) != 0 || !got.Active {
		t.Fatalf("unexpected record %+v", got)
	}
	if ok, _ := manager.KVGet([]byte("k"), nil); ok {
		t.Fatalf("uncommitted write must not be visible")
	}
}

func TestTxCommitAndDiscard(t *testing.T) {
	manager := NewManager(storage.NewMemDB())

	discarded := manager.Begin()
	if err := discarded.KVPut([]byte("a"), uint64(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	discarded.Discard()
	if ok, _ := manager.KVGet([]byte("a"), nil); ok {
		t.Fatalf("discarded write leaked into state")
	}
	if err := discarded.KVPut([]byte("a"), uint64(1)); err != ErrTxClosed {
		t.Fatalf("expected ErrTxClosed, got %v", err)
	}

	tx := manager.Begin()
	if err := tx.KVPut([]byte("a"), uint64(2)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	var value uint64
	if ok, err := manager.KVGet([]byte("a"), &value); !ok || err != nil || value != 2 {
		t.Fatalf("expected committed value 2, got %d ok=%v err=%v", value, ok, err)
	}

	del := manager.Begin()
	if err := del.KVDelete([]byte("a")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := del.KVGet([]byte("a"), nil); ok {
		t.Fatalf("staged delete must hide the committed value")
	}
	if err := del.Commit(); err != nil {
		t.Fatalf("commit delete: %v", err)
	}
	if ok, _ := manager.KVGet([]byte("a"), nil); ok {
		t.Fatalf("expected key removed")
	}
}
