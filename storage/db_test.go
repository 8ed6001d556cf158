package storage

import (
	"bytes"
	"testing"
)

func TestMemDBRoundTrip(t *testing.T) {
	db := NewMemDB()
	key := []byte("key")

	if ok, err := db.Has(key); err != nil || ok {
		t.Fatalf("fresh db: ok=%v err=%v", ok, err)
	}
	if _, err := db.Get(key); err == nil {
		t.Fatalf("get on missing key succeeded")
	}

	value := []byte("value")
	if err := db.Put(key, value); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("got %q, want %q", got, value)
	}

	// Mutating the returned slice must not touch the stored copy.
	got[0] = 'X'
	again, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(again, value) {
		t.Fatalf("stored value mutated: %q", again)
	}
}

func TestMemDBEmptyValue(t *testing.T) {
	db := NewMemDB()
	key := []byte("key")
	if err := db.Put(key, nil); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err := db.Has(key)
	if err != nil || !ok {
		t.Fatalf("has: ok=%v err=%v", ok, err)
	}
	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %q, want empty", got)
	}
}
