package state

import (
	"testing"

	"github.com/k0yote/newlo-point-sub001/storage"
)

func TestKVPutGetRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	type record struct {
		Name  string
		Count uint64
	}
	if err := m.KVPut([]byte("test/record"), record{Name: "alpha", Count: 7}); err != nil {
		t.Fatalf("put: %v", err)
	}

	var got record
	ok, err := m.KVGet([]byte("test/record"), &got)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Name != "alpha" || got.Count != 7 {
		t.Fatalf("record = %+v", got)
	}

	ok, err = m.KVGet([]byte("test/missing"), &got)
	if err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
}

func TestKVAppendDeduplicates(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	key := []byte("test/list")

	for _, value := range []string{"a", "b", "a", "c"} {
		if err := m.KVAppend(key, []byte(value)); err != nil {
			t.Fatalf("append %q: %v", value, err)
		}
	}

	var list [][]byte
	if err := m.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("list = %q", list)
	}
	if string(list[0]) != "a" || string(list[1]) != "b" || string(list[2]) != "c" {
		t.Fatalf("list order = %q", list)
	}

	var empty [][]byte
	if err := m.KVGetList([]byte("test/none"), &empty); err != nil {
		t.Fatalf("empty list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("missing list = %v", empty)
	}
}

func TestSnapshotRevertRestoresPriorValues(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	if err := m.KVPut([]byte("k1"), "before"); err != nil {
		t.Fatalf("put: %v", err)
	}

	marker := m.Snapshot()
	if err := m.KVPut([]byte("k1"), "after"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := m.KVPut([]byte("k2"), "new"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := m.KVAppend([]byte("list"), []byte("entry")); err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := m.RevertToSnapshot(marker); err != nil {
		t.Fatalf("revert: %v", err)
	}

	var value string
	ok, err := m.KVGet([]byte("k1"), &value)
	if err != nil || !ok {
		t.Fatalf("k1: ok=%v err=%v", ok, err)
	}
	if value != "before" {
		t.Fatalf("k1 = %q, want the pre-snapshot value", value)
	}

	// Keys first written inside the snapshot read as absent again.
	ok, err = m.KVGet([]byte("k2"), &value)
	if err != nil || ok {
		t.Fatalf("k2 after revert: ok=%v err=%v", ok, err)
	}
	var list [][]byte
	if err := m.KVGetList([]byte("list"), &list); err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("list after revert = %q", list)
	}
}

func TestDiscardSnapshotFinalisesWrites(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	outer := m.Snapshot()
	if err := m.KVPut([]byte("k1"), "settled"); err != nil {
		t.Fatalf("put: %v", err)
	}
	m.DiscardSnapshot(outer)

	// Reverting to the same marker after discard must not undo the
	// finalised write.
	if err := m.RevertToSnapshot(outer); err != nil {
		t.Fatalf("revert: %v", err)
	}
	var value string
	ok, err := m.KVGet([]byte("k1"), &value)
	if err != nil || !ok {
		t.Fatalf("k1: ok=%v err=%v", ok, err)
	}
	if value != "settled" {
		t.Fatalf("k1 = %q", value)
	}
}

func TestRevertRejectsInvalidMarker(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	if err := m.RevertToSnapshot(5); err == nil {
		t.Fatalf("out-of-range marker accepted")
	}
	if err := m.RevertToSnapshot(-1); err == nil {
		t.Fatalf("negative marker accepted")
	}
}

func TestRoleMembership(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	alice := []byte("alice-address-000000")
	bob := []byte("bob-address-00000000")

	if m.HasRole("ROLE_TEST", alice) {
		t.Fatalf("role held before grant")
	}
	if err := m.GrantRole("ROLE_TEST", alice); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := m.GrantRole("ROLE_TEST", alice); err != nil {
		t.Fatalf("repeated grant: %v", err)
	}
	if err := m.GrantRole("ROLE_TEST", bob); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !m.HasRole("ROLE_TEST", alice) || !m.HasRole("ROLE_TEST", bob) {
		t.Fatalf("granted roles not visible")
	}

	if err := m.RevokeRole("ROLE_TEST", alice); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if m.HasRole("ROLE_TEST", alice) {
		t.Fatalf("role held after revoke")
	}
	if !m.HasRole("ROLE_TEST", bob) {
		t.Fatalf("unrelated member revoked")
	}
}
