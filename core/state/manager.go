package state

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/k0yote/newlo-point-sub001/storage"
)

// Manager provides keccak-keyed RLP storage for the exchange engine together
// with a write journal so a settlement can be reverted as a unit when a
// downstream fund movement fails.
type Manager struct {
	db      storage.Database
	journal []journalEntry
}

type journalEntry struct {
	key      []byte
	prior    []byte
	hadPrior bool
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var rolePrefix = []byte("role:")

func roleKey(role string) []byte {
	buf := make([]byte, len(rolePrefix)+len(role))
	copy(buf, rolePrefix)
	copy(buf[len(rolePrefix):], role)
	return ethcrypto.Keccak256(buf)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// Snapshot returns a marker identifying the current journal position. All
// writes made after the marker can be undone with RevertToSnapshot.
func (m *Manager) Snapshot() int {
	return len(m.journal)
}

// RevertToSnapshot restores every key written since the supplied marker to its
// prior value, unwinding the journal in reverse order.
func (m *Manager) RevertToSnapshot(marker int) error {
	if marker < 0 || marker > len(m.journal) {
		return fmt.Errorf("state: invalid snapshot marker %d", marker)
	}
	for i := len(m.journal) - 1; i >= marker; i-- {
		entry := m.journal[i]
		if entry.hadPrior {
			if err := m.db.Put(entry.key, entry.prior); err != nil {
				return err
			}
		} else {
			// The backend has no delete primitive shared by all
			// implementations; an empty value is treated as absent.
			if err := m.db.Put(entry.key, nil); err != nil {
				return err
			}
		}
	}
	m.journal = m.journal[:marker]
	return nil
}

// DiscardSnapshot drops the journal entries recorded since the supplied marker
// once the covered writes are final. Finalised writes can no longer be
// reverted, and the journal stays bounded across settlements.
func (m *Manager) DiscardSnapshot(marker int) {
	if marker < 0 || marker > len(m.journal) {
		return
	}
	m.journal = m.journal[:marker]
}

func (m *Manager) write(hashed []byte, value []byte) error {
	prior, err := m.db.Get(hashed)
	hadPrior := err == nil && len(prior) > 0
	entry := journalEntry{key: append([]byte(nil), hashed...), hadPrior: hadPrior}
	if hadPrior {
		entry.prior = append([]byte(nil), prior...)
	}
	m.journal = append(m.journal, entry)
	return m.db.Put(hashed, value)
}

func (m *Manager) read(hashed []byte) ([]byte, bool, error) {
	ok, err := m.db.Has(hashed)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	data, err := m.db.Get(hashed)
	if err != nil {
		return nil, false, err
	}
	if len(data) == 0 {
		return nil, false, nil
	}
	return data, true, nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before hitting the backend.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.write(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean reports whether the key existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	data, ok, err := m.read(kvKey(key))
	if err != nil || !ok {
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVAppend appends the provided value to the RLP-encoded byte slice list stored
// under the supplied key. Duplicate values are ignored to keep indexes
// deterministic.
func (m *Manager) KVAppend(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	hashed := kvKey(key)
	data, found, err := m.read(hashed)
	if err != nil {
		return err
	}
	var list [][]byte
	if found {
		if err := rlp.DecodeBytes(data, &list); err != nil {
			return err
		}
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	encoded, err := rlp.EncodeToBytes(list)
	if err != nil {
		return err
	}
	return m.write(hashed, encoded)
}

// KVGetList retrieves an RLP-encoded slice stored under the provided key and
// decodes it into the supplied destination slice pointer. A missing key yields
// an empty slice rather than nil.
func (m *Manager) KVGetList(key []byte, out interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	data, found, err := m.read(kvKey(key))
	if err != nil {
		return err
	}
	if !found {
		val := reflect.ValueOf(out)
		if val.Kind() != reflect.Ptr || val.IsNil() {
			return fmt.Errorf("kv: destination must be a non-nil pointer")
		}
		elem := val.Elem()
		if elem.Kind() != reflect.Slice {
			return fmt.Errorf("kv: destination must point to a slice")
		}
		elem.Set(reflect.MakeSlice(elem.Type(), 0, 0))
		return nil
	}
	return rlp.DecodeBytes(data, out)
}

func (m *Manager) loadRoleMembers(role string) ([][]byte, error) {
	data, found, err := m.read(roleKey(strings.TrimSpace(role)))
	if err != nil || !found {
		return nil, err
	}
	var members [][]byte
	if err := rlp.DecodeBytes(data, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// HasRole reports whether the provided address is associated with the specified
// role. Read failures return false, matching the best-effort semantics expected
// by authorisation gates.
func (m *Manager) HasRole(role string, addr []byte) bool {
	if len(addr) == 0 {
		return false
	}
	members, err := m.loadRoleMembers(role)
	if err != nil {
		return false
	}
	for _, member := range members {
		if bytes.Equal(member, addr) {
			return true
		}
	}
	return false
}

// GrantRole adds the address to the role membership set. Granting an already
// held role is a no-op.
func (m *Manager) GrantRole(role string, addr []byte) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("state: role required")
	}
	if len(addr) == 0 {
		return fmt.Errorf("state: address required")
	}
	members, err := m.loadRoleMembers(trimmed)
	if err != nil {
		return err
	}
	for _, member := range members {
		if bytes.Equal(member, addr) {
			return nil
		}
	}
	members = append(members, append([]byte(nil), addr...))
	sort.Slice(members, func(i, j int) bool {
		return bytes.Compare(members[i], members[j]) < 0
	})
	encoded, err := rlp.EncodeToBytes(members)
	if err != nil {
		return err
	}
	return m.write(roleKey(trimmed), encoded)
}

// RevokeRole removes the address from the role membership set.
func (m *Manager) RevokeRole(role string, addr []byte) error {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return fmt.Errorf("state: role required")
	}
	members, err := m.loadRoleMembers(trimmed)
	if err != nil {
		return err
	}
	filtered := members[:0]
	for _, member := range members {
		if bytes.Equal(member, addr) {
			continue
		}
		filtered = append(filtered, member)
	}
	encoded, err := rlp.EncodeToBytes(filtered)
	if err != nil {
		return err
	}
	return m.write(roleKey(trimmed), encoded)
}
