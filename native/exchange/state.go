package exchange

// Storage abstracts the subset of state-manager functionality required by the
// registry and ledgers.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// State extends Storage with role membership and journal control. The
// settlement coordinator needs the journal to undo committed effects when a
// downstream fund movement fails.
type State interface {
	Storage
	HasRole(role string, addr []byte) bool
	GrantRole(role string, addr []byte) error
	RevokeRole(role string, addr []byte) error
	Snapshot() int
	RevertToSnapshot(marker int) error
	DiscardSnapshot(marker int)
}
