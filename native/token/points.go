package token

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/k0yote/newlo-point-sub001/native/exchange"
)

var (
	// ErrPermitExpired marks an authorization whose deadline has passed.
	ErrPermitExpired = errors.New("token: permit expired")
	// ErrPermitSignature marks an authorization whose signature does not
	// recover to the stated owner.
	ErrPermitSignature = errors.New("token: permit signature invalid")
)

var (
	pointBalancePrefix   = []byte("points/balance/")
	pointNoncePrefix     = []byte("points/nonce/")
	pointAllowancePrefix = []byte("points/allowance/")
)

// PointLedger keeps loyalty point balances inside the journaled state, so a
// settlement rollback also restores the points it destroyed.
type PointLedger struct {
	st  exchange.Storage
	now func() time.Time
}

func NewPointLedger(st exchange.Storage) *PointLedger {
	return &PointLedger{st: st, now: time.Now}
}

// SetClock overrides the wall clock used for permit deadlines.
func (l *PointLedger) SetClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

func pointBalanceKey(owner [20]byte) []byte {
	return append(append([]byte{}, pointBalancePrefix...), hex.EncodeToString(owner[:])...)
}

func pointNonceKey(owner [20]byte) []byte {
	return append(append([]byte{}, pointNoncePrefix...), hex.EncodeToString(owner[:])...)
}

func pointAllowanceKey(owner, spender [20]byte) []byte {
	suffix := hex.EncodeToString(owner[:]) + "/" + hex.EncodeToString(spender[:])
	return append(append([]byte{}, pointAllowancePrefix...), suffix...)
}

func (l *PointLedger) readAmount(key []byte) (*big.Int, error) {
	var stored string
	ok, err := l.st.KVGet(key, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(stored, 10)
	if !ok {
		return nil, fmt.Errorf("token: corrupted amount %q", stored)
	}
	return parsed, nil
}

// BalanceOf returns the owner's point balance.
func (l *PointLedger) BalanceOf(owner [20]byte) (*big.Int, error) {
	return l.readAmount(pointBalanceKey(owner))
}

// Mint credits points to the owner. Seeding and reward crediting both land
// here.
func (l *PointLedger) Mint(owner [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return exchange.ErrInvalidAmount
	}
	balance, err := l.BalanceOf(owner)
	if err != nil {
		return err
	}
	balance.Add(balance, amount)
	return l.st.KVPut(pointBalanceKey(owner), balance.String())
}

// Destroy burns points from the owner's balance.
func (l *PointLedger) Destroy(owner [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return exchange.ErrInvalidAmount
	}
	balance, err := l.BalanceOf(owner)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s < %s", exchange.ErrInsufficientBalance, balance, amount)
	}
	balance.Sub(balance, amount)
	return l.st.KVPut(pointBalanceKey(owner), balance.String())
}

// Nonce returns the next expected permit nonce for the owner.
func (l *PointLedger) Nonce(owner [20]byte) (uint64, error) {
	var stored uint64
	if _, err := l.st.KVGet(pointNonceKey(owner), &stored); err != nil {
		return 0, err
	}
	return stored, nil
}

// Allowance returns the amount the spender may act on for the owner.
func (l *PointLedger) Allowance(owner, spender [20]byte) (*big.Int, error) {
	return l.readAmount(pointAllowanceKey(owner, spender))
}

// Authorize verifies a signed permit and records the resulting allowance.
// The digest binds owner, spender, value, deadline, and the owner's current
// nonce, so a permit cannot be replayed.
func (l *PointLedger) Authorize(owner [20]byte, permit *exchange.PermitPayload) error {
	if permit == nil {
		return ErrPermitSignature
	}
	if permit.Owner != owner {
		return ErrPermitSignature
	}
	if permit.Deadline > 0 && uint64(l.now().Unix()) > permit.Deadline {
		return ErrPermitExpired
	}
	nonce, err := l.Nonce(owner)
	if err != nil {
		return err
	}
	digest := PermitDigest(permit, nonce)
	recovered, err := recoverSigner(digest, permit)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermitSignature, err)
	}
	if recovered != owner {
		return ErrPermitSignature
	}
	if err := l.st.KVPut(pointNonceKey(owner), nonce+1); err != nil {
		return err
	}
	value := permit.Value
	if value == nil {
		value = big.NewInt(0)
	}
	return l.st.KVPut(pointAllowanceKey(owner, permit.Spender), value.String())
}

// PermitDigest computes the signing digest for a permit at the given nonce.
func PermitDigest(permit *exchange.PermitPayload, nonce uint64) []byte {
	value := permit.Value
	if value == nil {
		value = big.NewInt(0)
	}
	var deadline, nonceBuf [8]byte
	binary.BigEndian.PutUint64(deadline[:], permit.Deadline)
	binary.BigEndian.PutUint64(nonceBuf[:], nonce)
	return ethcrypto.Keccak256(
		[]byte("NLPPermit"),
		permit.Owner[:],
		permit.Spender[:],
		value.Bytes(),
		deadline[:],
		nonceBuf[:],
	)
}

func recoverSigner(digest []byte, permit *exchange.PermitPayload) ([20]byte, error) {
	var out [20]byte
	sig := make([]byte, 65)
	copy(sig[:32], permit.R[:])
	copy(sig[32:64], permit.S[:])
	v := permit.V
	if v >= 27 {
		v -= 27
	}
	sig[64] = v
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return out, err
	}
	copy(out[:], ethcrypto.PubkeyToAddress(*pub).Bytes())
	return out, nil
}
