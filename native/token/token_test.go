package token

import (
	"errors"
	"math/big"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/k0yote/newlo-point-sub001/core/state"
	"github.com/k0yote/newlo-point-sub001/native/exchange"
	"github.com/k0yote/newlo-point-sub001/storage"
)

func newTestState(t *testing.T) *state.Manager {
	t.Helper()
	return state.NewManager(storage.NewMemDB())
}

func addrOf(seed byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = seed
	}
	return addr
}

func TestPointLedgerMintAndDestroy(t *testing.T) {
	ledger := NewPointLedger(newTestState(t))
	owner := addrOf(0x01)

	if err := ledger.Mint(owner, big.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Mint(owner, big.NewInt(250)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	balance, err := ledger.BalanceOf(owner)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Int64() != 750 {
		t.Fatalf("balance = %s, want 750", balance)
	}

	if err := ledger.Destroy(owner, big.NewInt(700)); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := ledger.Destroy(owner, big.NewInt(100)); !errors.Is(err, exchange.ErrInsufficientBalance) {
		t.Fatalf("overdraw error = %v", err)
	}
	balance, _ = ledger.BalanceOf(owner)
	if balance.Int64() != 50 {
		t.Fatalf("balance after overdraw attempt = %s, want 50", balance)
	}
}

func TestPointLedgerRejectsBadAmounts(t *testing.T) {
	ledger := NewPointLedger(newTestState(t))
	owner := addrOf(0x02)
	if err := ledger.Mint(owner, nil); !errors.Is(err, exchange.ErrInvalidAmount) {
		t.Fatalf("nil mint error = %v", err)
	}
	if err := ledger.Mint(owner, big.NewInt(-1)); !errors.Is(err, exchange.ErrInvalidAmount) {
		t.Fatalf("negative mint error = %v", err)
	}
	if err := ledger.Destroy(owner, big.NewInt(0)); !errors.Is(err, exchange.ErrInvalidAmount) {
		t.Fatalf("zero destroy error = %v", err)
	}
}

func signedPermit(t *testing.T, ledger *PointLedger, spender [20]byte, value int64, deadline uint64) ([20]byte, *exchange.PermitPayload) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	var owner [20]byte
	copy(owner[:], ethcrypto.PubkeyToAddress(key.PublicKey).Bytes())

	permit := &exchange.PermitPayload{
		Owner:    owner,
		Spender:  spender,
		Value:    big.NewInt(value),
		Deadline: deadline,
	}
	nonce, err := ledger.Nonce(owner)
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	sig, err := ethcrypto.Sign(PermitDigest(permit, nonce), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	copy(permit.R[:], sig[:32])
	copy(permit.S[:], sig[32:64])
	permit.V = sig[64] + 27
	return owner, permit
}

func TestPointLedgerAuthorize(t *testing.T) {
	ledger := NewPointLedger(newTestState(t))
	ledger.SetClock(func() time.Time { return time.Unix(1724900000, 0) })
	spender := addrOf(0x03)

	owner, permit := signedPermit(t, ledger, spender, 1200, 1724903600)
	if err := ledger.Authorize(owner, permit); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	allowance, err := ledger.Allowance(owner, spender)
	if err != nil {
		t.Fatalf("allowance: %v", err)
	}
	if allowance.Int64() != 1200 {
		t.Fatalf("allowance = %s, want 1200", allowance)
	}
	nonce, _ := ledger.Nonce(owner)
	if nonce != 1 {
		t.Fatalf("nonce = %d, want 1", nonce)
	}

	// The consumed nonce makes the same permit unusable.
	if err := ledger.Authorize(owner, permit); !errors.Is(err, ErrPermitSignature) {
		t.Fatalf("replay error = %v", err)
	}
}

func TestPointLedgerAuthorizeExpired(t *testing.T) {
	ledger := NewPointLedger(newTestState(t))
	ledger.SetClock(func() time.Time { return time.Unix(1724903601, 0) })
	owner, permit := signedPermit(t, ledger, addrOf(0x04), 10, 1724903600)
	if err := ledger.Authorize(owner, permit); !errors.Is(err, ErrPermitExpired) {
		t.Fatalf("expired error = %v", err)
	}
}

func TestPointLedgerAuthorizeWrongSigner(t *testing.T) {
	ledger := NewPointLedger(newTestState(t))
	owner, permit := signedPermit(t, ledger, addrOf(0x05), 10, 0)
	permit.Value = big.NewInt(999)
	if err := ledger.Authorize(owner, permit); !errors.Is(err, ErrPermitSignature) {
		t.Fatalf("tampered permit error = %v", err)
	}
}

func TestVaultTransfer(t *testing.T) {
	st := newTestState(t)
	reserve := addrOf(0x10)
	beneficiary := addrOf(0x11)
	vault := NewVault(st, "usdc", reserve)
	if vault.Symbol() != "USDC" {
		t.Fatalf("symbol = %q", vault.Symbol())
	}

	if err := vault.Fund(reserve, big.NewInt(1_000_000)); err != nil {
		t.Fatalf("fund: %v", err)
	}
	if err := vault.Transfer(beneficiary, big.NewInt(400_000)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	got, _ := vault.BalanceOf(beneficiary)
	if got.Int64() != 400_000 {
		t.Fatalf("beneficiary balance = %s", got)
	}
	remaining, _ := vault.BalanceOf(reserve)
	if remaining.Int64() != 600_000 {
		t.Fatalf("reserve balance = %s", remaining)
	}

	if err := vault.Transfer(beneficiary, big.NewInt(700_000)); !errors.Is(err, exchange.ErrInsufficientBalance) {
		t.Fatalf("overdraw error = %v", err)
	}
}

func TestJournalRevertRestoresBalances(t *testing.T) {
	st := newTestState(t)
	ledger := NewPointLedger(st)
	vault := NewVault(st, "USDC", addrOf(0x10))
	owner := addrOf(0x12)

	if err := ledger.Mint(owner, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := vault.Fund(addrOf(0x10), big.NewInt(100)); err != nil {
		t.Fatalf("fund: %v", err)
	}

	marker := st.Snapshot()
	if err := ledger.Destroy(owner, big.NewInt(60)); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if err := vault.Transfer(owner, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := st.RevertToSnapshot(marker); err != nil {
		t.Fatalf("revert: %v", err)
	}

	points, _ := ledger.BalanceOf(owner)
	if points.Int64() != 100 {
		t.Fatalf("points after revert = %s, want 100", points)
	}
	held, _ := vault.BalanceOf(owner)
	if held.Sign() != 0 {
		t.Fatalf("asset after revert = %s, want 0", held)
	}
}
