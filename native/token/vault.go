package token

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/k0yote/newlo-point-sub001/native/exchange"
)

var vaultBalancePrefix = []byte("vault/")

// Vault holds one settlement asset's balances inside the journaled state and
// pays out from a single funding account. Transfers debit that account, so
// the engine's reserve check and the vault agree on the same balance.
type Vault struct {
	st     exchange.Storage
	symbol string
	source [20]byte
}

func NewVault(st exchange.Storage, symbol string, source [20]byte) *Vault {
	return &Vault{st: st, symbol: strings.ToUpper(strings.TrimSpace(symbol)), source: source}
}

// Symbol returns the asset symbol the vault is bound to.
func (v *Vault) Symbol() string { return v.symbol }

func (v *Vault) balanceKey(owner [20]byte) []byte {
	suffix := v.symbol + "/balance/" + hex.EncodeToString(owner[:])
	return append(append([]byte{}, vaultBalancePrefix...), suffix...)
}

// BalanceOf returns the owner's balance of the vault's asset.
func (v *Vault) BalanceOf(owner [20]byte) (*big.Int, error) {
	var stored string
	ok, err := v.st.KVGet(v.balanceKey(owner), &stored)
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

// Fund credits the asset to an account, typically the funding source.
func (v *Vault) Fund(owner [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return exchange.ErrInvalidAmount
	}
	balance, err := v.BalanceOf(owner)
	if err != nil {
		return err
	}
	balance.Add(balance, amount)
	return v.st.KVPut(v.balanceKey(owner), balance.String())
}

// Transfer moves the amount from the funding account to the recipient.
func (v *Vault) Transfer(to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return exchange.ErrInvalidAmount
	}
	source, err := v.BalanceOf(v.source)
	if err != nil {
		return err
	}
	if source.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s %s < %s", exchange.ErrInsufficientBalance, v.symbol, source, amount)
	}
	source.Sub(source, amount)
	if err := v.st.KVPut(v.balanceKey(v.source), source.String()); err != nil {
		return err
	}
	recipient, err := v.BalanceOf(to)
	if err != nil {
		return err
	}
	recipient.Add(recipient, amount)
	return v.st.KVPut(v.balanceKey(to), recipient.String())
}
