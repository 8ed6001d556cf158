package exchange

import "math/big"

// PointToken abstracts the loyalty-point contract the engine burns from.
type PointToken interface {
	// BalanceOf reports the spendable point balance of the owner.
	BalanceOf(owner [20]byte) (*big.Int, error)
	// Authorize verifies a signed spending permit on behalf of the owner
	// and records the allowance it grants. Each permit binds the owner's
	// current authorization nonce, so it is single use: re-submitting a
	// consumed permit must fail.
	Authorize(owner [20]byte, permit *PermitPayload) error
	// Destroy irrevocably removes amount points from the owner.
	Destroy(owner [20]byte, amount *big.Int) error
}

// SettlementAsset abstracts the payout side of a settlement. One
// implementation is registered per configured asset symbol.
type SettlementAsset interface {
	// BalanceOf reports the asset balance held by the engine's reserve.
	BalanceOf(owner [20]byte) (*big.Int, error)
	// Transfer moves amount from the engine's reserve to the recipient.
	Transfer(to [20]byte, amount *big.Int) error
}

// AssetRegistry resolves the payout collaborator for an asset symbol.
type AssetRegistry interface {
	Asset(symbol string) (SettlementAsset, bool)
}

// AssetMap is a static AssetRegistry backed by a map keyed on the
// upper-cased symbol.
type AssetMap map[string]SettlementAsset

// Asset implements AssetRegistry.
func (m AssetMap) Asset(symbol string) (SettlementAsset, bool) {
	asset, ok := m[normaliseSymbol(symbol)]
	return asset, ok
}
