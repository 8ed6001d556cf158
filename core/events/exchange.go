package events

import (
	"math/big"
	"strings"

	"github.com/k0yote/newlo-point-sub001/crypto"
)

const (
	// TypeExchangeSettled is emitted when a point-for-asset settlement reaches
	// its terminal state.
	TypeExchangeSettled = "exchange.settled"
	// TypeExchangePaused is emitted when the emergency gate halts the engine.
	TypeExchangePaused = "exchange.paused"
	// TypeExchangeUnpaused is emitted when normal operation resumes.
	TypeExchangeUnpaused = "exchange.unpaused"
	// TypeTokenConfigured is emitted whenever a settlement asset is added or
	// updated in the registry.
	TypeTokenConfigured = "exchange.token_configured"
	// TypeOperationalFeeConfigured is emitted when the second fee layer changes.
	TypeOperationalFeeConfigured = "exchange.operational_fee_configured"
	// TypeOperationalFeeWithdrawn is emitted on fee-ledger withdrawals.
	TypeOperationalFeeWithdrawn = "exchange.fee_withdrawn"
	// TypePricePushed is emitted when the price updater writes a new snapshot.
	TypePricePushed = "exchange.price_pushed"
	// TypeModeChanged is emitted when the exchange access mode switches.
	TypeModeChanged = "exchange.mode_changed"
	// TypeEmergencyWithdrawn is emitted on treasury-bound fund recovery.
	TypeEmergencyWithdrawn = "exchange.emergency_withdrawn"
)

// ExchangeSettled records the full fee breakdown of one settled request.
type ExchangeSettled struct {
	ReceiptID      string
	Beneficiary    [20]byte
	Symbol         string
	NlpAmount      *big.Int
	TokenAmount    *big.Int
	ExchangeFee    *big.Int
	OperationalFee *big.Int
	TokenUsdPrice  *big.Int
	JpyUsdPrice    *big.Int
	Relayed        bool
}

func (ExchangeSettled) EventType() string { return TypeExchangeSettled }

// Attributes renders the event as flat string pairs for log and RPC consumers.
func (e ExchangeSettled) Attributes() map[string]string {
	attrs := map[string]string{
		"receiptId":      strings.TrimSpace(e.ReceiptID),
		"symbol":         strings.ToUpper(strings.TrimSpace(e.Symbol)),
		"nlpAmount":      bigString(e.NlpAmount),
		"tokenAmount":    bigString(e.TokenAmount),
		"exchangeFee":    bigString(e.ExchangeFee),
		"operationalFee": bigString(e.OperationalFee),
		"tokenUsdPrice":  bigString(e.TokenUsdPrice),
		"jpyUsdPrice":    bigString(e.JpyUsdPrice),
	}
	if e.Relayed {
		attrs["execution"] = "relayed"
	} else {
		attrs["execution"] = "direct"
	}
	if e.Beneficiary != ([20]byte{}) {
		attrs["beneficiary"] = crypto.NewAddress(crypto.NLPPrefix, e.Beneficiary[:]).String()
	}
	return attrs
}

// ExchangePaused marks the engine being halted by the emergency manager.
type ExchangePaused struct {
	Caller [20]byte
}

func (ExchangePaused) EventType() string { return TypeExchangePaused }

// ExchangeUnpaused marks the engine resuming settlements.
type ExchangeUnpaused struct {
	Caller [20]byte
}

func (ExchangeUnpaused) EventType() string { return TypeExchangeUnpaused }

// TokenConfigured records a registry insert or update.
type TokenConfigured struct {
	Symbol         string
	Decimals       uint8
	ExchangeFeeBps uint32
	Enabled        bool
}

func (TokenConfigured) EventType() string { return TypeTokenConfigured }

// OperationalFeeConfigured records an operational-fee toggle or rate change.
type OperationalFeeConfigured struct {
	Symbol    string
	FeeBps    uint32
	Recipient [20]byte
	Enabled   bool
}

func (OperationalFeeConfigured) EventType() string { return TypeOperationalFeeConfigured }

// OperationalFeeWithdrawn records a fee-ledger payout.
type OperationalFeeWithdrawn struct {
	Symbol    string
	Amount    *big.Int
	Recipient [20]byte
	Caller    [20]byte
}

func (OperationalFeeWithdrawn) EventType() string { return TypeOperationalFeeWithdrawn }

// PricePushed records an admin snapshot write.
type PricePushed struct {
	Symbol  string
	RoundID *big.Int
	Answer  *big.Int
}

func (PricePushed) EventType() string { return TypePricePushed }

// ModeChanged records an exchange access-mode transition.
type ModeChanged struct {
	Previous string
	Current  string
}

func (ModeChanged) EventType() string { return TypeModeChanged }

// EmergencyWithdrawn records a paused-state fund recovery to the treasury.
type EmergencyWithdrawn struct {
	Symbol   string
	Amount   *big.Int
	Treasury [20]byte
	Caller   [20]byte
}

func (EmergencyWithdrawn) EventType() string { return TypeEmergencyWithdrawn }

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
