package exchange

import (
	"math/big"
	"strings"
)

// OracleBaseDecimals is the decimal base pushed feeds commonly quote at.
const OracleBaseDecimals = 8

// NormalizedDecimals is the 18-decimal fixed-point base all intermediate USD
// values are normalised to, regardless of an asset's native decimal count.
const NormalizedDecimals = 18

// BpsDenominator converts basis points to a ratio (10000 bps = 100%).
const BpsDenominator = 10_000

// DefaultMaxFeeBps caps both fee layers unless the registry overrides it.
const DefaultMaxFeeBps = 1_000

// NativeMarker is the symbol position reserved for the chain-native coin, which
// settles through a value transfer instead of a token contract.
const NativeMarker = "NLO"

// ExchangeMode is the global access switch consulted before every settlement.
type ExchangeMode uint8

const (
	// ModeClosed rejects every settlement request.
	ModeClosed ExchangeMode = iota
	// ModeWhitelist requires the beneficiary to hold whitelist membership.
	ModeWhitelist
	// ModeRoleBased requires the beneficiary to hold the exchanger role.
	ModeRoleBased
	// ModePublic admits any caller.
	ModePublic
)

func (m ExchangeMode) String() string {
	switch m {
	case ModeClosed:
		return "closed"
	case ModeWhitelist:
		return "whitelist"
	case ModeRoleBased:
		return "rolebased"
	case ModePublic:
		return "public"
	default:
		return "unknown"
	}
}

// ParseExchangeMode maps a canonical mode name back to its enum value.
func ParseExchangeMode(value string) (ExchangeMode, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "closed":
		return ModeClosed, true
	case "whitelist":
		return ModeWhitelist, true
	case "rolebased":
		return ModeRoleBased, true
	case "public":
		return ModePublic, true
	default:
		return ModeClosed, false
	}
}

// TokenConfig describes one settlement asset held by the registry.
type TokenConfig struct {
	Symbol         string
	Address        [20]byte
	Native         bool
	Decimals       uint8
	ExchangeFeeBps uint32
	Enabled        bool
	DisplaySymbol  string
}

// Clone returns a copy so registry reads never alias stored configuration.
func (c *TokenConfig) Clone() *TokenConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// OperationalFeeConfig is the second, independently toggleable fee layer.
type OperationalFeeConfig struct {
	Symbol    string
	FeeBps    uint32
	Recipient [20]byte
	Enabled   bool
}

// Clone returns a copy of the fee configuration.
func (c *OperationalFeeConfig) Clone() *OperationalFeeConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// RateConfig expresses the NLP to JPY rate as an integer ratio so conversion
// stays deterministic. A rate of 90/100 means 0.9 JPY per point.
type RateConfig struct {
	Numerator   uint64
	Denominator uint64
}

// Normalise applies the default denominator and reports the result.
func (r RateConfig) Normalise() RateConfig {
	cfg := r
	if cfg.Denominator == 0 {
		cfg.Denominator = 100
	}
	return cfg
}

// RoundData is a timestamped price quote with a round sequence number, shaped
// after the pushed-oracle wire format. The round identifiers live in an 80-bit
// domain upstream, so they are carried as big integers.
type RoundData struct {
	RoundID         *big.Int
	Answer          *big.Int
	StartedAt       uint64
	UpdatedAt       uint64
	AnsweredInRound *big.Int
}

// Clone returns a deep copy of the snapshot.
func (r *RoundData) Clone() *RoundData {
	if r == nil {
		return nil
	}
	clone := &RoundData{StartedAt: r.StartedAt, UpdatedAt: r.UpdatedAt}
	if r.RoundID != nil {
		clone.RoundID = new(big.Int).Set(r.RoundID)
	}
	if r.Answer != nil {
		clone.Answer = new(big.Int).Set(r.Answer)
	}
	if r.AnsweredInRound != nil {
		clone.AnsweredInRound = new(big.Int).Set(r.AnsweredInRound)
	}
	return clone
}

// TokenStats aggregates per-asset settlement counters. All fields are
// monotonically non-decreasing and mutated only by the settlement coordinator.
type TokenStats struct {
	TotalNlpExchanged            *big.Int
	TotalAssetSent               *big.Int
	TotalExchangeFeeCollected    *big.Int
	TotalOperationalFeeCollected *big.Int
	ExchangeCount                uint64
}

// Clone returns a deep copy of the stats record.
func (s *TokenStats) Clone() *TokenStats {
	if s == nil {
		return nil
	}
	clone := &TokenStats{ExchangeCount: s.ExchangeCount}
	clone.TotalNlpExchanged = cloneBig(s.TotalNlpExchanged)
	clone.TotalAssetSent = cloneBig(s.TotalAssetSent)
	clone.TotalExchangeFeeCollected = cloneBig(s.TotalExchangeFeeCollected)
	clone.TotalOperationalFeeCollected = cloneBig(s.TotalOperationalFeeCollected)
	return clone
}

// UserRecord accumulates per-user activity for one asset. Append-only.
type UserRecord struct {
	NlpSpent      *big.Int
	AssetReceived *big.Int
}

// Clone returns a deep copy of the user record.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	return &UserRecord{NlpSpent: cloneBig(u.NlpSpent), AssetReceived: cloneBig(u.AssetReceived)}
}

// PermitPayload carries a delegated authorization for the point token. The
// engine forwards it untouched; signature verification belongs to the token
// collaborator.
type PermitPayload struct {
	Owner    [20]byte
	Spender  [20]byte
	Value    *big.Int
	Deadline uint64
	V        uint8
	R        [32]byte
	S        [32]byte
}

// ExchangeRequest captures one settlement attempt.
type ExchangeRequest struct {
	Beneficiary [20]byte
	Symbol      string
	NlpAmount   *big.Int
	MinOut      *big.Int
	Permit      *PermitPayload
	Relayer     [20]byte
}

// Relayed reports whether the request is executed on behalf of the beneficiary.
func (r ExchangeRequest) Relayed() bool {
	return r.Relayer != ([20]byte{})
}

// Quote is the read-only preview of a settlement. Available is false when no
// price could be resolved; the remaining fields are then zero-valued instead of
// raising.
type Quote struct {
	Available      bool
	TokenAmount    *big.Int
	ExchangeFee    *big.Int
	OperationalFee *big.Int
	TokenUsdPrice  *big.Int
	JpyUsdPrice    *big.Int
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func normaliseSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
