package exchange

import (
	"fmt"
	"sort"
	"strings"

	"github.com/k0yote/newlo-point-sub001/core/events"
)

// TokenRegistry holds per-asset configuration, the global fee cap, the NLP to
// JPY rate, and the exchange access mode. All setters are gated through the
// access gate and persist via the state manager.
type TokenRegistry struct {
	st      State
	gate    *AccessGate
	emitter events.Emitter
}

// NewTokenRegistry constructs a registry backed by the provided state.
func NewTokenRegistry(st State, gate *AccessGate) *TokenRegistry {
	return &TokenRegistry{st: st, gate: gate, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *TokenRegistry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

func (r *TokenRegistry) emit(event events.Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(event)
}

// MaxFeeBps returns the global fee ceiling applied to both fee layers.
func (r *TokenRegistry) MaxFeeBps() uint32 {
	var cap uint32
	ok, err := r.st.KVGet(maxFeeKey, &cap)
	if err != nil || !ok || cap == 0 {
		return DefaultMaxFeeBps
	}
	return cap
}

// SetMaxFeeBps updates the global fee ceiling. The ceiling itself may not
// exceed 100%.
func (r *TokenRegistry) SetMaxFeeBps(caller [20]byte, cap uint32) error {
	if err := r.gate.Authorize(OpConfigureToken, caller); err != nil {
		return err
	}
	if cap == 0 || cap > BpsDenominator {
		return fmt.Errorf("exchange: max fee cap must be within (0, %d]", BpsDenominator)
	}
	return r.st.KVPut(maxFeeKey, cap)
}

// SetToken creates or updates a settlement-asset configuration.
func (r *TokenRegistry) SetToken(caller [20]byte, cfg *TokenConfig) error {
	if err := r.gate.Authorize(OpConfigureToken, caller); err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("exchange: token config must not be nil")
	}
	sanitized := cfg.Clone()
	sanitized.Symbol = normaliseSymbol(sanitized.Symbol)
	if sanitized.Symbol == "" {
		return fmt.Errorf("exchange: token symbol required")
	}
	sanitized.DisplaySymbol = strings.TrimSpace(sanitized.DisplaySymbol)
	if sanitized.DisplaySymbol == "" {
		sanitized.DisplaySymbol = sanitized.Symbol
	}
	if sanitized.Symbol == NativeMarker {
		sanitized.Native = true
	}
	if !sanitized.Native && sanitized.Address == ([20]byte{}) {
		return fmt.Errorf("exchange: token address required for %s", sanitized.Symbol)
	}
	if sanitized.ExchangeFeeBps > r.MaxFeeBps() {
		return fmt.Errorf("%w: %d > %d", ErrFeeExceedsCap, sanitized.ExchangeFeeBps, r.MaxFeeBps())
	}
	if err := r.st.KVPut(tokenConfigKey(sanitized.Symbol), sanitized); err != nil {
		return err
	}
	if err := r.st.KVAppend(tokenIndexKey, []byte(sanitized.Symbol)); err != nil {
		return err
	}
	r.emit(events.TokenConfigured{
		Symbol:         sanitized.Symbol,
		Decimals:       sanitized.Decimals,
		ExchangeFeeBps: sanitized.ExchangeFeeBps,
		Enabled:        sanitized.Enabled,
	})
	return nil
}

// Token retrieves the configuration for the supplied symbol.
func (r *TokenRegistry) Token(symbol string) (*TokenConfig, bool, error) {
	cfg := new(TokenConfig)
	ok, err := r.st.KVGet(tokenConfigKey(symbol), cfg)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return cfg, true, nil
}

// Tokens lists all configured symbols in deterministic order.
func (r *TokenRegistry) Tokens() ([]string, error) {
	var raw [][]byte
	if err := r.st.KVGetList(tokenIndexKey, &raw); err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, b := range raw {
		sym := string(b)
		if sym == "" {
			continue
		}
		if _, exists := seen[sym]; exists {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// SetOperationalFee configures the second fee layer for an asset. Enabling the
// fee requires a payout recipient.
func (r *TokenRegistry) SetOperationalFee(caller [20]byte, cfg *OperationalFeeConfig) error {
	if err := r.gate.Authorize(OpConfigureFee, caller); err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("exchange: fee config must not be nil")
	}
	sanitized := cfg.Clone()
	sanitized.Symbol = normaliseSymbol(sanitized.Symbol)
	if sanitized.Symbol == "" {
		return fmt.Errorf("exchange: token symbol required")
	}
	if _, ok, err := r.Token(sanitized.Symbol); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", ErrTokenNotConfigured, sanitized.Symbol)
	}
	if sanitized.FeeBps > r.MaxFeeBps() {
		return fmt.Errorf("%w: %d > %d", ErrFeeExceedsCap, sanitized.FeeBps, r.MaxFeeBps())
	}
	if sanitized.Enabled && sanitized.Recipient == ([20]byte{}) {
		return ErrRecipientRequired
	}
	if err := r.st.KVPut(operationalFeeKey(sanitized.Symbol), sanitized); err != nil {
		return err
	}
	r.emit(events.OperationalFeeConfigured{
		Symbol:    sanitized.Symbol,
		FeeBps:    sanitized.FeeBps,
		Recipient: sanitized.Recipient,
		Enabled:   sanitized.Enabled,
	})
	return nil
}

// OperationalFee retrieves the operational-fee configuration for the symbol. A
// missing entry reads as disabled.
func (r *TokenRegistry) OperationalFee(symbol string) (*OperationalFeeConfig, error) {
	cfg := new(OperationalFeeConfig)
	ok, err := r.st.KVGet(operationalFeeKey(symbol), cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &OperationalFeeConfig{Symbol: normaliseSymbol(symbol)}, nil
	}
	return cfg, nil
}

// SetRate updates the NLP to JPY integer ratio.
func (r *TokenRegistry) SetRate(caller [20]byte, rate RateConfig) error {
	if err := r.gate.Authorize(OpSetRate, caller); err != nil {
		return err
	}
	cfg := rate.Normalise()
	if cfg.Numerator == 0 {
		return fmt.Errorf("exchange: rate numerator must be positive")
	}
	return r.st.KVPut(rateKey, cfg)
}

// Rate returns the active NLP to JPY ratio, defaulting to 1:1 against the
// canonical denominator when unset.
func (r *TokenRegistry) Rate() (RateConfig, error) {
	var cfg RateConfig
	ok, err := r.st.KVGet(rateKey, &cfg)
	if err != nil {
		return RateConfig{}, err
	}
	if !ok {
		return RateConfig{Numerator: 100, Denominator: 100}, nil
	}
	return cfg.Normalise(), nil
}

// SetMode switches the exchange access mode.
func (r *TokenRegistry) SetMode(caller [20]byte, mode ExchangeMode) error {
	if err := r.gate.Authorize(OpSetMode, caller); err != nil {
		return err
	}
	if mode > ModePublic {
		return fmt.Errorf("exchange: unknown mode %d", mode)
	}
	previous, err := r.Mode()
	if err != nil {
		return err
	}
	if err := r.st.KVPut(modeKey, uint8(mode)); err != nil {
		return err
	}
	r.emit(events.ModeChanged{Previous: previous.String(), Current: mode.String()})
	return nil
}

// Mode returns the active exchange mode. The engine fails closed: an unset
// mode reads as Closed.
func (r *TokenRegistry) Mode() (ExchangeMode, error) {
	var raw uint8
	ok, err := r.st.KVGet(modeKey, &raw)
	if err != nil {
		return ModeClosed, err
	}
	if !ok {
		return ModeClosed, nil
	}
	return ExchangeMode(raw), nil
}

// SetTreasury registers the destination for emergency withdrawals.
func (r *TokenRegistry) SetTreasury(caller, treasury [20]byte) error {
	if err := r.gate.Authorize(OpEmergencyRecover, caller); err != nil {
		return err
	}
	if treasury == ([20]byte{}) {
		return fmt.Errorf("exchange: treasury address required")
	}
	return r.st.KVPut(treasuryKey, treasury)
}

// Treasury returns the registered emergency destination.
func (r *TokenRegistry) Treasury() ([20]byte, bool, error) {
	var treasury [20]byte
	ok, err := r.st.KVGet(treasuryKey, &treasury)
	if err != nil {
		return [20]byte{}, false, err
	}
	if !ok || treasury == ([20]byte{}) {
		return [20]byte{}, false, nil
	}
	return treasury, true, nil
}
