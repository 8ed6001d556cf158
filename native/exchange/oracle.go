package exchange

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/k0yote/newlo-point-sub001/core/events"
)

// JpySymbol identifies the JPY/USD feed. It enjoys a softer failure mode: an
// invalid pushed quote falls back to the admin snapshot instead of aborting.
const JpySymbol = "JPY"

// PushedOracle is a continuously updated feed collaborator. Implementations
// report quotes at their own decimal base.
type PushedOracle interface {
	LatestSnapshot() (*RoundData, error)
	Decimals() uint8
}

// ValidateRound checks the integrity of a pushed snapshot. Round continuity is
// the only staleness signal: no wall-clock threshold is enforced, so operators
// keep a flexible push cadence.
func ValidateRound(round *RoundData) error {
	if round == nil {
		return fmt.Errorf("%w: snapshot missing", ErrInvalidPriceData)
	}
	if round.Answer == nil || round.Answer.Sign() <= 0 {
		return fmt.Errorf("%w: answer must be positive", ErrInvalidPriceData)
	}
	if round.UpdatedAt == 0 {
		return fmt.Errorf("%w: updatedAt is zero", ErrInvalidPriceData)
	}
	if round.RoundID == nil || round.RoundID.Sign() == 0 {
		return fmt.Errorf("%w: roundId is zero", ErrInvalidPriceData)
	}
	if round.AnsweredInRound == nil || round.AnsweredInRound.Cmp(round.RoundID) < 0 {
		return ErrPriceDataStale
	}
	if round.StartedAt == 0 {
		return fmt.Errorf("%w: startedAt is zero", ErrInvalidPriceData)
	}
	return nil
}

type storedRoundData struct {
	RoundID         string
	Answer          string
	StartedAt       uint64
	UpdatedAt       uint64
	AnsweredInRound string
	Decimals        uint8
}

func toStoredRound(round *RoundData, decimals uint8) storedRoundData {
	stored := storedRoundData{Decimals: decimals}
	if round == nil {
		return stored
	}
	stored.StartedAt = round.StartedAt
	stored.UpdatedAt = round.UpdatedAt
	if round.RoundID != nil {
		stored.RoundID = round.RoundID.String()
	}
	if round.Answer != nil {
		stored.Answer = round.Answer.String()
	}
	if round.AnsweredInRound != nil {
		stored.AnsweredInRound = round.AnsweredInRound.String()
	}
	return stored
}

func fromStoredRound(stored *storedRoundData) (*RoundData, uint8, error) {
	if stored == nil {
		return nil, 0, fmt.Errorf("exchange: nil stored round")
	}
	round := &RoundData{StartedAt: stored.StartedAt, UpdatedAt: stored.UpdatedAt}
	var err error
	if round.RoundID, err = parseStoredInt(stored.RoundID); err != nil {
		return nil, 0, fmt.Errorf("exchange: round id: %w", err)
	}
	if round.Answer, err = parseStoredInt(stored.Answer); err != nil {
		return nil, 0, fmt.Errorf("exchange: answer: %w", err)
	}
	if round.AnsweredInRound, err = parseStoredInt(stored.AnsweredInRound); err != nil {
		return nil, 0, fmt.Errorf("exchange: answered in round: %w", err)
	}
	return round, stored.Decimals, nil
}

func parseStoredInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", value)
	}
	return parsed, nil
}

// AdminSnapshotStore persists periodically written price snapshots. Writes are
// restricted to the price-updater role; each push supersedes the previous
// snapshot without mutating it.
type AdminSnapshotStore struct {
	st      State
	emitter events.Emitter
}

// NewAdminSnapshotStore constructs a store bound to the provided state.
func NewAdminSnapshotStore(st State) *AdminSnapshotStore {
	return &AdminSnapshotStore{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter installs the event sink notified on each accepted push.
func (s *AdminSnapshotStore) SetEmitter(emitter events.Emitter) {
	if s == nil || emitter == nil {
		return
	}
	s.emitter = emitter
}

// Push writes a snapshot for the symbol after integrity validation. Round
// identifiers must not decrease across pushes.
func (s *AdminSnapshotStore) Push(caller [20]byte, symbol string, round *RoundData, decimals uint8) error {
	if s == nil || s.st == nil {
		return fmt.Errorf("exchange: snapshot store not initialised")
	}
	if !s.st.HasRole(RolePriceUpdater, caller[:]) {
		return ErrUnauthorized
	}
	sym := normaliseSymbol(symbol)
	if sym == "" {
		return fmt.Errorf("exchange: symbol required")
	}
	if err := ValidateRound(round); err != nil {
		return err
	}
	prev, _, ok, err := s.load(sym)
	if err != nil {
		return err
	}
	if ok && prev.RoundID != nil && round.RoundID.Cmp(prev.RoundID) < 0 {
		return fmt.Errorf("%w: %s < %s", ErrRoundRegression, round.RoundID, prev.RoundID)
	}
	if err := s.st.KVPut(snapshotKey(sym), toStoredRound(round, decimals)); err != nil {
		return err
	}
	if s.emitter != nil {
		s.emitter.Emit(events.PricePushed{
			Symbol:  sym,
			RoundID: cloneBig(round.RoundID),
			Answer:  cloneBig(round.Answer),
		})
	}
	return nil
}

// Latest returns the most recent snapshot for the symbol along with its decimal
// base. The boolean reports whether a snapshot has ever been pushed.
func (s *AdminSnapshotStore) Latest(symbol string) (*RoundData, uint8, bool, error) {
	if s == nil || s.st == nil {
		return nil, 0, false, fmt.Errorf("exchange: snapshot store not initialised")
	}
	return s.load(normaliseSymbol(symbol))
}

func (s *AdminSnapshotStore) load(symbol string) (*RoundData, uint8, bool, error) {
	var stored storedRoundData
	ok, err := s.st.KVGet(snapshotKey(symbol), &stored)
	if err != nil {
		return nil, 0, false, err
	}
	if !ok {
		return nil, 0, false, nil
	}
	round, decimals, err := fromStoredRound(&stored)
	if err != nil {
		return nil, 0, false, err
	}
	return round, decimals, true, nil
}

// PriceSource resolves an asset's USD price by consulting the pushed oracle
// first and falling back to the admin snapshot.
type PriceSource struct {
	mu      sync.RWMutex
	oracles map[string]PushedOracle
	admin   *AdminSnapshotStore
}

// NewPriceSource constructs a resolver backed by the supplied snapshot store.
func NewPriceSource(admin *AdminSnapshotStore) *PriceSource {
	return &PriceSource{oracles: make(map[string]PushedOracle), admin: admin}
}

// RegisterOracle attaches (or replaces) a pushed feed for the symbol.
func (p *PriceSource) RegisterOracle(symbol string, oracle PushedOracle) {
	if p == nil {
		return
	}
	sym := normaliseSymbol(symbol)
	if sym == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if oracle == nil {
		delete(p.oracles, sym)
		return
	}
	p.oracles[sym] = oracle
}

// ResolvePrice returns the asset's USD price normalised to 18 decimals.
//
// A configured pushed oracle is authoritative: integrity violations surface to
// the caller, except for the JPY feed where the engine prefers the admin
// snapshot over aborting. Assets without a pushed oracle resolve straight from
// the admin snapshot.
func (p *PriceSource) ResolvePrice(symbol string) (*big.Int, error) {
	if p == nil {
		return nil, fmt.Errorf("exchange: price source not configured")
	}
	sym := normaliseSymbol(symbol)
	if sym == "" {
		return nil, fmt.Errorf("exchange: symbol required")
	}
	p.mu.RLock()
	oracle := p.oracles[sym]
	p.mu.RUnlock()

	if oracle != nil {
		round, err := oracle.LatestSnapshot()
		if err == nil {
			err = ValidateRound(round)
		}
		if err == nil {
			return NormalizePrice(round.Answer, oracle.Decimals())
		}
		if sym != JpySymbol {
			if errors.Is(err, ErrInvalidPriceData) || errors.Is(err, ErrPriceDataStale) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidPriceData, err)
		}
	}

	return p.resolveAdmin(sym)
}

func (p *PriceSource) resolveAdmin(symbol string) (*big.Int, error) {
	if p.admin == nil {
		return nil, ErrNoPriceData
	}
	round, decimals, ok, err := p.admin.Latest(symbol)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoPriceData
	}
	if round.UpdatedAt == 0 || round.Answer == nil || round.Answer.Sign() <= 0 {
		return nil, ErrNoPriceData
	}
	return NormalizePrice(round.Answer, decimals)
}
