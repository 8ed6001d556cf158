package exchange

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/k0yote/newlo-point-sub001/core/events"
	"github.com/k0yote/newlo-point-sub001/native/common"
	"github.com/k0yote/newlo-point-sub001/observability/metrics"
)

// Engine settles point-to-asset exchanges. All state writes performed during
// a settlement happen against a journaled state snapshot so that a failing
// collaborator call unwinds every effect recorded before it.
type Engine struct {
	mu       sync.Mutex
	inFlight bool

	st       State
	registry *TokenRegistry
	gate     *AccessGate
	prices   *PriceSource
	points   PointToken
	assets   AssetRegistry
	reserve  [20]byte

	fees     *FeeLedger
	stats    *StatsStore
	users    *UserRecords
	receipts *SettlementLedger

	emitter events.Emitter
	logger  *slog.Logger
	metrics *metrics.Exchange

	newReceiptID func() string
}

// NewEngine wires the settlement engine over the supplied state and
// collaborators. The reserve address is the account whose asset balances back
// payouts.
func NewEngine(st State, registry *TokenRegistry, gate *AccessGate, prices *PriceSource, points PointToken, assets AssetRegistry, reserve [20]byte) *Engine {
	return &Engine{
		st:           st,
		registry:     registry,
		gate:         gate,
		prices:       prices,
		points:       points,
		assets:       assets,
		reserve:      reserve,
		fees:         NewFeeLedger(st),
		stats:        NewStatsStore(st),
		users:        NewUserRecords(st),
		receipts:     NewSettlementLedger(st),
		emitter:      events.NoopEmitter{},
		newReceiptID: uuid.NewString,
	}
}

// SetEmitter installs the event sink used for settlement and admin events.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil || emitter == nil {
		return
	}
	e.emitter = emitter
}

// SetLogger installs the structured logger used for settlement outcomes.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if e == nil || logger == nil {
		return
	}
	e.logger = logger
}

// SetMetrics installs the settlement counters.
func (e *Engine) SetMetrics(m *metrics.Exchange) {
	if e == nil {
		return
	}
	e.metrics = m
}

// SetReceiptIDSource overrides receipt identifier generation, primarily for
// deterministic testing.
func (e *Engine) SetReceiptIDSource(source func() string) {
	if e == nil || source == nil {
		return
	}
	e.newReceiptID = source
}

// Fees exposes the operational fee ledger.
func (e *Engine) Fees() *FeeLedger { return e.fees }

// Stats exposes the per-asset settlement counters.
func (e *Engine) Stats() *StatsStore { return e.stats }

// Users exposes the per-user activity records.
func (e *Engine) Users() *UserRecords { return e.users }

// Receipts exposes the settlement receipt ledger.
func (e *Engine) Receipts() *SettlementLedger { return e.receipts }

// IsPaused reports whether settlements are halted.
func (e *Engine) IsPaused() (bool, error) {
	if e == nil || e.st == nil {
		return false, fmt.Errorf("exchange: engine not initialised")
	}
	var paused bool
	ok, err := e.st.KVGet(pausedKey, &paused)
	if err != nil {
		return false, err
	}
	return ok && paused, nil
}

// Pause halts settlements and fee withdrawals. Requires the emergency role.
func (e *Engine) Pause(caller [20]byte) error {
	if err := e.gate.Authorize(OpPause, caller); err != nil {
		return err
	}
	if err := e.st.KVPut(pausedKey, true); err != nil {
		return err
	}
	e.emit(events.ExchangePaused{Caller: caller})
	return nil
}

// Unpause resumes settlements. Fails when the engine is not paused.
func (e *Engine) Unpause(caller [20]byte) error {
	if err := e.gate.Authorize(OpPause, caller); err != nil {
		return err
	}
	paused, err := e.IsPaused()
	if err != nil {
		return err
	}
	if !paused {
		return ErrNotPaused
	}
	if err := e.st.KVPut(pausedKey, false); err != nil {
		return err
	}
	e.emit(events.ExchangeUnpaused{Caller: caller})
	return nil
}

// Exchange settles one point-to-asset request end to end: authorization,
// pricing, conversion, slippage and reserve checks, ledger effects, point
// destruction and asset payout. Any failure after the state snapshot reverts
// every recorded effect.
func (e *Engine) Exchange(req ExchangeRequest) (*SettlementRecord, error) {
	if e == nil || e.st == nil {
		return nil, fmt.Errorf("exchange: engine not initialised")
	}
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		return nil, ErrReentrantCall
	}
	e.inFlight = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.inFlight = false
		e.mu.Unlock()
	}()

	started := time.Now()
	record, err := e.settle(req)
	e.metrics.ObserveLatency(time.Since(started))
	if err != nil {
		e.metrics.ObserveFailure(failureReason(err))
		e.log().Warn("exchange settlement rejected",
			"symbol", normaliseSymbol(req.Symbol),
			"error", err)
		return nil, err
	}
	e.metrics.ObserveSettlement(record.Symbol, record.NlpAmount)
	e.log().Info("exchange settled",
		"receiptId", record.ReceiptID,
		"symbol", record.Symbol,
		"nlpAmount", record.NlpAmount.String(),
		"tokenAmount", record.TokenAmount.String(),
		"relayed", record.Relayed)
	return record, nil
}

func (e *Engine) settle(req ExchangeRequest) (*SettlementRecord, error) {
	if err := common.Guard(e); err != nil {
		return nil, err
	}
	if req.Beneficiary == ([20]byte{}) {
		return nil, ErrRecipientRequired
	}
	if req.NlpAmount == nil || req.NlpAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	mode, err := e.registry.Mode()
	if err != nil {
		return nil, err
	}
	if err := e.gate.PermitBeneficiary(mode, req.Beneficiary); err != nil {
		return nil, err
	}

	symbol := normaliseSymbol(req.Symbol)
	cfg, ok, err := e.registry.Token(symbol)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotConfigured, symbol)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrTokenDisabled, symbol)
	}
	asset, ok := e.assets.Asset(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no settlement backend", ErrTokenNotConfigured, symbol)
	}

	if req.Relayed() && req.Permit == nil {
		return nil, fmt.Errorf("%w: relayed settlement requires a permit", ErrAuthorizationFailed)
	}
	if req.Permit != nil {
		authorized := req.Permit.Value
		if authorized == nil {
			authorized = big.NewInt(0)
		}
		if authorized.Cmp(req.NlpAmount) < 0 {
			return nil, fmt.Errorf("%w: authorized value %s below amount %s", ErrAuthorizationFailed, authorized, req.NlpAmount)
		}
		if err := e.points.Authorize(req.Beneficiary, req.Permit); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAuthorizationFailed, err)
		}
	}
	pointBalance, err := e.points.BalanceOf(req.Beneficiary)
	if err != nil {
		return nil, err
	}
	if pointBalance.Cmp(req.NlpAmount) < 0 {
		return nil, fmt.Errorf("%w: point balance %s < %s", ErrInsufficientBalance, pointBalance, req.NlpAmount)
	}

	tokenUsd, err := e.prices.ResolvePrice(symbol)
	if err != nil {
		return nil, err
	}
	jpyUsd, err := e.prices.ResolvePrice(JpySymbol)
	if err != nil {
		return nil, err
	}
	rate, err := e.registry.Rate()
	if err != nil {
		return nil, err
	}
	opFee, err := e.registry.OperationalFee(symbol)
	if err != nil {
		return nil, err
	}
	opFeeBps := uint32(0)
	if opFee.Enabled {
		opFeeBps = opFee.FeeBps
	}

	result, err := Convert(ConvertInput{
		NlpAmount:         req.NlpAmount,
		Rate:              rate,
		JpyUsdPrice:       jpyUsd,
		TokenUsdPrice:     tokenUsd,
		ExchangeFeeBps:    cfg.ExchangeFeeBps,
		OperationalFeeBps: opFeeBps,
		TokenDecimals:     cfg.Decimals,
	})
	if err != nil {
		return nil, err
	}
	if result.TokenAmount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: conversion produced no output", ErrInvalidAmount)
	}
	if req.MinOut != nil && result.TokenAmount.Cmp(req.MinOut) < 0 {
		return nil, fmt.Errorf("%w: %s < minimum %s", ErrSlippageExceeded, result.TokenAmount, req.MinOut)
	}

	required := new(big.Int).Add(result.TokenAmount, result.OperationalFee)
	reserveBalance, err := asset.BalanceOf(e.reserve)
	if err != nil {
		return nil, err
	}
	if reserveBalance.Cmp(required) < 0 {
		return nil, fmt.Errorf("%w: reserve %s < required %s", ErrInsufficientBalance, reserveBalance, required)
	}

	record := &SettlementRecord{
		ReceiptID:      e.newReceiptID(),
		Beneficiary:    req.Beneficiary,
		Relayer:        req.Relayer,
		Symbol:         symbol,
		NlpAmount:      cloneBig(req.NlpAmount),
		TokenAmount:    result.TokenAmount,
		ExchangeFee:    result.ExchangeFee,
		OperationalFee: result.OperationalFee,
		TokenUsdPrice:  cloneBig(tokenUsd),
		JpyUsdPrice:    cloneBig(jpyUsd),
		Relayed:        req.Relayed(),
	}

	snapshot := e.st.Snapshot()
	revert := func(cause error) error {
		e.st.RevertToSnapshot(snapshot)
		return cause
	}
	if err := e.stats.record(symbol, record.NlpAmount, record.TokenAmount, record.ExchangeFee, record.OperationalFee); err != nil {
		return nil, revert(err)
	}
	if err := e.users.record(req.Beneficiary, symbol, record.NlpAmount, record.TokenAmount); err != nil {
		return nil, revert(err)
	}
	if err := e.fees.credit(symbol, record.OperationalFee); err != nil {
		return nil, revert(err)
	}
	if err := e.receipts.Put(record); err != nil {
		return nil, revert(err)
	}
	if err := e.points.Destroy(req.Beneficiary, record.NlpAmount); err != nil {
		return nil, revert(fmt.Errorf("exchange: destroy points: %w", err))
	}
	if err := asset.Transfer(req.Beneficiary, record.TokenAmount); err != nil {
		return nil, revert(fmt.Errorf("exchange: asset transfer: %w", err))
	}
	e.st.DiscardSnapshot(snapshot)

	stored, _, err := e.receipts.Get(record.ReceiptID)
	if err == nil && stored != nil {
		record.CreatedAt = stored.CreatedAt
	}
	e.emit(events.ExchangeSettled{
		ReceiptID:      record.ReceiptID,
		Beneficiary:    record.Beneficiary,
		Symbol:         record.Symbol,
		NlpAmount:      record.NlpAmount,
		TokenAmount:    record.TokenAmount,
		ExchangeFee:    record.ExchangeFee,
		OperationalFee: record.OperationalFee,
		TokenUsdPrice:  record.TokenUsdPrice,
		JpyUsdPrice:    record.JpyUsdPrice,
		Relayed:        record.Relayed,
	})
	return record.Copy(), nil
}

// WithdrawOperationalFee pays accumulated operational fees for the asset to
// the configured recipient. A zero or nil amount withdraws the full balance.
func (e *Engine) WithdrawOperationalFee(caller [20]byte, symbol string, amount *big.Int) (*big.Int, error) {
	if e == nil || e.st == nil {
		return nil, fmt.Errorf("exchange: engine not initialised")
	}
	if err := e.gate.Authorize(OpWithdrawFee, caller); err != nil {
		return nil, err
	}
	if err := common.Guard(e); err != nil {
		return nil, err
	}
	symbol = normaliseSymbol(symbol)
	opFee, err := e.registry.OperationalFee(symbol)
	if err != nil {
		return nil, err
	}
	if opFee.Recipient == ([20]byte{}) {
		return nil, fmt.Errorf("%w: no fee recipient for %s", ErrRecipientRequired, symbol)
	}
	asset, ok := e.assets.Asset(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no settlement backend", ErrTokenNotConfigured, symbol)
	}

	snapshot := e.st.Snapshot()
	withdrawn, err := e.fees.debit(symbol, amount)
	if err != nil {
		e.st.RevertToSnapshot(snapshot)
		return nil, err
	}
	if withdrawn.Sign() == 0 {
		e.st.DiscardSnapshot(snapshot)
		return withdrawn, nil
	}
	if err := asset.Transfer(opFee.Recipient, withdrawn); err != nil {
		e.st.RevertToSnapshot(snapshot)
		return nil, fmt.Errorf("exchange: fee payout: %w", err)
	}
	e.st.DiscardSnapshot(snapshot)

	e.metrics.ObserveWithdrawal(symbol)
	e.emit(events.OperationalFeeWithdrawn{
		Symbol:    symbol,
		Recipient: opFee.Recipient,
		Amount:    withdrawn,
		Caller:    caller,
	})
	return new(big.Int).Set(withdrawn), nil
}

// EmergencyWithdraw moves reserve assets to the configured treasury while the
// engine is paused. The treasury binding is the only permitted destination.
func (e *Engine) EmergencyWithdraw(caller [20]byte, symbol string, amount *big.Int) error {
	if e == nil || e.st == nil {
		return fmt.Errorf("exchange: engine not initialised")
	}
	if err := e.gate.Authorize(OpEmergencyRecover, caller); err != nil {
		return err
	}
	paused, err := e.IsPaused()
	if err != nil {
		return err
	}
	if !paused {
		return ErrNotPaused
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	treasury, ok, err := e.registry.Treasury()
	if err != nil {
		return err
	}
	if !ok {
		return ErrTreasuryNotSet
	}
	symbol = normaliseSymbol(symbol)
	asset, ok := e.assets.Asset(symbol)
	if !ok {
		return fmt.Errorf("%w: %s has no settlement backend", ErrTokenNotConfigured, symbol)
	}
	if err := asset.Transfer(treasury, amount); err != nil {
		return fmt.Errorf("exchange: emergency transfer: %w", err)
	}
	e.emit(events.EmergencyWithdrawn{
		Symbol:   symbol,
		Treasury: treasury,
		Amount:   amount,
		Caller:   caller,
	})
	return nil
}

func (e *Engine) emit(event events.Event) {
	if e == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}

func (e *Engine) log() *slog.Logger {
	if e != nil && e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, common.ErrModulePaused):
		return "paused"
	case errors.Is(err, ErrExchangeClosed), errors.Is(err, ErrNotWhitelisted), errors.Is(err, ErrUnauthorized):
		return "access"
	case errors.Is(err, ErrAuthorizationFailed):
		return "permit"
	case errors.Is(err, ErrTokenNotConfigured), errors.Is(err, ErrTokenDisabled):
		return "token"
	case errors.Is(err, ErrNoPriceData), errors.Is(err, ErrPriceDataStale), errors.Is(err, ErrInvalidPriceData):
		return "price"
	case errors.Is(err, ErrSlippageExceeded):
		return "slippage"
	case errors.Is(err, ErrInsufficientBalance):
		return "balance"
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrRecipientRequired):
		return "request"
	case errors.Is(err, ErrReentrantCall):
		return "reentrancy"
	default:
		return "internal"
	}
}
