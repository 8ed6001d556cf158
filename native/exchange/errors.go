package exchange

import "errors"

var (
	// ErrInvalidPriceData indicates a snapshot failed integrity validation
	// (non-positive answer, zero timestamps, or a zero round identifier).
	ErrInvalidPriceData = errors.New("exchange: invalid price data")
	// ErrPriceDataStale indicates a snapshot answered in a round older than the
	// one it reports, i.e. the feed regressed.
	ErrPriceDataStale = errors.New("exchange: price data stale")
	// ErrNoPriceData indicates neither the pushed oracle nor the admin snapshot
	// could produce a valid quote for the asset.
	ErrNoPriceData = errors.New("exchange: no price data available")
	// ErrSlippageExceeded indicates the computed output fell below the caller's
	// minimum acceptable amount.
	ErrSlippageExceeded = errors.New("exchange: slippage exceeded")
	// ErrInsufficientBalance indicates the engine does not hold enough of the
	// target asset to settle the request.
	ErrInsufficientBalance = errors.New("exchange: insufficient balance")
	// ErrInsufficientOperationalFee indicates a withdrawal beyond the collected
	// operational-fee balance.
	ErrInsufficientOperationalFee = errors.New("exchange: insufficient operational fee")
	// ErrAuthorizationFailed indicates the delegated authorization payload was
	// rejected by the point-token collaborator.
	ErrAuthorizationFailed = errors.New("exchange: authorization failed")
	// ErrTreasuryNotSet indicates an emergency withdrawal was attempted before a
	// treasury address was registered.
	ErrTreasuryNotSet = errors.New("exchange: treasury not set")
	// ErrFeeExceedsCap indicates a configured fee rate above the global ceiling.
	ErrFeeExceedsCap = errors.New("exchange: fee exceeds cap")
	// ErrRecipientRequired indicates an operational fee was enabled without a
	// payout recipient.
	ErrRecipientRequired = errors.New("exchange: fee recipient required")
	// ErrTokenNotConfigured indicates the requested asset is unknown to the
	// registry.
	ErrTokenNotConfigured = errors.New("exchange: token not configured")
	// ErrTokenDisabled indicates the requested asset is configured but switched
	// off for settlement.
	ErrTokenDisabled = errors.New("exchange: token disabled")
	// ErrInvalidAmount indicates a zero or negative request amount.
	ErrInvalidAmount = errors.New("exchange: amount must be positive")
	// ErrExchangeClosed indicates the engine access mode rejects all callers.
	ErrExchangeClosed = errors.New("exchange: closed")
	// ErrNotWhitelisted indicates the beneficiary is missing from the whitelist
	// while whitelist mode is active.
	ErrNotWhitelisted = errors.New("exchange: beneficiary not whitelisted")
	// ErrUnauthorized indicates the caller lacks the role guarding an operation.
	ErrUnauthorized = errors.New("exchange: unauthorized")
	// ErrReentrantCall indicates a nested mutating entry while a settlement is
	// in flight.
	ErrReentrantCall = errors.New("exchange: reentrant call")
	// ErrNotPaused indicates an emergency-only operation outside the paused
	// state.
	ErrNotPaused = errors.New("exchange: engine not paused")
	// ErrRoundRegression indicates an admin push with a round identifier lower
	// than the stored snapshot.
	ErrRoundRegression = errors.New("exchange: round id regression")
)
