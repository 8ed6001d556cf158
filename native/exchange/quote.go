package exchange

import (
	"fmt"
	"math/big"
)

// QuoteExchange previews the outcome of settling nlpAmount points into the
// asset without touching state. Missing or invalid price data yields an
// unavailable quote rather than an error; configuration problems still
// surface so callers can distinguish "no price yet" from "wrong request".
func (e *Engine) QuoteExchange(symbol string, nlpAmount *big.Int) (*Quote, error) {
	if e == nil || e.st == nil {
		return nil, fmt.Errorf("exchange: engine not initialised")
	}
	if nlpAmount == nil || nlpAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	symbol = normaliseSymbol(symbol)
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

	unavailable := &Quote{
		TokenAmount:    big.NewInt(0),
		ExchangeFee:    big.NewInt(0),
		OperationalFee: big.NewInt(0),
		TokenUsdPrice:  big.NewInt(0),
		JpyUsdPrice:    big.NewInt(0),
	}
	tokenUsd, err := e.prices.ResolvePrice(symbol)
	if err != nil {
		return unavailable, nil
	}
	jpyUsd, err := e.prices.ResolvePrice(JpySymbol)
	if err != nil {
		return unavailable, nil
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
		NlpAmount:         nlpAmount,
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
	return &Quote{
		Available:      true,
		TokenAmount:    result.TokenAmount,
		ExchangeFee:    result.ExchangeFee,
		OperationalFee: result.OperationalFee,
		TokenUsdPrice:  cloneBig(tokenUsd),
		JpyUsdPrice:    cloneBig(jpyUsd),
	}, nil
}
