package exchange

import (
	"fmt"
	"math/big"
)

var unit18 = new(big.Int).Exp(big.NewInt(10), big.NewInt(NormalizedDecimals), nil)

// ConvertInput carries everything the conversion needs. Prices are 18-decimal
// fixed point; fee rates are basis points; the NLP to JPY rate is an integer
// ratio.
type ConvertInput struct {
	NlpAmount         *big.Int
	Rate              RateConfig
	JpyUsdPrice       *big.Int
	TokenUsdPrice     *big.Int
	ExchangeFeeBps    uint32
	OperationalFeeBps uint32
	TokenDecimals     uint8
}

// ConvertResult is the decimal-aware output of one conversion. All amounts are
// rounded down, so fees plus the net amount never exceed the gross equivalent.
type ConvertResult struct {
	TokenAmount    *big.Int
	ExchangeFee    *big.Int
	OperationalFee *big.Int
	GrossUsd       *big.Int
	NetUsd         *big.Int
}

// Convert runs the NLP → JPY → USD → token chain as a pure function.
//
// Every step is a full-precision multiply followed by a single floor division;
// nothing is rounded per factor, so truncation error never compounds.
func Convert(input ConvertInput) (ConvertResult, error) {
	if input.NlpAmount == nil || input.NlpAmount.Sign() <= 0 {
		return ConvertResult{}, ErrInvalidAmount
	}
	rate := input.Rate.Normalise()
	if rate.Numerator == 0 {
		return ConvertResult{}, fmt.Errorf("exchange: rate numerator must be positive")
	}
	if input.JpyUsdPrice == nil || input.JpyUsdPrice.Sign() <= 0 {
		return ConvertResult{}, fmt.Errorf("%w: jpy/usd price", ErrInvalidPriceData)
	}
	if input.TokenUsdPrice == nil || input.TokenUsdPrice.Sign() <= 0 {
		return ConvertResult{}, fmt.Errorf("%w: token/usd price", ErrInvalidPriceData)
	}
	if input.ExchangeFeeBps > BpsDenominator || input.OperationalFeeBps > BpsDenominator {
		return ConvertResult{}, ErrFeeExceedsCap
	}
	if uint64(input.ExchangeFeeBps)+uint64(input.OperationalFeeBps) >= BpsDenominator {
		return ConvertResult{}, fmt.Errorf("%w: combined fees reach 100%%", ErrFeeExceedsCap)
	}

	jpy := new(big.Int).Mul(input.NlpAmount, new(big.Int).SetUint64(rate.Numerator))
	jpy.Quo(jpy, new(big.Int).SetUint64(rate.Denominator))

	grossUsd := new(big.Int).Mul(jpy, input.JpyUsdPrice)
	grossUsd.Quo(grossUsd, unit18)

	exchangeFeeUsd := feeShare(grossUsd, input.ExchangeFeeBps)
	operationalFeeUsd := feeShare(grossUsd, input.OperationalFeeBps)

	// The net is the retained share in a single floor division, not gross
	// minus the two fee floors. Subtracting two independently floored fees
	// can shrink the net by an extra unit when both floors step on the same
	// gross increment, which would let a larger spend pay out less.
	netUsd := feeShare(grossUsd, BpsDenominator-input.ExchangeFeeBps-input.OperationalFeeBps)

	scale := pow10(input.TokenDecimals)
	result := ConvertResult{
		TokenAmount:    usdToAsset(netUsd, scale, input.TokenUsdPrice),
		ExchangeFee:    usdToAsset(exchangeFeeUsd, scale, input.TokenUsdPrice),
		OperationalFee: usdToAsset(operationalFeeUsd, scale, input.TokenUsdPrice),
		GrossUsd:       grossUsd,
		NetUsd:         netUsd,
	}
	return result, nil
}

func feeShare(gross *big.Int, bps uint32) *big.Int {
	if bps == 0 || gross.Sign() <= 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(gross, new(big.Int).SetUint64(uint64(bps)))
	return fee.Quo(fee, big.NewInt(BpsDenominator))
}

func usdToAsset(usd, scale, price *big.Int) *big.Int {
	if usd.Sign() <= 0 {
		return big.NewInt(0)
	}
	amount := new(big.Int).Mul(usd, scale)
	return amount.Quo(amount, price)
}
