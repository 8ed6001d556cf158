package exchange

import (
	"fmt"
	"math/big"
)

// NormalizePrice converts a raw quote at the supplied decimal base to the
// 18-decimal fixed point used by the conversion arithmetic. Quotes with a
// precision above 18 decimals are truncated towards zero; such sources are not
// expected in practice.
func NormalizePrice(rawAnswer *big.Int, sourceDecimals uint8) (*big.Int, error) {
	if rawAnswer == nil || rawAnswer.Sign() <= 0 {
		return nil, fmt.Errorf("%w: answer must be positive", ErrInvalidPriceData)
	}
	switch {
	case sourceDecimals == NormalizedDecimals:
		return new(big.Int).Set(rawAnswer), nil
	case sourceDecimals < NormalizedDecimals:
		scale := pow10(NormalizedDecimals - sourceDecimals)
		return new(big.Int).Mul(rawAnswer, scale), nil
	default:
		scale := pow10(sourceDecimals - NormalizedDecimals)
		return new(big.Int).Quo(rawAnswer, scale), nil
	}
}

func pow10(exp uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}
