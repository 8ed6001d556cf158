package exchange

import (
	"errors"
	"math/big"
	"testing"
)

func bigFromString(t *testing.T, value string) *big.Int {
	t.Helper()
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		t.Fatalf("invalid big integer literal %q", value)
	}
	return parsed
}

func TestConvertFullChain(t *testing.T) {
	// 1000 NLP at 0.9 JPY/NLP, 0.0067 USD/JPY, 2500 USD/token, 1% + 0.5% fees.
	result, err := Convert(ConvertInput{
		NlpAmount:         bigFromString(t, "1000000000000000000000"),
		Rate:              RateConfig{Numerator: 90, Denominator: 100},
		JpyUsdPrice:       bigFromString(t, "6700000000000000"),
		TokenUsdPrice:     bigFromString(t, "2500000000000000000000"),
		ExchangeFeeBps:    100,
		OperationalFeeBps: 50,
		TokenDecimals:     18,
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got, want := result.GrossUsd, bigFromString(t, "6030000000000000000"); got.Cmp(want) != 0 {
		t.Fatalf("gross usd = %s, want %s", got, want)
	}
	if got, want := result.NetUsd, bigFromString(t, "5939550000000000000"); got.Cmp(want) != 0 {
		t.Fatalf("net usd = %s, want %s", got, want)
	}
	if got, want := result.TokenAmount, bigFromString(t, "2375820000000000"); got.Cmp(want) != 0 {
		t.Fatalf("token amount = %s, want %s", got, want)
	}
	if got, want := result.ExchangeFee, bigFromString(t, "24120000000000"); got.Cmp(want) != 0 {
		t.Fatalf("exchange fee = %s, want %s", got, want)
	}
	if got, want := result.OperationalFee, bigFromString(t, "12060000000000"); got.Cmp(want) != 0 {
		t.Fatalf("operational fee = %s, want %s", got, want)
	}
}

func TestConvertSixDecimalAsset(t *testing.T) {
	// Same request settled into a 6-decimal stable asset priced at $1.
	result, err := Convert(ConvertInput{
		NlpAmount:     bigFromString(t, "1000000000000000000000"),
		Rate:          RateConfig{Numerator: 90, Denominator: 100},
		JpyUsdPrice:   bigFromString(t, "6700000000000000"),
		TokenUsdPrice: bigFromString(t, "1000000000000000000"),
		TokenDecimals: 6,
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got, want := result.TokenAmount, big.NewInt(6030000); got.Cmp(want) != 0 {
		t.Fatalf("token amount = %s, want %s", got, want)
	}
}

func TestConvertDeterministic(t *testing.T) {
	input := ConvertInput{
		NlpAmount:         bigFromString(t, "123456789012345678901"),
		Rate:              RateConfig{Numerator: 90, Denominator: 100},
		JpyUsdPrice:       bigFromString(t, "6700000000000000"),
		TokenUsdPrice:     bigFromString(t, "2500000000000000000000"),
		ExchangeFeeBps:    100,
		OperationalFeeBps: 50,
		TokenDecimals:     18,
	}
	first, err := Convert(input)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	for i := 0; i < 100; i++ {
		again, err := Convert(input)
		if err != nil {
			t.Fatalf("convert #%d: %v", i, err)
		}
		if again.TokenAmount.Cmp(first.TokenAmount) != 0 ||
			again.ExchangeFee.Cmp(first.ExchangeFee) != 0 ||
			again.OperationalFee.Cmp(first.OperationalFee) != 0 ||
			again.GrossUsd.Cmp(first.GrossUsd) != 0 ||
			again.NetUsd.Cmp(first.NetUsd) != 0 {
			t.Fatalf("convert #%d diverged: %+v vs %+v", i, again, first)
		}
	}
}

func TestConvertMonotonicInAmount(t *testing.T) {
	// With rates and fees held fixed, a larger spend never yields less. The
	// unit-step scan walks gross values across the points where both fee
	// floors step together (multiples of 200 at 100+50 bps), which is where
	// a per-fee subtraction would hand a larger spend a smaller payout.
	unitStep := ConvertInput{
		Rate:              RateConfig{Numerator: 1, Denominator: 1},
		JpyUsdPrice:       bigFromString(t, "1000000000000000000"),
		TokenUsdPrice:     bigFromString(t, "1000000000000000000"),
		ExchangeFeeBps:    100,
		OperationalFeeBps: 50,
		TokenDecimals:     18,
	}
	prev := big.NewInt(0)
	for nlp := int64(1); nlp <= 1000; nlp++ {
		input := unitStep
		input.NlpAmount = big.NewInt(nlp)
		result, err := Convert(input)
		if err != nil {
			t.Fatalf("convert at %d: %v", nlp, err)
		}
		if result.TokenAmount.Cmp(prev) < 0 {
			t.Fatalf("token amount decreased: %s -> %s at nlp %d", prev, result.TokenAmount, nlp)
		}
		prev = result.TokenAmount
	}

	coarse := ConvertInput{
		Rate:              RateConfig{Numerator: 90, Denominator: 100},
		JpyUsdPrice:       bigFromString(t, "6700000000000000"),
		TokenUsdPrice:     bigFromString(t, "1000000000000000000"),
		ExchangeFeeBps:    100,
		OperationalFeeBps: 50,
		TokenDecimals:     6,
	}
	prev = big.NewInt(0)
	amount := bigFromString(t, "1000000000000000000")
	step := bigFromString(t, "333333333333333333")
	for i := 0; i < 200; i++ {
		input := coarse
		input.NlpAmount = new(big.Int).Set(amount)
		result, err := Convert(input)
		if err != nil {
			t.Fatalf("convert at %s: %v", amount, err)
		}
		if result.TokenAmount.Cmp(prev) < 0 {
			t.Fatalf("token amount decreased: %s -> %s at nlp %s", prev, result.TokenAmount, amount)
		}
		prev = result.TokenAmount
		amount.Add(amount, step)
	}
}

func TestConvertRoundsDown(t *testing.T) {
	// 3 NLP at 1:3 rate yields 1 JPY; the fractional remainder is dropped at
	// every division, never accumulated.
	result, err := Convert(ConvertInput{
		NlpAmount:     big.NewInt(10),
		Rate:          RateConfig{Numerator: 1, Denominator: 3},
		JpyUsdPrice:   bigFromString(t, "1000000000000000000"),
		TokenUsdPrice: big.NewInt(2),
		TokenDecimals: 0,
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if got := result.TokenAmount; got.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("token amount = %s, want 1", got)
	}
}

func TestConvertFeesNeverExceedGross(t *testing.T) {
	result, err := Convert(ConvertInput{
		NlpAmount:         bigFromString(t, "999999999999999999999"),
		Rate:              RateConfig{Numerator: 97, Denominator: 100},
		JpyUsdPrice:       bigFromString(t, "6913000000000000"),
		TokenUsdPrice:     bigFromString(t, "1000000000000000000"),
		ExchangeFeeBps:    999,
		OperationalFeeBps: 333,
		TokenDecimals:     18,
	})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	sum := new(big.Int).Add(result.NetUsd, feeShare(result.GrossUsd, 999))
	sum.Add(sum, feeShare(result.GrossUsd, 333))
	if sum.Cmp(result.GrossUsd) > 0 {
		t.Fatalf("net + fees = %s exceeds gross = %s", sum, result.GrossUsd)
	}
	// Each of the three floored shares may drop less than one unit.
	slack := new(big.Int).Sub(result.GrossUsd, sum)
	if slack.Cmp(big.NewInt(2)) > 0 {
		t.Fatalf("rounding loss = %s units, want at most one per floored term", slack)
	}
}

func TestConvertRejectsBadInput(t *testing.T) {
	base := ConvertInput{
		NlpAmount:     big.NewInt(100),
		Rate:          RateConfig{Numerator: 1, Denominator: 1},
		JpyUsdPrice:   big.NewInt(1),
		TokenUsdPrice: big.NewInt(1),
	}

	zeroAmount := base
	zeroAmount.NlpAmount = big.NewInt(0)
	if _, err := Convert(zeroAmount); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: err = %v, want ErrInvalidAmount", err)
	}

	negativePrice := base
	negativePrice.TokenUsdPrice = big.NewInt(-5)
	if _, err := Convert(negativePrice); !errors.Is(err, ErrInvalidPriceData) {
		t.Fatalf("negative price: err = %v, want ErrInvalidPriceData", err)
	}

	nilJpy := base
	nilJpy.JpyUsdPrice = nil
	if _, err := Convert(nilJpy); !errors.Is(err, ErrInvalidPriceData) {
		t.Fatalf("nil jpy price: err = %v, want ErrInvalidPriceData", err)
	}

	confiscatory := base
	confiscatory.ExchangeFeeBps = 9000
	confiscatory.OperationalFeeBps = 1000
	if _, err := Convert(confiscatory); !errors.Is(err, ErrFeeExceedsCap) {
		t.Fatalf("100%% combined fees: err = %v, want ErrFeeExceedsCap", err)
	}

	overflowBps := base
	overflowBps.ExchangeFeeBps = BpsDenominator + 1
	if _, err := Convert(overflowBps); !errors.Is(err, ErrFeeExceedsCap) {
		t.Fatalf("bps above denominator: err = %v, want ErrFeeExceedsCap", err)
	}
}

func TestNormalizePrice(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		decimals uint8
		want     string
	}{
		{"eight to eighteen", "250000000000", 8, "2500000000000000000000"},
		{"already normalized", "6700000000000000", 18, "6700000000000000"},
		{"twenty to eighteen", "670000000000000000", 20, "6700000000000000"},
		{"zero decimals", "2500", 0, "2500000000000000000000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePrice(bigFromString(t, tc.raw), tc.decimals)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if got.String() != tc.want {
				t.Fatalf("normalize = %s, want %s", got, tc.want)
			}
		})
	}

	if _, err := NormalizePrice(big.NewInt(0), 8); !errors.Is(err, ErrInvalidPriceData) {
		t.Fatalf("zero answer: err = %v, want ErrInvalidPriceData", err)
	}
	if _, err := NormalizePrice(big.NewInt(-1), 8); !errors.Is(err, ErrInvalidPriceData) {
		t.Fatalf("negative answer: err = %v, want ErrInvalidPriceData", err)
	}
	if _, err := NormalizePrice(nil, 8); !errors.Is(err, ErrInvalidPriceData) {
		t.Fatalf("nil answer: err = %v, want ErrInvalidPriceData", err)
	}
}
