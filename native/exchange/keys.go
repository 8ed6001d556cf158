package exchange

import (
	"encoding/hex"
	"strings"
)

var (
	tokenConfigPrefix    = []byte("exchange/token/")
	operationalFeePrefix = []byte("exchange/opfee/")
	feeBalancePrefix     = []byte("exchange/feebal/")
	statsPrefix          = []byte("exchange/stats/")
	userRecordPrefix     = []byte("exchange/user/")
	snapshotPrefix       = []byte("exchange/price/")
	whitelistPrefix      = []byte("exchange/whitelist/")
	receiptPrefix        = []byte("exchange/receipt/")
	receiptIndexKey      = []byte("exchange/receipt/index")
	tokenIndexKey        = []byte("exchange/token/index")
	modeKey              = []byte("exchange/mode")
	rateKey              = []byte("exchange/rate")
	maxFeeKey            = []byte("exchange/maxfee")
	treasuryKey          = []byte("exchange/treasury")
	pausedKey            = []byte("exchange/paused")
)

func prefixedKey(prefix []byte, suffix string) []byte {
	trimmed := strings.TrimSpace(suffix)
	buf := make([]byte, len(prefix)+len(trimmed))
	copy(buf, prefix)
	copy(buf[len(prefix):], trimmed)
	return buf
}

func tokenConfigKey(symbol string) []byte {
	return prefixedKey(tokenConfigPrefix, normaliseSymbol(symbol))
}

func operationalFeeKey(symbol string) []byte {
	return prefixedKey(operationalFeePrefix, normaliseSymbol(symbol))
}

func feeBalanceKey(symbol string) []byte {
	return prefixedKey(feeBalancePrefix, normaliseSymbol(symbol))
}

func statsKey(symbol string) []byte {
	return prefixedKey(statsPrefix, normaliseSymbol(symbol))
}

func userRecordKey(user [20]byte, symbol string) []byte {
	return prefixedKey(userRecordPrefix, hex.EncodeToString(user[:])+"/"+normaliseSymbol(symbol))
}

func snapshotKey(symbol string) []byte {
	return prefixedKey(snapshotPrefix, normaliseSymbol(symbol))
}

func whitelistKey(addr [20]byte) []byte {
	return prefixedKey(whitelistPrefix, hex.EncodeToString(addr[:]))
}

func receiptKey(receiptID string) []byte {
	return prefixedKey(receiptPrefix, receiptID)
}
