package exchange

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rlp"
)

// FeeLedger accumulates collected-and-unwithdrawn operational fees per asset.
type FeeLedger struct {
	st Storage
}

// NewFeeLedger constructs a ledger bound to the provided storage.
func NewFeeLedger(st Storage) *FeeLedger {
	return &FeeLedger{st: st}
}

// Balance returns the withdrawable operational-fee balance for the asset.
func (l *FeeLedger) Balance(symbol string) (*big.Int, error) {
	if l == nil {
		return nil, fmt.Errorf("exchange: fee ledger not initialised")
	}
	var stored string
	ok, err := l.st.KVGet(feeBalanceKey(symbol), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return parseStoredInt(stored)
}

func (l *FeeLedger) credit(symbol string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return nil
	}
	balance, err := l.Balance(symbol)
	if err != nil {
		return err
	}
	balance.Add(balance, amount)
	return l.st.KVPut(feeBalanceKey(symbol), balance.String())
}

func (l *FeeLedger) debit(symbol string, amount *big.Int) (*big.Int, error) {
	balance, err := l.Balance(symbol)
	if err != nil {
		return nil, err
	}
	withdrawn := amount
	if withdrawn == nil || withdrawn.Sign() == 0 {
		withdrawn = new(big.Int).Set(balance)
	}
	if withdrawn.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if withdrawn.Cmp(balance) > 0 {
		return nil, fmt.Errorf("%w: %s > %s", ErrInsufficientOperationalFee, withdrawn, balance)
	}
	balance.Sub(balance, withdrawn)
	if err := l.st.KVPut(feeBalanceKey(symbol), balance.String()); err != nil {
		return nil, err
	}
	return new(big.Int).Set(withdrawn), nil
}

type storedTokenStats struct {
	TotalNlpExchanged            string
	TotalAssetSent               string
	TotalExchangeFeeCollected    string
	TotalOperationalFeeCollected string
	ExchangeCount                uint64
}

// StatsStore keeps the per-asset settlement counters.
type StatsStore struct {
	st Storage
}

// NewStatsStore constructs a store bound to the provided storage.
func NewStatsStore(st Storage) *StatsStore {
	return &StatsStore{st: st}
}

// Stats returns the counters for the asset, zero-valued when no settlement has
// occurred yet.
func (s *StatsStore) Stats(symbol string) (*TokenStats, error) {
	if s == nil {
		return nil, fmt.Errorf("exchange: stats store not initialised")
	}
	var stored storedTokenStats
	ok, err := s.st.KVGet(statsKey(symbol), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return (&TokenStats{}).Clone(), nil
	}
	stats := &TokenStats{ExchangeCount: stored.ExchangeCount}
	if stats.TotalNlpExchanged, err = parseStoredInt(stored.TotalNlpExchanged); err != nil {
		return nil, err
	}
	if stats.TotalAssetSent, err = parseStoredInt(stored.TotalAssetSent); err != nil {
		return nil, err
	}
	if stats.TotalExchangeFeeCollected, err = parseStoredInt(stored.TotalExchangeFeeCollected); err != nil {
		return nil, err
	}
	if stats.TotalOperationalFeeCollected, err = parseStoredInt(stored.TotalOperationalFeeCollected); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *StatsStore) record(symbol string, nlp, asset, exchangeFee, operationalFee *big.Int) error {
	stats, err := s.Stats(symbol)
	if err != nil {
		return err
	}
	stats.TotalNlpExchanged.Add(stats.TotalNlpExchanged, nlp)
	stats.TotalAssetSent.Add(stats.TotalAssetSent, asset)
	stats.TotalExchangeFeeCollected.Add(stats.TotalExchangeFeeCollected, exchangeFee)
	stats.TotalOperationalFeeCollected.Add(stats.TotalOperationalFeeCollected, operationalFee)
	stats.ExchangeCount++
	stored := storedTokenStats{
		TotalNlpExchanged:            stats.TotalNlpExchanged.String(),
		TotalAssetSent:               stats.TotalAssetSent.String(),
		TotalExchangeFeeCollected:    stats.TotalExchangeFeeCollected.String(),
		TotalOperationalFeeCollected: stats.TotalOperationalFeeCollected.String(),
		ExchangeCount:                stats.ExchangeCount,
	}
	return s.st.KVPut(statsKey(symbol), stored)
}

type storedUserRecord struct {
	NlpSpent      string
	AssetReceived string
}

// UserRecords accumulates per (user, asset) activity.
type UserRecords struct {
	st Storage
}

// NewUserRecords constructs a store bound to the provided storage.
func NewUserRecords(st Storage) *UserRecords {
	return &UserRecords{st: st}
}

// Get returns the cumulative record for the user and asset.
func (u *UserRecords) Get(user [20]byte, symbol string) (*UserRecord, error) {
	if u == nil {
		return nil, fmt.Errorf("exchange: user records not initialised")
	}
	var stored storedUserRecord
	ok, err := u.st.KVGet(userRecordKey(user, symbol), &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		return (&UserRecord{}).Clone(), nil
	}
	record := &UserRecord{}
	if record.NlpSpent, err = parseStoredInt(stored.NlpSpent); err != nil {
		return nil, err
	}
	if record.AssetReceived, err = parseStoredInt(stored.AssetReceived); err != nil {
		return nil, err
	}
	return record, nil
}

func (u *UserRecords) record(user [20]byte, symbol string, nlp, asset *big.Int) error {
	record, err := u.Get(user, symbol)
	if err != nil {
		return err
	}
	record.NlpSpent.Add(record.NlpSpent, nlp)
	record.AssetReceived.Add(record.AssetReceived, asset)
	stored := storedUserRecord{
		NlpSpent:      record.NlpSpent.String(),
		AssetReceived: record.AssetReceived.String(),
	}
	return u.st.KVPut(userRecordKey(user, symbol), stored)
}

// SettlementRecord is the auditable trail written for every settled exchange.
type SettlementRecord struct {
	ReceiptID      string
	Beneficiary    [20]byte
	Relayer        [20]byte
	Symbol         string
	NlpAmount      *big.Int
	TokenAmount    *big.Int
	ExchangeFee    *big.Int
	OperationalFee *big.Int
	TokenUsdPrice  *big.Int
	JpyUsdPrice    *big.Int
	Relayed        bool
	CreatedAt      int64
}

// Copy returns a deep copy to avoid callers mutating shared pointers.
func (r *SettlementRecord) Copy() *SettlementRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.NlpAmount = cloneBig(r.NlpAmount)
	clone.TokenAmount = cloneBig(r.TokenAmount)
	clone.ExchangeFee = cloneBig(r.ExchangeFee)
	clone.OperationalFee = cloneBig(r.OperationalFee)
	clone.TokenUsdPrice = cloneBig(r.TokenUsdPrice)
	clone.JpyUsdPrice = cloneBig(r.JpyUsdPrice)
	return &clone
}

type storedSettlementRecord struct {
	ReceiptID      string
	Beneficiary    [20]byte
	Relayer        [20]byte
	Symbol         string
	NlpAmount      string
	TokenAmount    string
	ExchangeFee    string
	OperationalFee string
	TokenUsdPrice  string
	JpyUsdPrice    string
	Relayed        bool
	CreatedAt      uint64
}

type receiptIndexEntry struct {
	ReceiptID string
	CreatedAt uint64
}

// SettlementLedger persists settlement records in the underlying store.
type SettlementLedger struct {
	st    Storage
	clock func() time.Time
}

// NewSettlementLedger constructs a ledger bound to the provided storage.
func NewSettlementLedger(st Storage) *SettlementLedger {
	return &SettlementLedger{st: st, clock: time.Now}
}

// SetClock overrides the time source, primarily for deterministic testing.
func (l *SettlementLedger) SetClock(clock func() time.Time) {
	if l == nil || clock == nil {
		return
	}
	l.clock = clock
}

// Put stores the settlement record, enforcing append-only semantics keyed by
// the receipt identifier.
func (l *SettlementLedger) Put(record *SettlementRecord) error {
	if l == nil {
		return fmt.Errorf("exchange: ledger not initialised")
	}
	if record == nil {
		return fmt.Errorf("exchange: record must not be nil")
	}
	receiptID := strings.TrimSpace(record.ReceiptID)
	if receiptID == "" {
		return fmt.Errorf("exchange: receipt id required")
	}
	key := receiptKey(receiptID)
	var existing storedSettlementRecord
	ok, err := l.st.KVGet(key, &existing)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("exchange: receipt %s already exists", receiptID)
	}
	stored := toStoredSettlement(record)
	if stored.CreatedAt == 0 {
		now := l.clock().UTC().Unix()
		if now > 0 {
			stored.CreatedAt = uint64(now)
		}
	}
	if err := l.st.KVPut(key, stored); err != nil {
		return err
	}
	entry := receiptIndexEntry{ReceiptID: stored.ReceiptID, CreatedAt: stored.CreatedAt}
	encoded, err := rlp.EncodeToBytes(entry)
	if err != nil {
		return err
	}
	return l.st.KVAppend(receiptIndexKey, encoded)
}

// Get retrieves a settlement record by receipt identifier.
func (l *SettlementLedger) Get(receiptID string) (*SettlementRecord, bool, error) {
	if l == nil {
		return nil, false, fmt.Errorf("exchange: ledger not initialised")
	}
	var stored storedSettlementRecord
	ok, err := l.st.KVGet(receiptKey(receiptID), &stored)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	record, err := fromStoredSettlement(&stored)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// List returns settlement records within the supplied inclusive timestamp
// range. The cursor is the receipt identifier of the last item from the
// previous page.
func (l *SettlementLedger) List(startTs, endTs int64, cursor string, limit int) ([]*SettlementRecord, string, error) {
	if l == nil {
		return nil, "", fmt.Errorf("exchange: ledger not initialised")
	}
	entries, err := l.loadIndex()
	if err != nil {
		return nil, "", err
	}
	filtered := make([]receiptIndexEntry, 0, len(entries))
	for _, entry := range entries {
		createdAt, err := uint64ToInt64(entry.CreatedAt)
		if err != nil {
			return nil, "", fmt.Errorf("exchange: index entry overflow: %w", err)
		}
		if startTs != 0 && createdAt < startTs {
			continue
		}
		if endTs != 0 && createdAt > endTs {
			continue
		}
		filtered = append(filtered, entry)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].CreatedAt == filtered[j].CreatedAt {
			return filtered[i].ReceiptID < filtered[j].ReceiptID
		}
		return filtered[i].CreatedAt < filtered[j].CreatedAt
	})
	startIdx := 0
	cursorID := strings.TrimSpace(cursor)
	if cursorID != "" {
		for i, entry := range filtered {
			if entry.ReceiptID == cursorID {
				startIdx = i + 1
				break
			}
		}
	}
	pageSize := limit
	if pageSize <= 0 {
		pageSize = len(filtered) - startIdx
	}
	records := make([]*SettlementRecord, 0, pageSize)
	nextCursor := ""
	for i := startIdx; i < len(filtered) && len(records) < pageSize; i++ {
		entry := filtered[i]
		record, ok, err := l.Get(entry.ReceiptID)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			continue
		}
		records = append(records, record)
		nextCursor = entry.ReceiptID
	}
	if startIdx+len(records) >= len(filtered) {
		nextCursor = ""
	}
	return records, nextCursor, nil
}

// ExportCSV generates a deterministic CSV export covering the provided
// timestamp window, returned base64 encoded alongside the entry count.
func (l *SettlementLedger) ExportCSV(startTs, endTs int64) (string, int, error) {
	if l == nil {
		return "", 0, fmt.Errorf("exchange: ledger not initialised")
	}
	records, _, err := l.List(startTs, endTs, "", 0)
	if err != nil {
		return "", 0, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	header := []string{"receiptId", "beneficiary", "relayer", "symbol", "nlpAmount", "tokenAmount", "exchangeFee", "operationalFee", "tokenUsdPrice", "jpyUsdPrice", "execution", "createdAt"}
	if err := writer.Write(header); err != nil {
		return "", 0, err
	}
	for _, record := range records {
		execution := "direct"
		if record.Relayed {
			execution = "relayed"
		}
		row := []string{
			record.ReceiptID,
			hex.EncodeToString(record.Beneficiary[:]),
			hex.EncodeToString(record.Relayer[:]),
			record.Symbol,
			record.NlpAmount.String(),
			record.TokenAmount.String(),
			record.ExchangeFee.String(),
			record.OperationalFee.String(),
			record.TokenUsdPrice.String(),
			record.JpyUsdPrice.String(),
			execution,
			strconv.FormatInt(record.CreatedAt, 10),
		}
		if err := writer.Write(row); err != nil {
			return "", 0, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", 0, err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), len(records), nil
}

func (l *SettlementLedger) loadIndex() ([]receiptIndexEntry, error) {
	var raw [][]byte
	if err := l.st.KVGetList(receiptIndexKey, &raw); err != nil {
		return nil, err
	}
	entries := make([]receiptIndexEntry, 0, len(raw))
	for _, encoded := range raw {
		if len(encoded) == 0 {
			continue
		}
		var entry receiptIndexEntry
		if err := rlp.DecodeBytes(encoded, &entry); err != nil {
			return nil, err
		}
		if strings.TrimSpace(entry.ReceiptID) == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func toStoredSettlement(record *SettlementRecord) storedSettlementRecord {
	stored := storedSettlementRecord{}
	if record == nil {
		return stored
	}
	stored.ReceiptID = strings.TrimSpace(record.ReceiptID)
	stored.Beneficiary = record.Beneficiary
	stored.Relayer = record.Relayer
	stored.Symbol = normaliseSymbol(record.Symbol)
	stored.NlpAmount = cloneBig(record.NlpAmount).String()
	stored.TokenAmount = cloneBig(record.TokenAmount).String()
	stored.ExchangeFee = cloneBig(record.ExchangeFee).String()
	stored.OperationalFee = cloneBig(record.OperationalFee).String()
	stored.TokenUsdPrice = cloneBig(record.TokenUsdPrice).String()
	stored.JpyUsdPrice = cloneBig(record.JpyUsdPrice).String()
	stored.Relayed = record.Relayed
	if record.CreatedAt > 0 {
		stored.CreatedAt = uint64(record.CreatedAt)
	}
	return stored
}

func fromStoredSettlement(stored *storedSettlementRecord) (*SettlementRecord, error) {
	if stored == nil {
		return nil, fmt.Errorf("exchange: nil stored record")
	}
	createdAt, err := uint64ToInt64(stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("exchange: created at overflow: %w", err)
	}
	record := &SettlementRecord{
		ReceiptID:   stored.ReceiptID,
		Beneficiary: stored.Beneficiary,
		Relayer:     stored.Relayer,
		Symbol:      stored.Symbol,
		Relayed:     stored.Relayed,
		CreatedAt:   createdAt,
	}
	if record.NlpAmount, err = parseStoredInt(stored.NlpAmount); err != nil {
		return nil, err
	}
	if record.TokenAmount, err = parseStoredInt(stored.TokenAmount); err != nil {
		return nil, err
	}
	if record.ExchangeFee, err = parseStoredInt(stored.ExchangeFee); err != nil {
		return nil, err
	}
	if record.OperationalFee, err = parseStoredInt(stored.OperationalFee); err != nil {
		return nil, err
	}
	if record.TokenUsdPrice, err = parseStoredInt(stored.TokenUsdPrice); err != nil {
		return nil, err
	}
	if record.JpyUsdPrice, err = parseStoredInt(stored.JpyUsdPrice); err != nil {
		return nil, err
	}
	return record, nil
}

func uint64ToInt64(value uint64) (int64, error) {
	if value > math.MaxInt64 {
		return 0, fmt.Errorf("value %d exceeds int64 range", value)
	}
	return int64(value), nil
}
