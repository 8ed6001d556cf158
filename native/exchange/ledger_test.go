package exchange

import (
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"
)

func TestFeeLedgerCreditDebit(t *testing.T) {
	ledger := NewFeeLedger(newTestState(t))

	balance, err := ledger.Balance("USDC")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("fresh balance = %s", balance)
	}

	if err := ledger.credit("USDC", big.NewInt(500)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := ledger.credit("USDC", big.NewInt(250)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	withdrawn, err := ledger.debit("USDC", big.NewInt(300))
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if withdrawn.Int64() != 300 {
		t.Fatalf("withdrawn = %s", withdrawn)
	}

	if _, err := ledger.debit("USDC", big.NewInt(1000)); !errors.Is(err, ErrInsufficientOperationalFee) {
		t.Fatalf("over-debit: err = %v", err)
	}

	// Zero amount drains the remaining balance.
	withdrawn, err = ledger.debit("USDC", nil)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if withdrawn.Int64() != 450 {
		t.Fatalf("drained = %s", withdrawn)
	}
	balance, err = ledger.Balance("USDC")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Sign() != 0 {
		t.Fatalf("post-drain balance = %s", balance)
	}
}

func TestStatsAccumulate(t *testing.T) {
	stats := NewStatsStore(newTestState(t))

	for i := 0; i < 3; i++ {
		err := stats.record("USDC", big.NewInt(1000), big.NewInt(60), big.NewInt(2), big.NewInt(1))
		if err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := stats.Stats("usdc")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if got.ExchangeCount != 3 {
		t.Fatalf("count = %d", got.ExchangeCount)
	}
	if got.TotalNlpExchanged.Int64() != 3000 || got.TotalAssetSent.Int64() != 180 {
		t.Fatalf("totals = %+v", got)
	}
	if got.TotalExchangeFeeCollected.Int64() != 6 || got.TotalOperationalFeeCollected.Int64() != 3 {
		t.Fatalf("fee totals = %+v", got)
	}
}

func TestUserRecordsAccumulate(t *testing.T) {
	users := NewUserRecords(newTestState(t))
	user := testAddr(0x07)

	if err := users.record(user, "USDC", big.NewInt(100), big.NewInt(6)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := users.record(user, "USDC", big.NewInt(50), big.NewInt(3)); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := users.Get(user, "USDC")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.NlpSpent.Int64() != 150 || got.AssetReceived.Int64() != 9 {
		t.Fatalf("record = %+v", got)
	}

	other, err := users.Get(testAddr(0x08), "USDC")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if other.NlpSpent.Sign() != 0 {
		t.Fatalf("untouched user has spend %s", other.NlpSpent)
	}
}

func testSettlementRecord(id string, createdAt int64) *SettlementRecord {
	return &SettlementRecord{
		ReceiptID:      id,
		Beneficiary:    testAddr(0x09),
		Symbol:         "USDC",
		NlpAmount:      big.NewInt(1000),
		TokenAmount:    big.NewInt(60),
		ExchangeFee:    big.NewInt(2),
		OperationalFee: big.NewInt(1),
		TokenUsdPrice:  big.NewInt(1_000_000),
		JpyUsdPrice:    big.NewInt(6_700),
		CreatedAt:      createdAt,
	}
}

func TestSettlementLedgerPutGet(t *testing.T) {
	ledger := NewSettlementLedger(newTestState(t))
	ledger.SetClock(func() time.Time { return time.Unix(1724900000, 0) })

	record := testSettlementRecord("r-1", 0)
	if err := ledger.Put(record); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := ledger.Put(testSettlementRecord("r-1", 0)); err == nil {
		t.Fatalf("duplicate receipt accepted")
	}

	got, ok, err := ledger.Get("r-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.CreatedAt != 1724900000 {
		t.Fatalf("createdAt = %d", got.CreatedAt)
	}
	if got.NlpAmount.Int64() != 1000 || got.TokenAmount.Int64() != 60 {
		t.Fatalf("record = %+v", got)
	}

	if _, ok, err := ledger.Get("missing"); err != nil || ok {
		t.Fatalf("missing receipt: ok=%v err=%v", ok, err)
	}
}

func TestSettlementLedgerListPagination(t *testing.T) {
	ledger := NewSettlementLedger(newTestState(t))
	for i := 0; i < 5; i++ {
		record := testSettlementRecord(fmt.Sprintf("r-%d", i), int64(1724900000+i))
		if err := ledger.Put(record); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	page, cursor, err := ledger.List(0, 0, "", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ReceiptID != "r-0" || page[1].ReceiptID != "r-1" {
		t.Fatalf("first page = %v cursor=%q", receiptIDs(page), cursor)
	}
	if cursor != "r-1" {
		t.Fatalf("cursor = %q", cursor)
	}

	page, cursor, err = ledger.List(0, 0, cursor, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 3 || page[0].ReceiptID != "r-2" {
		t.Fatalf("second page = %v", receiptIDs(page))
	}
	if cursor != "" {
		t.Fatalf("exhausted cursor = %q", cursor)
	}

	// Timestamp window trims both ends.
	page, _, err = ledger.List(1724900001, 1724900003, "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 3 || page[0].ReceiptID != "r-1" || page[2].ReceiptID != "r-3" {
		t.Fatalf("windowed page = %v", receiptIDs(page))
	}
}

func TestSettlementLedgerExportCSV(t *testing.T) {
	ledger := NewSettlementLedger(newTestState(t))
	for i := 0; i < 2; i++ {
		record := testSettlementRecord(fmt.Sprintf("r-%d", i), int64(1724900000+i))
		record.Relayed = i == 1
		if err := ledger.Put(record); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	encoded, count, err := ledger.ExportCSV(0, 0)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d", count)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(string(raw))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][0] != "receiptId" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != "r-0" || rows[1][10] != "direct" {
		t.Fatalf("first row = %v", rows[1])
	}
	if rows[2][0] != "r-1" || rows[2][10] != "relayed" {
		t.Fatalf("second row = %v", rows[2])
	}
}

func receiptIDs(records []*SettlementRecord) []string {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ReceiptID)
	}
	return ids
}
