package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/florin-app/florin/internal/model"
)

func entry(id, seq int64, date time.Time, amount string, typ model.TransactionType) *model.Transaction {
	return &model.Transaction{
		ID:     id,
		Seq:    seq,
		Date:   date,
		Amount: decimal.RequireFromString(amount),
		Type:   typ,
	}
}

func TestLedger_InsertKeepsChronologicalOrder(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	var l ledger
	l.insert(entry(1, 1, base, "10", model.Deposit))
	l.insert(entry(2, 2, base.AddDate(0, 0, 5), "20", model.Deposit))
	// Backdated: arrives third, belongs first.
	l.insert(entry(3, 3, base.AddDate(0, 0, -5), "30", model.Deposit))
	// Timestamp tie with entry 1: later insertion sorts after.
	l.insert(entry(4, 4, base, "40", model.Deposit))

	wantIDs := []int64{3, 1, 4, 2}
	if len(l.entries) != len(wantIDs) {
		t.Fatalf("ledger has %d entries, want %d", len(l.entries), len(wantIDs))
	}
	for i, want := range wantIDs {
		if l.entries[i].ID != want {
			t.Errorf("entries[%d].ID = %d, want %d", i, l.entries[i].ID, want)
		}
	}
}

func TestLedger_Balances(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	var l ledger
	l.insert(entry(1, 1, base, "100", model.Deposit))
	l.insert(entry(2, 2, base.AddDate(0, 0, 1), "30", model.Withdrawal))
	l.insert(entry(3, 3, base.AddDate(0, 0, 2), "50", model.Deposit))

	if got := l.balanceBefore(base.AddDate(0, 0, 1)); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("balanceBefore = %s, want 100", got)
	}
	if got := l.balanceThrough(base.AddDate(0, 0, 1)); !got.Equal(decimal.NewFromInt(70)) {
		t.Errorf("balanceThrough = %s, want 70", got)
	}
	if got := l.balanceBeforeEntry(l.entries[2]); !got.Equal(decimal.NewFromInt(70)) {
		t.Errorf("balanceBeforeEntry = %s, want 70", got)
	}
}

func TestLedger_HighestBalanceExcluding(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	var l ledger
	l.insert(entry(1, 1, base, "100", model.Deposit))
	l.insert(entry(2, 2, base.AddDate(0, 0, 1), "80", model.Withdrawal))
	last := entry(3, 3, base.AddDate(0, 0, 2), "90", model.Deposit)
	l.insert(last)

	// Excluding the last deposit, the running balance peaked at 100.
	if got := l.highestBalanceExcluding(last); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("highestBalanceExcluding = %s, want 100", got)
	}

	// With only withdrawals the high is floored at zero (the empty prefix).
	var neg ledger
	w := entry(1, 1, base, "50", model.Withdrawal)
	neg.insert(w)
	neg.insert(entry(2, 2, base.AddDate(0, 0, 1), "10", model.Withdrawal))
	if got := neg.highestBalanceExcluding(neg.entries[1]); !got.Equal(decimal.Zero) {
		t.Errorf("highestBalanceExcluding = %s, want 0", got)
	}
}

func TestLedger_FrontierIgnoresInternal(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	var l ledger
	l.insert(entry(1, 1, base, "100", model.Deposit))
	internal := entry(2, 2, base.AddDate(0, 1, 0), "10", model.Withdrawal)
	internal.Internal = true
	l.insert(internal)

	frontier, ok := l.frontier()
	if !ok {
		t.Fatal("frontier() reported empty ledger")
	}
	if !frontier.Equal(base) {
		t.Errorf("frontier = %v, want %v", frontier, base)
	}

	l.dropInternal()
	if len(l.entries) != 1 {
		t.Errorf("after dropInternal ledger has %d entries, want 1", len(l.entries))
	}
}

func TestLedger_RemoveAndGet(t *testing.T) {
	base := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	var l ledger
	l.insert(entry(1, 1, base, "100", model.Deposit))

	if l.get(1) == nil {
		t.Fatal("get(1) = nil")
	}
	if !l.remove(1) {
		t.Error("remove(1) = false")
	}
	if l.remove(1) {
		t.Error("remove(1) second call = true")
	}
	if l.get(1) != nil {
		t.Error("get(1) after remove != nil")
	}
}
