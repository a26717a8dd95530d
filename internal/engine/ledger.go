package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/florin-app/florin/internal/model"
)

// ledger is the ordered store of transactions for one session. Entries are
// kept sorted by (timestamp, insertion sequence), so a backdated insert lands
// at its chronological position rather than at the tail.
type ledger struct {
	entries []*model.Transaction
}

// insert places t at its ordered position.
func (l *ledger) insert(t *model.Transaction) {
	i := sort.Search(len(l.entries), func(i int) bool {
		return t.Before(l.entries[i])
	})
	l.entries = append(l.entries, nil)
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = t
}

// remove deletes the entry with the given id and reports whether it existed.
func (l *ledger) remove(id int64) bool {
	for i, e := range l.entries {
		if e.ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// get returns the entry with the given id, or nil.
func (l *ledger) get(id int64) *model.Transaction {
	for _, e := range l.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// balanceBefore sums signed amounts of all entries strictly before cutoff.
func (l *ledger) balanceBefore(cutoff time.Time) decimal.Decimal {
	b := decimal.Zero
	for _, e := range l.entries {
		if !e.Date.Before(cutoff) {
			break
		}
		b = b.Add(e.Signed())
	}
	return b
}

// balanceThrough sums signed amounts of all entries with timestamp <= cutoff.
func (l *ledger) balanceThrough(cutoff time.Time) decimal.Decimal {
	b := decimal.Zero
	for _, e := range l.entries {
		if e.Date.After(cutoff) {
			break
		}
		b = b.Add(e.Signed())
	}
	return b
}

// balanceBeforeEntry sums signed amounts of all entries ordered before t.
func (l *ledger) balanceBeforeEntry(t *model.Transaction) decimal.Decimal {
	b := decimal.Zero
	for _, e := range l.entries {
		if !e.Before(t) {
			break
		}
		b = b.Add(e.Signed())
	}
	return b
}

// highestBalanceExcluding returns the all-time high of the running balance
// over the ledger with t left out. The empty prefix counts, so the high is
// never negative.
func (l *ledger) highestBalanceExcluding(t *model.Transaction) decimal.Decimal {
	high := decimal.Zero
	b := decimal.Zero
	for _, e := range l.entries {
		if e == t {
			continue
		}
		b = b.Add(e.Signed())
		if b.GreaterThan(high) {
			high = b
		}
	}
	return high
}

// first returns the earliest entry, or nil for an empty ledger.
func (l *ledger) first() *model.Transaction {
	if len(l.entries) == 0 {
		return nil
	}
	return l.entries[0]
}

// frontier returns the latest timestamp among user entries. Internal
// allocations never advance the frontier.
func (l *ledger) frontier() (time.Time, bool) {
	var ts time.Time
	found := false
	for _, e := range l.entries {
		if e.Internal {
			continue
		}
		if !found || e.Date.After(ts) {
			ts = e.Date
			found = true
		}
	}
	return ts, found
}

// dropInternal removes every synthesized allocation entry.
func (l *ledger) dropInternal() {
	kept := l.entries[:0]
	for _, e := range l.entries {
		if !e.Internal {
			kept = append(kept, e)
		}
	}
	l.entries = kept
}

// user returns the user-facing entries in ledger order.
func (l *ledger) user() []*model.Transaction {
	out := make([]*model.Transaction, 0, len(l.entries))
	for _, e := range l.entries {
		if !e.Internal {
			out = append(out, e)
		}
	}
	return out
}
