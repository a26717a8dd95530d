package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/florin-app/florin/internal/model"
)

// spendWindowDays is the trailing window for message-rule spend sums.
const spendWindowDays = 30

// newHighMinimumMonths is how much ledger history must exist before the
// new-high notification starts firing.
const newHighMinimumMonths = 3

// evaluateTransaction runs the frontier trigger conditions for a mutated
// transaction. A backdated entry (timestamp before the watermark) still
// changed balances and goal state upstream, but it never emits a message and
// never moves the watermark backward.
func (s *Session) evaluateTransaction(t *model.Transaction) {
	if s.hasWatermark && t.Date.Before(s.watermark) {
		return
	}

	balanceBefore := s.ledger.balanceBeforeEntry(t)
	balanceAfter := balanceBefore.Add(t.Signed())

	if balanceBefore.Sign() >= 0 && balanceAfter.Sign() < 0 {
		s.appendMessage(t.Date, model.MessageWarning, "Balance dropped below zero!")
	}

	if first := s.ledger.first(); first != nil && !t.Date.Before(first.Date.AddDate(0, newHighMinimumMonths, 0)) {
		high := s.ledger.highestBalanceExcluding(t)
		if balanceAfter.GreaterThan(high) {
			text := fmt.Sprintf("Your balance reached a new high of %s!", model.FormatAmount(balanceAfter))
			s.appendMessage(t.Date, model.MessageInfo, text)
		}
	}

	s.evaluateSpendRules(t)

	if !s.hasWatermark || t.Date.After(s.watermark) {
		s.watermark = t.Date
	}
	s.hasWatermark = true
}

// evaluateSpendRules checks, for every message rule on the transaction's
// category, whether the trailing 30-day withdrawal sum newly exceeds the
// threshold: at most one crossing fires per rule per transaction, but the
// same threshold crossed again later produces another message.
func (s *Session) evaluateSpendRules(t *model.Transaction) {
	if t.Internal || t.Type != model.Withdrawal || t.CategoryID == 0 {
		return
	}
	windowStart := t.Date.AddDate(0, 0, -spendWindowDays)
	for _, r := range s.messageRules {
		if r.CategoryID != t.CategoryID {
			continue
		}
		sum := s.categorySpend(r.CategoryID, windowStart, t)
		before := sum.Sub(t.Amount)
		if before.LessThanOrEqual(r.Value) && sum.GreaterThan(r.Value) {
			text := fmt.Sprintf("Spending exceeded threshold of %s on category with id %d.",
				model.FormatAmount(r.Value), r.CategoryID)
			s.appendMessage(t.Date, r.Type, text)
		}
	}
}

// categorySpend sums withdrawal amounts in a category over (windowStart,
// end.Date], including the end transaction itself.
func (s *Session) categorySpend(categoryID int64, windowStart time.Time, end *model.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range s.ledger.entries {
		if e.Internal || e.Type != model.Withdrawal || e.CategoryID != categoryID {
			continue
		}
		if e.Date.After(end.Date) || !e.Date.After(windowStart) {
			continue
		}
		sum = sum.Add(e.Amount)
	}
	return sum
}
